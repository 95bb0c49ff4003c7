package fonts

import (
	"math"
	"testing"
)

func TestStandard(t *testing.T) {
	tests := []struct {
		typ  StandardType
		name string
	}{
		{Helvetica, "Helvetica"},
		{HelveticaBold, "Helvetica-Bold"},
		{TimesRoman, "Times-Roman"},
		{Courier, "Courier"},
	}
	for _, tt := range tests {
		f := Standard(tt.typ)
		if f.Name != tt.name {
			t.Errorf("Standard(%v).Name = %q, want %q", tt.typ, f.Name, tt.name)
		}
		if f.Embedded {
			t.Errorf("Standard(%v) marked embedded", tt.typ)
		}
	}
}

func TestHelveticaWidth(t *testing.T) {
	// Space is 278 units, "W" is 944.
	if got := HelveticaWidth(" ", 1000); got != 278 {
		t.Errorf("width of space = %v, want 278", got)
	}
	if got := HelveticaWidth("W", 10); math.Abs(got-9.44) > 1e-9 {
		t.Errorf("width of W at 10pt = %v, want 9.44", got)
	}
	if got := HelveticaWidth("", 12); got != 0 {
		t.Errorf("width of empty string = %v, want 0", got)
	}
	// Out-of-range runes count as half an em.
	if got := HelveticaWidth("é", 10); got != 5 {
		t.Errorf("width of out-of-range rune = %v, want 5", got)
	}

	wide := HelveticaWidth("WWW", 12)
	narrow := HelveticaWidth("iii", 12)
	if wide <= narrow {
		t.Errorf("W (%v) should be wider than i (%v)", wide, narrow)
	}
}

func TestStringWidthNilMetrics(t *testing.T) {
	var m *Metrics
	if got := m.StringWidth("abcd", 10); got != 20 {
		t.Errorf("nil metrics fallback = %v, want 20", got)
	}
}

func TestStringWidth(t *testing.T) {
	m := &Metrics{
		UnitsPerEm:  1000,
		GlyphWidths: map[rune]int{'a': 500, 'b': 600},
	}
	if got := m.StringWidth("ab", 10); math.Abs(got-11) > 1e-9 {
		t.Errorf("StringWidth = %v, want 11", got)
	}
	// Missing glyphs fall back to half an em.
	if got := m.StringWidth("z", 10); math.Abs(got-5) > 1e-9 {
		t.Errorf("missing glyph width = %v, want 5", got)
	}
}

func TestWidthsArray(t *testing.T) {
	m := &Metrics{
		UnitsPerEm:  2048,
		GlyphWidths: map[rune]int{'A': 1024},
	}
	widths := m.WidthsArray()
	if len(widths) != 224 {
		t.Fatalf("len = %d, want 224", len(widths))
	}
	if got := widths['A'-32]; got != 500 {
		t.Errorf("width of A = %d, want 500", got)
	}

	var nilMetrics *Metrics
	widths = nilMetrics.WidthsArray()
	if len(widths) != 224 {
		t.Fatalf("nil metrics len = %d, want 224", len(widths))
	}
	for i, w := range widths {
		if w != 500 {
			t.Fatalf("nil metrics width[%d] = %d, want 500", i, w)
		}
	}
}

func TestTrueTypeRejectsGarbage(t *testing.T) {
	if _, err := TrueType("Bogus", []byte("not a font")); err == nil {
		t.Fatal("expected an error for invalid font data")
	}
}
