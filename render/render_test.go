package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/digitorus/pdf"

	"github.com/keboola/esignature/identity"
	"github.com/keboola/esignature/internal/testpdf"
)

var testClock = func() time.Time {
	return time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
}

func reopen(t *testing.T, data []byte) *pdf.Reader {
	t.Helper()
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reopen document: %v", err)
	}
	return rdr
}

func TestApplySignatureMark(t *testing.T) {
	input := testpdf.New(2)
	rect := Rect{X: 100, Y: 50, Width: 150, Height: 50}

	out, err := ApplySignatureMark(input, 1, rect, "Jan Novák", Style{Now: testClock})
	if err != nil {
		t.Fatalf("ApplySignatureMark: %v", err)
	}
	if !bytes.HasPrefix(out, input) {
		t.Error("mark did not append incrementally")
	}

	rdr := reopen(t, out)
	if got := rdr.NumPage(); got != 2 {
		t.Fatalf("NumPage = %d, want 2", got)
	}

	// Content streams are written uncompressed, so the drawn text is
	// visible in the raw bytes. The name is folded to ASCII first.
	appended := out[len(input):]
	for _, want := range []string{"(Jan Novak)", "2025-06-01 10:30:00 UTC", Attribution, "/EsF1"} {
		if !bytes.Contains(appended, []byte(want)) {
			t.Errorf("update is missing %q", want)
		}
	}

	// The rewritten page keeps its direct entries inline instead of
	// turning them into references to itself.
	page := rdr.Page(2)
	if got := page.V.Key("Type").Name(); got != "Page" {
		t.Errorf("page Type = %q, want Page", got)
	}
	if mb := page.V.Key("MediaBox"); mb.Kind() != pdf.Array || mb.Len() != 4 {
		t.Error("page MediaBox did not survive the rewrite")
	}

	// The target page now carries the new font resource.
	font := page.V.Key("Resources").Key("Font")
	if font.Key("EsF1").IsNull() {
		t.Error("page resources are missing the added font")
	}
	if font.Key("F1").IsNull() {
		t.Error("merge dropped the original font resource")
	}
}

func TestApplySignatureMarkOrnamentalFallback(t *testing.T) {
	input := testpdf.New(1)
	rect := Rect{X: 10, Y: 10, Width: 150, Height: 50}

	// A nil ornamental font falls back to Helvetica without error.
	out, err := ApplySignatureMark(input, 0, rect, "Jan Novak", Style{Now: testClock})
	if err != nil {
		t.Fatalf("ApplySignatureMark: %v", err)
	}
	if !bytes.Contains(out[len(input):], []byte("/Helvetica")) {
		t.Error("fallback did not use Helvetica")
	}
}

func TestApplySignatureMarkBadPage(t *testing.T) {
	input := testpdf.New(1)
	_, err := ApplySignatureMark(input, 5, Rect{Width: 150, Height: 50}, "X", Style{Now: testClock})
	if err == nil {
		t.Fatal("expected an error for a page out of range")
	}
	if _, ok := err.(*RenderError); !ok {
		t.Errorf("error type = %T, want *RenderError", err)
	}
}

func TestApplyInitialsMark(t *testing.T) {
	input := testpdf.New(1)
	rect := Rect{X: 200, Y: 300, Width: 50, Height: 35}

	out, err := ApplyInitialsMark(input, 0, rect, "Ing. Jan Novák Ph.D.", Style{Now: testClock})
	if err != nil {
		t.Fatalf("ApplyInitialsMark: %v", err)
	}

	rdr := reopen(t, out)
	if got := rdr.NumPage(); got != 1 {
		t.Fatalf("NumPage = %d, want 1", got)
	}
	if !bytes.Contains(out[len(input):], []byte("(JN)")) {
		t.Error("update is missing the initials text")
	}
}

func TestAppendProtocolPage(t *testing.T) {
	input := testpdf.New(2)
	data := ProtocolData{
		SignerName: "Jan Novák",
		Certificate: identity.CertificateInfo{
			SubjectCN:    "Jan Novák",
			SubjectOrg:   "Example s.r.o.",
			IssuerCN:     "Example CA",
			ValidFrom:    "01.01.2025 00:00",
			ValidTo:      "01.01.2027 00:00",
			SerialNumber: "1A2B3C",
		},
		Entries: []ProtocolEntry{
			{Initials: false, Page: 0},
			{Initials: true, Page: 1},
			{Initials: true, Page: 1},
			{Initials: true, Page: 0},
		},
		Now: testClock,
	}

	out, err := AppendProtocolPage(input, data)
	if err != nil {
		t.Fatalf("AppendProtocolPage: %v", err)
	}

	rdr := reopen(t, out)
	if got := rdr.NumPage(); got != 3 {
		t.Fatalf("NumPage = %d, want 3", got)
	}

	// New page is A4.
	page := rdr.Page(3)
	mb := page.V.Key("MediaBox")
	if mb.Index(2).Float64() != 595 || mb.Index(3).Float64() != 842 {
		t.Errorf("protocol page MediaBox = %v", mb)
	}

	appended := out[len(input):]
	for _, want := range []string{
		"Number of pages: 2",
		"Owner: Jan Novak",
		"Example s.r.o.",
		"1. Digital signature - page 1",
		"Initials - pages: 1, 2",
		"Serial number: 1A2B3C",
	} {
		if !bytes.Contains(appended, []byte(want)) {
			t.Errorf("protocol page is missing %q", want)
		}
	}
}

func TestInitialsPages(t *testing.T) {
	tests := []struct {
		name    string
		entries []ProtocolEntry
		want    string
	}{
		{"none", []ProtocolEntry{{Initials: false, Page: 0}}, ""},
		{"sorted dedup", []ProtocolEntry{
			{Initials: true, Page: 3},
			{Initials: true, Page: 0},
			{Initials: true, Page: 3},
		}, "1, 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := initialsPages(tt.entries); got != tt.want {
				t.Errorf("initialsPages = %q, want %q", got, tt.want)
			}
		})
	}
}
