// Package fonts provides the text-rendering resources used by the visual
// mark renderer and the protocol page generator: the non-embedded standard
// PDF fonts with their metrics, and parsed TrueType fonts supplied by the
// caller for the ornamental signature line.
package fonts

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// StandardType identifies one of the base-14 PDF fonts, available in every
// PDF reader without embedding.
type StandardType int

const (
	// Helvetica is the standard sans-serif font.
	Helvetica StandardType = iota
	// HelveticaBold is bold Helvetica.
	HelveticaBold
	// HelveticaOblique is italic/oblique Helvetica.
	HelveticaOblique
	// TimesRoman is the standard serif font.
	TimesRoman
	// Courier is the standard monospace font.
	Courier
)

var standardNames = map[StandardType]string{
	Helvetica:        "Helvetica",
	HelveticaBold:    "Helvetica-Bold",
	HelveticaOblique: "Helvetica-Oblique",
	TimesRoman:       "Times-Roman",
	Courier:          "Courier",
}

// Font is a text-rendering resource. Standard fonts carry no data and are
// referenced by name; TrueType fonts carry the raw font program and parsed
// metrics and get embedded into the document.
type Font struct {
	Name     string   // PostScript name of the font
	Data     []byte   // TrueType font program (nil for standard fonts)
	Hash     string   // SHA-256 of Data, for deduplication
	Embedded bool     // whether the font program is embedded
	Metrics  *Metrics // glyph metrics for text measurement
}

// Standard returns one of the base-14 fonts.
func Standard(t StandardType) *Font {
	return &Font{Name: standardNames[t], Embedded: false}
}

// TrueType parses a TrueType font program into an embeddable Font. The
// returned error signals an unusable font program; callers that render
// signature marks treat that as a cue to fall back to Helvetica.
func TrueType(name string, data []byte) (*Font, error) {
	metrics, err := ParseTTFMetrics(data)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return &Font{
		Name:     name,
		Data:     data,
		Hash:     hex.EncodeToString(sum[:]),
		Embedded: true,
		Metrics:  metrics,
	}, nil
}

// Metrics holds parsed font metrics for text measurement and for building
// the PDF font descriptor of an embedded font.
type Metrics struct {
	UnitsPerEm  int
	Ascent      int // in font units
	Descent     int // in font units, negative below the baseline
	GlyphWidths map[rune]int
}

// ParseTTFMetrics extracts glyph advance widths and vertical metrics from a
// TrueType font program.
func ParseTTFMetrics(data []byte) (*Metrics, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}

	unitsPerEm := int(f.UnitsPerEm())

	var buf sfnt.Buffer
	widths := make(map[rune]int)

	// Measure at ppem == unitsPerEm so advances come back in font units.
	ppem := fixed.Int26_6(unitsPerEm) << 6

	for r := rune(32); r <= rune(255); r++ {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			continue
		}
		advance, err := f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		widths[r] = int(advance >> 6)
	}

	m := &Metrics{
		UnitsPerEm:  unitsPerEm,
		Ascent:      unitsPerEm * 3 / 4,
		Descent:     -unitsPerEm / 4,
		GlyphWidths: widths,
	}

	if vm, err := f.Metrics(&buf, ppem, font.HintingNone); err == nil {
		m.Ascent = int(vm.Ascent >> 6)
		m.Descent = -int(vm.Descent >> 6)
	}

	return m, nil
}

// StringWidth measures text in points at the given font size.
func (m *Metrics) StringWidth(text string, fontSize float64) float64 {
	if m == nil || m.UnitsPerEm == 0 {
		return float64(len(text)) * fontSize * 0.5
	}

	var total int
	for _, r := range text {
		if w, ok := m.GlyphWidths[r]; ok {
			total += w
		} else {
			total += m.UnitsPerEm / 2
		}
	}
	return float64(total) / float64(m.UnitsPerEm) * fontSize
}

// WidthsArray returns the /Widths entries for an embedded simple font,
// covering character codes 32 through 255, scaled to 1000 units per em.
func (m *Metrics) WidthsArray() []int {
	widths := make([]int, 256-32)
	defaultWidth := 500

	if m != nil && m.UnitsPerEm > 0 {
		scale := 1000.0 / float64(m.UnitsPerEm)
		defaultWidth = int(float64(m.UnitsPerEm/2) * scale)
		for i := 32; i < 256; i++ {
			if w, ok := m.GlyphWidths[rune(i)]; ok {
				widths[i-32] = int(float64(w) * scale)
			} else {
				widths[i-32] = defaultWidth
			}
		}
		return widths
	}

	for i := range widths {
		widths[i] = defaultWidth
	}
	return widths
}
