package render

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"

	"github.com/keboola/esignature/fonts"
	"github.com/keboola/esignature/internal/incpdf"
)

// addStandardFont appends a non-embedded base-14 font object.
func addStandardFont(u *incpdf.Updater, f *fonts.Font) (uint32, error) {
	body := fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>", f.Name)
	return u.AddObject([]byte(body))
}

// addTrueTypeFont embeds a TrueType font program with its descriptor and
// returns the font object number.
func addTrueTypeFont(u *incpdf.Updater, f *fonts.Font) (uint32, error) {
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(f.Data); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}

	var fileObj bytes.Buffer
	fmt.Fprintf(&fileObj, "<< /Length %d /Length1 %d /Filter /FlateDecode >>\nstream\n", compressed.Len(), len(f.Data))
	fileObj.Write(compressed.Bytes())
	fileObj.WriteString("\nendstream")

	fileID, err := u.AddObject(fileObj.Bytes())
	if err != nil {
		return 0, err
	}

	baseName := pdfFontName(f.Name)
	m := f.Metrics
	scale := 1000.0 / float64(m.UnitsPerEm)
	ascent := int(float64(m.Ascent) * scale)
	descent := int(float64(m.Descent) * scale)

	descriptor := fmt.Sprintf(
		"<< /Type /FontDescriptor /FontName /%s /Flags 32 /FontBBox [ -200 %d 1200 %d ] /ItalicAngle 0 /Ascent %d /Descent %d /CapHeight %d /StemV 80 /FontFile2 %d 0 R >>",
		baseName, descent, ascent, ascent, descent, ascent, fileID)
	descID, err := u.AddObject([]byte(descriptor))
	if err != nil {
		return 0, err
	}

	var fontObj bytes.Buffer
	fmt.Fprintf(&fontObj, "<< /Type /Font /Subtype /TrueType /BaseFont /%s /FirstChar 32 /LastChar 255 /Widths [", baseName)
	for _, w := range m.WidthsArray() {
		fmt.Fprintf(&fontObj, " %d", w)
	}
	fmt.Fprintf(&fontObj, " ] /FontDescriptor %d 0 R /Encoding /WinAnsiEncoding >>", descID)

	return u.AddObject(fontObj.Bytes())
}

// pdfFontName sanitizes a font name for use as a PDF name object.
func pdfFontName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r > ' ' && r < 0x7f && r != '/' && r != '(' && r != ')' && r != '<' && r != '>' && r != '[' && r != ']' && r != '%' && r != '#' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "EmbeddedFont"
	}
	return b.String()
}
