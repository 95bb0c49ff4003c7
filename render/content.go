package render

import (
	"bytes"
	"fmt"
	"strings"
)

// contentStream accumulates PDF content stream operators.
type contentStream struct {
	buf bytes.Buffer
}

func (c *contentStream) Bytes() []byte { return c.buf.Bytes() }

// Box draws a filled rectangle with a stroked border.
func (c *contentStream) Box(x, y, w, h, borderWidth float64, fillGray, strokeGray float64) {
	fmt.Fprintf(&c.buf, "q\n%.3f %.3f %.3f rg\n%.2f %.2f %.2f %.2f re\nf\n", fillGray, fillGray, fillGray, x, y, w, h)
	fmt.Fprintf(&c.buf, "%.3f %.3f %.3f RG\n%.2f w\n%.2f %.2f %.2f %.2f re\nS\nQ\n", strokeGray, strokeGray, strokeGray, borderWidth, x, y, w, h)
}

// Line draws a horizontal rule between two points.
func (c *contentStream) Line(x0, y0, x1, y1, width float64) {
	fmt.Fprintf(&c.buf, "q\n0 0 0 RG\n%.2f w\n%.2f %.2f m\n%.2f %.2f l\nS\nQ\n", width, x0, y0, x1, y1)
}

// Text places a string with its baseline at (x, y) using the named font
// resource. gray 0 is black.
func (c *contentStream) Text(fontRes string, size, x, y, gray float64, text string) {
	fmt.Fprintf(&c.buf, "BT\n/%s %.2f Tf\n%.3f %.3f %.3f rg\n%.2f %.2f Td\n%s Tj\nET\n",
		fontRes, size, gray, gray, gray, x, y, contentString(text))
}

// contentString escapes text for use in a content stream literal string.
// Content stream text is rendered through a single-byte font encoding, so
// callers must fold the text to ASCII beforehand.
func contentString(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, ")", "\\)")
	return "(" + text + ")"
}
