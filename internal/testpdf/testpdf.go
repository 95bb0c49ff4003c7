// Package testpdf builds small valid PDF documents for tests: a classic
// cross-reference table, one content stream per page, exact offsets.
package testpdf

import (
	"bytes"
	"fmt"
)

// Letter-size page in PDF points.
const (
	PageWidth  = 612.0
	PageHeight = 792.0
)

// New returns a document with the given number of letter-size pages. Each
// page shows its own 1-based number.
func New(pages int) []byte {
	if pages < 1 {
		pages = 1
	}

	var buf bytes.Buffer
	offsets := make(map[int]int)

	write := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	// 1 catalog, 2 page tree, 3 font, then page/content pairs.
	fontID := 3
	pageID := func(i int) int { return 4 + 2*i }
	contentID := func(i int) int { return 5 + 2*i }

	var kids bytes.Buffer
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&kids, " %d 0 R", pageID(i))
	}

	write(1, "<< /Type /Catalog /Pages 2 0 R >>")
	write(2, fmt.Sprintf("<< /Type /Pages /Kids [%s ] /Count %d >>", kids.String(), pages))
	write(fontID, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i := 0; i < pages; i++ {
		content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (Page %d) Tj ET", i+1)
		write(pageID(i), fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [ 0 0 %.0f %.0f ] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			PageWidth, PageHeight, fontID, contentID(i)))
		write(contentID(i), fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	size := 4 + 2*pages
	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f\r\n")
	for id := 1; id < size; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /ID [<b1e2c3d4e5f60718293a4b5c6d7e8f90><b1e2c3d4e5f60718293a4b5c6d7e8f90>] >>\n", size)
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefStart)

	return buf.Bytes()
}
