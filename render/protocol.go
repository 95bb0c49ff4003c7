package render

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/keboola/esignature/fonts"
	"github.com/keboola/esignature/identity"
	"github.com/keboola/esignature/internal/incpdf"
)

// A4 portrait in PDF points.
const (
	protocolPageWidth  = 595
	protocolPageHeight = 842
	protocolMargin     = 50
)

// ProtocolEntry is one applied placement listed on the protocol page.
type ProtocolEntry struct {
	Initials bool
	Page     int // zero-based page index in the original document
}

// ProtocolData is everything the protocol page reports.
type ProtocolData struct {
	SignerName  string
	Certificate identity.CertificateInfo
	Entries     []ProtocolEntry

	// Now supplies the signing time; nil means time.Now.
	Now func() time.Time
}

// AppendProtocolPage appends an A4 page summarizing the signing run: page
// count, timestamp, certificate details, the applied placements, and how to
// verify the result. The page becomes the document's last page.
func AppendProtocolPage(input []byte, data ProtocolData) ([]byte, error) {
	u, err := incpdf.Open(input)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	pageCount := u.Reader().NumPage()

	helvID, err := addStandardFont(u, fonts.Standard(fonts.Helvetica))
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	content := protocolContent(data, pageCount)

	var stream bytes.Buffer
	fmt.Fprintf(&stream, "<< /Length %d >>\nstream\n", len(content))
	stream.Write(content)
	stream.WriteString("\nendstream")
	streamID, err := u.AddObject(stream.Bytes())
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	pagesNode := u.Reader().Trailer().Key("Root").Key("Pages")
	pagesRef := incpdf.PageRef(pagesNode)

	pageBody := fmt.Sprintf(
		"<< /Type /Page /Parent %s /MediaBox [ 0 0 %d %d ] /Resources << /Font << /EsF1 %d 0 R >> >> /Contents %d 0 R >>",
		pagesRef, protocolPageWidth, protocolPageHeight, helvID, streamID)
	pageID, err := u.AddObject([]byte(pageBody))
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	// Rewrite the root page tree node with the new page appended.
	var buf bytes.Buffer
	buf.WriteString("<<\n")
	for _, key := range pagesNode.Keys() {
		if key == "Kids" || key == "Count" {
			continue
		}
		fmt.Fprintf(&buf, "  /%s %s\n", key, incpdf.SerializeValue(pagesNode.Key(key), pagesNode.GetPtr()))
	}
	buf.WriteString("  /Kids [")
	kids := pagesNode.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		buf.WriteString(" " + incpdf.SerializeValue(kids.Index(i), kids.GetPtr()))
	}
	fmt.Fprintf(&buf, " %d 0 R ]\n", pageID)
	fmt.Fprintf(&buf, "  /Count %d\n", pagesNode.Key("Count").Int64()+1)
	buf.WriteString(">>")

	if err := u.UpdateObject(pagesNode.GetPtr().GetID(), buf.Bytes()); err != nil {
		return nil, &RenderError{Err: err}
	}

	out, err := u.Finalize()
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	return out, nil
}

// protocolContent lays the page out top-down, mirroring the report the
// signing tool has always produced.
func protocolContent(data ProtocolData, pageCount int) []byte {
	now := time.Now()
	if data.Now != nil {
		now = data.Now()
	}

	var c contentStream
	const font = "EsF1"

	// y runs down from the top edge.
	y := 50.0
	baseline := func() float64 { return protocolPageHeight - y }

	c.Text(font, 18, protocolMargin, baseline(), 0, "Digital Signature Protocol")
	y += 40

	c.Line(protocolMargin, baseline(), protocolPageWidth-protocolMargin, baseline(), 1)
	y += 25

	c.Text(font, 12, protocolMargin, baseline(), 0, "Document Information:")
	y += 18

	body := func(text string) {
		c.Text(font, 10, protocolMargin+10, baseline(), 0, text)
		y += 14
	}

	body("Number of pages: " + strconv.Itoa(pageCount))
	body("Signing date: " + now.Format("2006-01-02 15:04:05"))
	y += 15

	c.Text(font, 12, protocolMargin, baseline(), 0, "Certificate Used:")
	y += 18

	cert := data.Certificate
	owner := cert.SubjectCN
	if data.SignerName != "" {
		owner = data.SignerName
	}
	body("Owner: " + identity.Normalize(owner))
	if cert.SubjectOrg != "" {
		body("Organization: " + identity.Normalize(cert.SubjectOrg))
	}
	body("Issuer: " + identity.Normalize(cert.IssuerCN))
	if cert.IssuerOrg != "" {
		body("Issuer Org: " + identity.Normalize(cert.IssuerOrg))
	}
	body("Valid from: " + cert.ValidFrom)
	body("Valid until: " + cert.ValidTo)
	body("Serial number: " + cert.SerialNumber)
	y += 15

	c.Text(font, 12, protocolMargin, baseline(), 0, "Applied Signatures:")
	y += 18

	seq := 0
	for _, entry := range data.Entries {
		if entry.Initials {
			continue
		}
		seq++
		body(fmt.Sprintf("%d. Digital signature - page %d", seq, entry.Page+1))
	}

	if pages := initialsPages(data.Entries); len(pages) > 0 {
		body("Initials - pages: " + pages)
	}
	y += 20

	c.Text(font, 12, protocolMargin, baseline(), 0, "Signature Verification:")
	y += 18

	for _, line := range []string{
		"The digital signature can be verified in Adobe Acrobat Reader",
		"or any other PDF viewer that supports digital signatures.",
		"",
		"The signature contains:",
		"- Timestamp of signing moment",
		"- Signer identity from certificate",
		"- Cryptographic hash of the document",
		"- Certificate chain for verification",
	} {
		body(line)
	}

	// Footer pinned to the bottom edge.
	c.Line(protocolMargin, 50, protocolPageWidth-protocolMargin, 50, 0.5)
	c.Text(font, 8, protocolMargin, 35, 0.4, "Created by Keboola eSignature | https://"+Attribution)

	return c.Bytes()
}

// initialsPages renders the sorted, deduplicated 1-based page list of all
// initials placements.
func initialsPages(entries []ProtocolEntry) string {
	seen := make(map[int]bool)
	var pages []int
	for _, entry := range entries {
		if !entry.Initials || seen[entry.Page] {
			continue
		}
		seen[entry.Page] = true
		pages = append(pages, entry.Page+1)
	}
	sort.Ints(pages)

	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
