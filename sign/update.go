package sign

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/digitorus/pdf"

	"github.com/keboola/esignature/internal/incpdf"
)

const byteRangePlaceholder = "/ByteRange [0 ********** ********** **********]"

// signOnce builds one incremental signing update with maxLength hex
// characters reserved for the signature and fills the reservation in.
func signOnce(input []byte, data *SignData, maxLength int) ([]byte, error) {
	u, err := incpdf.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	page, err := incpdf.FindPage(u.Reader(), data.Page)
	if err != nil {
		return nil, err
	}

	root := u.Reader().Trailer().Key("Root")
	existingFields := collectFormFields(root)
	for _, name := range existingFields.names {
		if name == data.FieldName {
			return nil, fmt.Errorf("%w: %q", ErrFieldExists, data.FieldName)
		}
	}

	sigID, err := u.AddObject(signaturePlaceholder(data, maxLength))
	if err != nil {
		return nil, err
	}

	appearanceID, err := u.AddObject(blankAppearance(data.Rect))
	if err != nil {
		return nil, err
	}

	widgetID, err := u.AddObject(widgetBody(data, page, sigID, appearanceID))
	if err != nil {
		return nil, err
	}

	if err := addWidgetToPage(u, page, widgetID); err != nil {
		return nil, err
	}

	catalogID, err := u.AddObject(catalogBody(root, existingFields.refs, widgetID))
	if err != nil {
		return nil, err
	}
	u.SetRoot(catalogID)

	out, err := u.Finalize()
	if err != nil {
		return nil, err
	}

	byteRange, err := resolveByteRange(out, maxLength)
	if err != nil {
		return nil, err
	}

	return embedSignature(out, data, byteRange, maxLength)
}

// signaturePlaceholder renders the signature dictionary with the ByteRange
// and Contents placeholders that get patched after the file layout is
// final.
func signaturePlaceholder(data *SignData, maxLength int) []byte {
	var buf bytes.Buffer
	buf.WriteString("<< /Type /Sig")
	buf.WriteString(" /Filter /Adobe.PPKLite")
	buf.WriteString(" /SubFilter /adbe.pkcs7.detached")
	buf.WriteString(" " + byteRangePlaceholder)
	buf.WriteString(" /Contents <")
	buf.Write(bytes.Repeat([]byte("0"), maxLength))
	buf.WriteString(">")

	if data.Name != "" {
		buf.WriteString(" /Name " + incpdf.String(data.Name))
	}
	if data.Location != "" {
		buf.WriteString(" /Location " + incpdf.String(data.Location))
	}
	if data.Reason != "" {
		buf.WriteString(" /Reason " + incpdf.String(data.Reason))
	}
	if data.ContactInfo != "" {
		buf.WriteString(" /ContactInfo " + incpdf.String(data.ContactInfo))
	}
	buf.WriteString(" /M " + incpdf.DateTime(data.Date))
	buf.WriteString(" >>")
	return buf.Bytes()
}

// blankAppearance is an empty form XObject for the widget's normal
// appearance; the visible mark is burned into page content beforehand.
func blankAppearance(rect [4]float64) []byte {
	w := rect[2] - rect[0]
	h := rect[3] - rect[1]
	return []byte(fmt.Sprintf(
		"<< /Type /XObject /Subtype /Form /FormType 1 /BBox [ 0 0 %.2f %.2f ] /Resources << >> /Length 0 >>\nstream\nendstream",
		w, h))
}

func widgetBody(data *SignData, page pdf.Value, sigID, appearanceID uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("<< /Type /Annot")
	buf.WriteString(" /Subtype /Widget")
	fmt.Fprintf(&buf, " /Rect [ %.2f %.2f %.2f %.2f ]", data.Rect[0], data.Rect[1], data.Rect[2], data.Rect[3])
	buf.WriteString(" /FT /Sig")
	buf.WriteString(" /T " + incpdf.String(data.FieldName))
	buf.WriteString(" /Ff 0")
	// Print and Locked flags.
	buf.WriteString(" /F 132")
	fmt.Fprintf(&buf, " /V %d 0 R", sigID)
	fmt.Fprintf(&buf, " /AP << /N %d 0 R >>", appearanceID)
	buf.WriteString(" /P " + incpdf.PageRef(page))
	buf.WriteString(" >>")
	return buf.Bytes()
}

// addWidgetToPage replaces the page dictionary with a copy whose /Annots
// includes the new widget.
func addWidgetToPage(u *incpdf.Updater, page pdf.Value, widgetID uint32) error {
	var buf bytes.Buffer
	buf.WriteString("<<\n")
	for _, key := range page.Keys() {
		if key == "Annots" {
			continue
		}
		fmt.Fprintf(&buf, "  /%s %s\n", key, incpdf.SerializeValue(page.Key(key), page.GetPtr()))
	}

	buf.WriteString("  /Annots [")
	annots := page.Key("Annots")
	if annots.Kind() == pdf.Array {
		for i := 0; i < annots.Len(); i++ {
			buf.WriteString(" " + incpdf.SerializeValue(annots.Index(i), annots.GetPtr()))
		}
	}
	fmt.Fprintf(&buf, " %d 0 R ]\n", widgetID)
	buf.WriteString(">>")

	return u.UpdateObject(page.GetPtr().GetID(), buf.Bytes())
}

// catalogBody rewrites the document catalog, preserving its entries and
// replacing /AcroForm with one that lists all signature fields.
func catalogBody(root pdf.Value, existingFields []string, widgetID uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("<< /Type /Catalog")
	for _, key := range root.Keys() {
		if key == "Type" || key == "AcroForm" {
			continue
		}
		fmt.Fprintf(&buf, " /%s %s", key, incpdf.SerializeValue(root.Key(key), root.GetPtr()))
	}

	buf.WriteString(" /AcroForm << /Fields [")
	for _, ref := range existingFields {
		buf.WriteString(" " + ref)
	}
	fmt.Fprintf(&buf, " %d 0 R ]", widgetID)
	// SignaturesExist and AppendOnly.
	buf.WriteString(" /SigFlags 3 >>")
	buf.WriteString(" >>")
	return buf.Bytes()
}

type formFields struct {
	refs  []string
	names []string
}

// collectFormFields gathers the existing AcroForm field references and
// their partial names.
func collectFormFields(root pdf.Value) formFields {
	var fields formFields
	list := root.Key("AcroForm").Key("Fields")
	if list.Kind() != pdf.Array {
		return fields
	}
	for i := 0; i < list.Len(); i++ {
		field := list.Index(i)
		ptr := field.GetPtr()
		if ptr.GetID() == 0 {
			continue
		}
		fields.refs = append(fields.refs, fmt.Sprintf("%d %d R", ptr.GetID(), ptr.GetGen()))
		if name := field.Key("T"); name.Kind() == pdf.String {
			fields.names = append(fields.names, name.RawString())
		}
	}
	return fields
}

// resolveByteRange locates the signature placeholders in the final output,
// patches the real ByteRange in place and returns its values.
func resolveByteRange(out []byte, maxLength int) ([4]int64, error) {
	var byteRange [4]int64

	brIdx := bytes.Index(out, []byte(byteRangePlaceholder))
	if brIdx < 0 {
		return byteRange, fmt.Errorf("byte range placeholder not found")
	}

	marker := []byte("/Contents <")
	contentsIdx := bytes.Index(out[brIdx:], marker)
	if contentsIdx < 0 {
		return byteRange, fmt.Errorf("contents placeholder not found")
	}
	// Offset of the opening angle bracket.
	start := int64(brIdx + contentsIdx + len(marker) - 1)

	byteRange[0] = 0
	byteRange[1] = start
	byteRange[2] = start + int64(maxLength) + 2
	byteRange[3] = int64(len(out)) - byteRange[2]

	patched := fmt.Sprintf("/ByteRange [0 %d %d %d]", byteRange[1], byteRange[2], byteRange[3])
	if len(patched) > len(byteRangePlaceholder) {
		return byteRange, fmt.Errorf("byte range values exceed placeholder")
	}
	for len(patched) < len(byteRangePlaceholder) {
		patched += " "
	}
	copy(out[brIdx:], patched)

	return byteRange, nil
}

// embedSignature signs the covered ranges and writes the hex-encoded
// signature into the reserved contents area.
func embedSignature(out []byte, data *SignData, byteRange [4]int64, maxLength int) ([]byte, error) {
	signed := make([]byte, 0, byteRange[1]+byteRange[3])
	signed = append(signed, out[byteRange[0]:byteRange[0]+byteRange[1]]...)
	signed = append(signed, out[byteRange[2]:byteRange[2]+byteRange[3]]...)

	signature, err := createSignature(signed, data)
	if err != nil {
		return nil, err
	}

	encoded := make([]byte, hex.EncodedLen(len(signature)))
	hex.Encode(encoded, signature)
	if len(encoded) > maxLength {
		return nil, &placeholderTooSmallError{needed: len(encoded)}
	}

	copy(out[byteRange[1]+1:], encoded)
	return out, nil
}
