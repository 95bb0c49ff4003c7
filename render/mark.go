package render

import (
	"bytes"
	"fmt"

	"github.com/digitorus/pdf"

	"github.com/keboola/esignature/fonts"
	"github.com/keboola/esignature/identity"
	"github.com/keboola/esignature/internal/incpdf"
)

// Signature mark layout, measured down from the top edge of the box.
const (
	markNameBaseline = 18
	markDateBaseline = 32
	markAttrBaseline = 44
	markTextInset    = 5

	markNameSize = 14
	markDateSize = 8
	markAttrSize = 6

	initialsSize = 18
)

// ApplySignatureMark draws the full signature appearance at rect: a white
// box with a thin border, the signer name in the ornamental font, the
// current timestamp, and the attribution line. The returned bytes are a new
// revision of the document.
func ApplySignatureMark(input []byte, pageIndex int, rect Rect, signerName string, style Style) ([]byte, error) {
	u, err := incpdf.Open(input)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	page, err := incpdf.FindPage(u.Reader(), pageIndex)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	res := newResources(u, page)

	helv, err := res.standard(fonts.Helvetica)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	// The ornamental font is best effort: a missing or unparseable font
	// program must not fail the signing run.
	nameFont := helv
	if style.Ornamental != nil && style.Ornamental.Embedded {
		if f, err := res.trueType(style.Ornamental); err == nil {
			nameFont = f
		}
	}

	var c contentStream
	c.Box(rect.X, rect.Y, rect.Width, rect.Height, 0.5, 1, 0)

	top := rect.Y + rect.Height
	c.Text(nameFont, markNameSize, rect.X+markTextInset, top-markNameBaseline, 0, identity.Normalize(signerName))
	c.Text(helv, markDateSize, rect.X+markTextInset, top-markDateBaseline, 0.3, timestamp(style.now()))
	c.Text(helv, markAttrSize, rect.X+markTextInset, top-markAttrBaseline, 0.5, Attribution)

	if err := res.applyToPage(page, c.Bytes()); err != nil {
		return nil, &RenderError{Err: err}
	}

	out, err := u.Finalize()
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	return out, nil
}

// ApplyInitialsMark draws the initials appearance at rect: the box with the
// initials derived from the signer name centered inside it.
func ApplyInitialsMark(input []byte, pageIndex int, rect Rect, signerName string, style Style) ([]byte, error) {
	u, err := incpdf.Open(input)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	page, err := incpdf.FindPage(u.Reader(), pageIndex)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	res := newResources(u, page)

	helv, err := res.standard(fonts.Helvetica)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	text := identity.Normalize(identity.Initials(signerName))

	var c contentStream
	c.Box(rect.X, rect.Y, rect.Width, rect.Height, 0.5, 1, 0)

	textWidth := fonts.HelveticaWidth(text, initialsSize)
	x := rect.X + (rect.Width-textWidth)/2
	y := rect.Y + rect.Height/2 - 6
	c.Text(helv, initialsSize, x, y, 0, text)

	if err := res.applyToPage(page, c.Bytes()); err != nil {
		return nil, &RenderError{Err: err}
	}

	out, err := u.Finalize()
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	return out, nil
}

// pageResources collects font objects added for one page update and rewrites
// the page dictionary to reference them together with a new content stream.
type pageResources struct {
	u     *incpdf.Updater
	page  pdf.Value
	added map[string]uint32 // resource name -> font object
	byKey map[string]string // font identity -> resource name
}

func newResources(u *incpdf.Updater, page pdf.Value) *pageResources {
	return &pageResources{
		u:     u,
		page:  page,
		added: make(map[string]uint32),
		byKey: make(map[string]string),
	}
}

func (r *pageResources) standard(t fonts.StandardType) (string, error) {
	f := fonts.Standard(t)
	if name, ok := r.byKey[f.Name]; ok {
		return name, nil
	}
	id, err := addStandardFont(r.u, f)
	if err != nil {
		return "", err
	}
	return r.register(f.Name, id), nil
}

func (r *pageResources) trueType(f *fonts.Font) (string, error) {
	if name, ok := r.byKey[f.Hash]; ok {
		return name, nil
	}
	id, err := addTrueTypeFont(r.u, f)
	if err != nil {
		return "", err
	}
	return r.register(f.Hash, id), nil
}

// register picks a resource name that no font in the page's existing
// resource dictionary uses.
func (r *pageResources) register(key string, id uint32) string {
	existing := effectiveResources(r.page).Key("Font")
	for i := 1; ; i++ {
		name := fmt.Sprintf("EsF%d", i)
		if _, taken := r.added[name]; taken {
			continue
		}
		if existing.Kind() == pdf.Dict && !existing.Key(name).IsNull() {
			continue
		}
		r.added[name] = id
		r.byKey[key] = name
		return name
	}
}

// applyToPage appends the content stream and replaces the page dictionary,
// extending /Contents and merging the new fonts into /Resources.
func (r *pageResources) applyToPage(page pdf.Value, content []byte) error {
	var stream bytes.Buffer
	fmt.Fprintf(&stream, "<< /Length %d >>\nstream\n", len(content))
	stream.Write(content)
	stream.WriteString("\nendstream")

	streamID, err := r.u.AddObject(stream.Bytes())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("<<\n")
	for _, key := range page.Keys() {
		if key == "Contents" || key == "Resources" {
			continue
		}
		fmt.Fprintf(&buf, "  /%s %s\n", key, incpdf.SerializeValue(page.Key(key), page.GetPtr()))
	}

	buf.WriteString("  /Contents [")
	contents := page.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			buf.WriteString(" " + incpdf.SerializeValue(contents.Index(i), contents.GetPtr()))
		}
	} else if ptr := contents.GetPtr(); ptr.GetID() > 0 && ptr != page.GetPtr() {
		fmt.Fprintf(&buf, " %d %d R", ptr.GetID(), ptr.GetGen())
	}
	fmt.Fprintf(&buf, " %d 0 R ]\n", streamID)

	res := effectiveResources(page)
	buf.WriteString("  /Resources <<")
	if res.Kind() == pdf.Dict {
		for _, key := range res.Keys() {
			if key == "Font" {
				continue
			}
			fmt.Fprintf(&buf, " /%s %s", key, incpdf.SerializeValue(res.Key(key), res.GetPtr()))
		}
	}
	buf.WriteString(" /Font <<")
	if existing := res.Key("Font"); existing.Kind() == pdf.Dict {
		for _, key := range existing.Keys() {
			fmt.Fprintf(&buf, " /%s %s", key, incpdf.SerializeValue(existing.Key(key), existing.GetPtr()))
		}
	}
	for name, id := range r.added {
		fmt.Fprintf(&buf, " /%s %d 0 R", name, id)
	}
	buf.WriteString(" >> >>\n")
	buf.WriteString(">>")

	return r.u.UpdateObject(page.GetPtr().GetID(), buf.Bytes())
}

// effectiveResources resolves the page's resource dictionary, consulting
// ancestors for the inheritable attribute.
func effectiveResources(page pdf.Value) pdf.Value {
	for node := page; !node.IsNull(); node = node.Key("Parent") {
		if res := node.Key("Resources"); res.Kind() == pdf.Dict {
			return res
		}
	}
	return pdf.Value{}
}
