package incpdf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/digitorus/pdf"
)

// ErrPageNotFound reports a page index outside the document's page tree.
var ErrPageNotFound = errors.New("incpdf: page not found")

// SerializeValue renders a parsed value back into PDF syntax. The reader
// stamps every direct value with the ptr of the object it lives in, so a
// ptr alone cannot tell a reference apart from an inline entry; owner is
// the ptr of the containing object, and only values resolved from a
// different object are written back as references. Replacement objects
// thus keep pointing at the original file instead of inlining (and
// possibly cycling through) their targets.
func SerializeValue(v pdf.Value, owner pdf.Ptr) string {
	if ptr := v.GetPtr(); ptr.GetID() > 0 && ptr != owner {
		return fmt.Sprintf("%d %d R", ptr.GetID(), ptr.GetGen())
	}

	switch v.Kind() {
	case pdf.Name:
		return "/" + v.Name()
	case pdf.Array:
		var b strings.Builder
		b.WriteString("[")
		for i := 0; i < v.Len(); i++ {
			b.WriteString(" " + SerializeValue(v.Index(i), v.GetPtr()))
		}
		b.WriteString(" ]")
		return b.String()
	case pdf.Dict:
		var b strings.Builder
		b.WriteString("<<")
		for _, key := range v.Keys() {
			b.WriteString(" /" + key + " " + SerializeValue(v.Key(key), v.GetPtr()))
		}
		b.WriteString(" >>")
		return b.String()
	default:
		return v.String()
	}
}

// FindPage resolves the zero-based page index to its page dictionary. The
// returned value carries the indirect pointer of the page object.
func FindPage(rdr *pdf.Reader, index int) (pdf.Value, error) {
	pages := rdr.Trailer().Key("Root").Key("Pages")
	page, _, err := findPageRec(pages, index+1)
	if err != nil {
		return pdf.Value{}, err
	}
	if page.Kind() == 0 {
		return pdf.Value{}, ErrPageNotFound
	}
	return page, nil
}

// findPageRec walks the page tree counting down leaf pages. It returns the
// remaining count when the target was not under this node.
func findPageRec(node pdf.Value, remaining int) (pdf.Value, int, error) {
	switch node.Key("Type").Name() {
	case "Page":
		if remaining == 1 {
			return node, 0, nil
		}
		return pdf.Value{}, remaining - 1, nil
	case "Pages":
		kids := node.Key("Kids")
		if kids.Kind() != pdf.Array {
			return pdf.Value{}, 0, ErrPageNotFound
		}
		for i := 0; i < kids.Len(); i++ {
			page, n, err := findPageRec(kids.Index(i), remaining)
			if err != nil {
				return pdf.Value{}, 0, err
			}
			if page.Kind() != 0 {
				return page, 0, nil
			}
			remaining = n
		}
		return pdf.Value{}, remaining, nil
	}
	return pdf.Value{}, remaining, nil
}

// MediaBox returns the page's media box, consulting ancestor nodes for the
// inheritable attribute. Pages without one get US Letter.
func MediaBox(page pdf.Value) [4]float64 {
	for node := page; !node.IsNull(); node = node.Key("Parent") {
		mb := node.Key("MediaBox")
		if mb.Kind() == pdf.Array && mb.Len() >= 4 {
			return [4]float64{
				mb.Index(0).Float64(),
				mb.Index(1).Float64(),
				mb.Index(2).Float64(),
				mb.Index(3).Float64(),
			}
		}
	}
	return [4]float64{0, 0, 612, 792}
}

// PageRef formats the indirect reference of a page value.
func PageRef(page pdf.Value) string {
	ptr := page.GetPtr()
	return fmt.Sprintf("%d %d R", ptr.GetID(), ptr.GetGen())
}
