package esignature

import (
	"fmt"

	"github.com/keboola/esignature/render"
)

// Kind selects the visual treatment of a placement. Every placement gets a
// cryptographic signature; the kind only changes what is drawn on the page.
type Kind int

const (
	// Signature is the full mark: name, timestamp and attribution lines.
	Signature Kind = iota
	// Initials is the compact mark with the signer's initials.
	Initials
)

func (k Kind) String() string {
	switch k {
	case Signature:
		return "signature"
	case Initials:
		return "initials"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Default mark sizes in PDF points.
const (
	SignatureWidth  = 150.0
	SignatureHeight = 50.0
	InitialsWidth   = 50.0
	InitialsHeight  = 35.0
)

// Placement positions one mark on a page. X and Y are the lower-left
// corner of the box in PDF points, origin at the page's bottom-left.
// Width and Height override the kind's default size when positive.
type Placement struct {
	Page   int
	X      float64
	Y      float64
	Kind   Kind
	Width  float64
	Height float64
}

// resolve fills in the kind's default dimensions.
func (p Placement) resolve() render.Rect {
	rect := render.Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
	if rect.Width <= 0 || rect.Height <= 0 {
		switch p.Kind {
		case Initials:
			rect.Width, rect.Height = InitialsWidth, InitialsHeight
		default:
			rect.Width, rect.Height = SignatureWidth, SignatureHeight
		}
	}
	return rect
}

// validatePlacements checks the whole list once at pipeline entry; later
// stages trust it.
func validatePlacements(placements []Placement, pageCount int) error {
	if len(placements) == 0 {
		return &ValidationError{Err: errNoPlacements}
	}
	for i, p := range placements {
		if p.Page < 0 || p.Page >= pageCount {
			return &ValidationError{
				Err: fmt.Errorf("placement %d: page %d out of range, document has %d pages", i, p.Page, pageCount),
			}
		}
		if p.Width < 0 || p.Height < 0 {
			return &ValidationError{
				Err: fmt.Errorf("placement %d: negative dimensions %gx%g", i, p.Width, p.Height),
			}
		}
	}
	return nil
}

// TopFromBottom converts a bottom-left box origin to the distance of the
// box's top edge from the top of the page.
func TopFromBottom(pageHeight, y, height float64) float64 {
	return pageHeight - y - height
}

// BottomFromTop converts a top-edge distance back to the bottom-left box
// origin. It is the inverse of TopFromBottom.
func BottomFromTop(pageHeight, top, height float64) float64 {
	return pageHeight - top - height
}
