// Package render burns visual signature and initials marks into page
// content and appends the signing protocol page. Everything it produces is
// a plain incremental update; the cryptographic signature applied afterward
// covers the rendered output.
package render

import (
	"time"

	"github.com/keboola/esignature/fonts"
)

// RenderError reports a failure while producing visual output.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string { return "render: " + e.Err.Error() }

func (e *RenderError) Unwrap() error { return e.Err }

// Rect is a placement box in PDF point space with a bottom-left origin.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Attribution is the line printed beneath signature marks and in the
// protocol page footer.
const Attribution = "github.com/keboola/esignature"

// Style configures mark rendering.
type Style struct {
	// Ornamental, when set, is the script-style font for the signer name
	// line. A nil font or one that fails to load falls back to Helvetica.
	Ornamental *fonts.Font

	// Now supplies the signing time; nil means time.Now.
	Now func() time.Time
}

func (s Style) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// timestamp renders the local time with timezone abbreviation for the
// signature mark's second line.
func timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05 MST")
}
