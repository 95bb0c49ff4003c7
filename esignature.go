// Package esignature signs PDF documents with visual signature marks
// backed by cryptographically valid digital signatures.
//
// The pipeline loads a PKCS#12 signing identity, optionally appends a
// protocol page summarizing the run, then for each placement burns a
// visual mark into the page and applies a PKCS#7 detached signature as an
// incremental update, and finally may lock the result against editing.
package esignature

import (
	"bytes"
	"fmt"
	"time"

	"github.com/digitorus/pdf"

	"github.com/keboola/esignature/fonts"
	"github.com/keboola/esignature/identity"
	"github.com/keboola/esignature/lock"
	"github.com/keboola/esignature/render"
	"github.com/keboola/esignature/sign"
)

// DefaultReason is the signature reason recorded when none is configured.
const DefaultReason = "Electronically signed"

type config struct {
	protocolPage bool
	lockDocument bool
	reason       string
	location     string
	ornamental   *fonts.Font
	tsa          sign.TSA
	now          func() time.Time
}

// Option configures a signing run.
type Option func(*config)

// WithProtocolPage appends the signing protocol page before any placement
// is processed.
func WithProtocolPage(enabled bool) Option {
	return func(c *config) { c.protocolPage = enabled }
}

// WithLock encrypts the final document with view-only permissions after
// all signatures are applied.
func WithLock(enabled bool) Option {
	return func(c *config) { c.lockDocument = enabled }
}

// WithReason sets the signature reason recorded in each signature
// dictionary.
func WithReason(reason string) Option {
	return func(c *config) { c.reason = reason }
}

// WithLocation sets the signing location recorded in each signature
// dictionary.
func WithLocation(location string) Option {
	return func(c *config) { c.location = location }
}

// WithOrnamentalFont supplies a TrueType font program for the script-style
// name line of signature marks. An unparseable font is ignored and the
// marks fall back to Helvetica.
func WithOrnamentalFont(ttf []byte) Option {
	return func(c *config) {
		f, err := fonts.TrueType("Ornamental", ttf)
		if err != nil {
			return
		}
		c.ornamental = f
	}
}

// WithTSA timestamps each signature through the given RFC 3161 authority.
func WithTSA(url, username, password string) Option {
	return func(c *config) {
		c.tsa = sign.TSA{URL: url, Username: username, Password: password}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Sign runs the whole pipeline over document: load the identity from the
// PKCS#12 archive, optionally append the protocol page, apply every
// placement as a visual mark plus digital signature, and optionally lock
// the result. It returns the fully processed document or an error; no
// partially signed output is ever returned.
func Sign(document, p12 []byte, passphrase string, placements []Placement, opts ...Option) ([]byte, error) {
	cfg := config{reason: DefaultReason, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	id, err := identity.Load(p12, passphrase)
	if err != nil {
		return nil, err
	}

	pageCount, err := PageCount(document)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	if err := validatePlacements(placements, pageCount); err != nil {
		return nil, err
	}

	if cfg.protocolPage {
		entries := make([]render.ProtocolEntry, len(placements))
		for i, p := range placements {
			entries[i] = render.ProtocolEntry{Initials: p.Kind == Initials, Page: p.Page}
		}
		document, err = render.AppendProtocolPage(document, render.ProtocolData{
			SignerName:  id.Name(),
			Certificate: id.CertificateInfo(),
			Entries:     entries,
			Now:         cfg.now,
		})
		if err != nil {
			return nil, err
		}
	}

	style := render.Style{Ornamental: cfg.ornamental, Now: cfg.now}

	for i, p := range placements {
		rect := p.resolve()

		switch p.Kind {
		case Initials:
			document, err = render.ApplyInitialsMark(document, p.Page, rect, id.Name(), style)
		default:
			document, err = render.ApplySignatureMark(document, p.Page, rect, id.Name(), style)
		}
		if err != nil {
			return nil, err
		}

		document, err = sign.Sign(document, sign.SignData{
			Signer:            id.Signer,
			Certificate:       id.Certificate,
			CertificateChains: id.Chains(),
			FieldName:         fmt.Sprintf("Signature_%d", i+1),
			Page:              p.Page,
			Rect:              [4]float64{rect.X, rect.Y, rect.X + rect.Width, rect.Y + rect.Height},
			Name:              id.Name(),
			Reason:            cfg.reason,
			Location:          cfg.location,
			Date:              cfg.now(),
			TSA:               cfg.tsa,
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.lockDocument {
		document, err = lock.Apply(document, lock.Options{})
		if err != nil {
			return nil, err
		}
	}

	return document, nil
}

// SignSingle places one full signature mark at (x, y) on page and signs it.
func SignSingle(document, p12 []byte, passphrase string, page int, x, y float64, opts ...Option) ([]byte, error) {
	return Sign(document, p12, passphrase, []Placement{{Page: page, X: x, Y: y, Kind: Signature}}, opts...)
}

// PageCount returns the number of pages in the document.
func PageCount(document []byte) (int, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return 0, err
	}
	return rdr.NumPage(), nil
}
