package esignature

import (
	"errors"

	"github.com/keboola/esignature/identity"
	"github.com/keboola/esignature/lock"
	"github.com/keboola/esignature/render"
	"github.com/keboola/esignature/sign"
)

// The pipeline surfaces the stage error types at the package root so
// callers can branch on the failing stage without importing each package.
type (
	// CredentialError reports an unreadable or mismatched PKCS#12 archive.
	CredentialError = identity.CredentialError
	// RenderError reports a failure while drawing visual marks or the
	// protocol page.
	RenderError = render.RenderError
	// SigningError reports a failure while applying a digital signature.
	SigningError = sign.SigningError
	// LockError reports a failure while encrypting the final document.
	LockError = lock.LockError
)

// ValidationError reports rejected pipeline input.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

var errNoPlacements = errors.New("at least one placement is required")
