// Package lock re-encrypts a finished document with AES-256 so that
// viewers enforce a restricted permission set. The owner password is
// random and discarded, which makes the restriction permanent; the empty
// user password keeps the document readable everywhere.
package lock

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/digitorus/pdf"
)

// LockError reports a failure while applying the document lock.
type LockError struct {
	Err error
}

func (e *LockError) Error() string { return "lock: " + e.Err.Error() }

func (e *LockError) Unwrap() error { return e.Err }

// ErrAlreadyEncrypted reports input that carries an encryption dictionary.
var ErrAlreadyEncrypted = errors.New("document is already encrypted")

// Options configures Apply. The zero value selects the defaults: empty
// user password, a random discarded owner password, and view-only
// permissions (print, copy, accessibility extraction).
type Options struct {
	// UserPassword is required to open the document. Usually empty.
	UserPassword string

	// OwnerPassword unlocks full permissions. Empty means a random
	// password that is never revealed.
	OwnerPassword string

	Permissions *Permissions
}

func defaultPermissions() Permissions {
	return Permissions{Print: true, Copy: true, ExtractAccessible: true}
}

// Apply rewrites input as an AES-256 encrypted document. This is a full
// re-serialization: the output is a single fresh revision and cannot be
// signed further.
func Apply(input []byte, opts Options) ([]byte, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return nil, &LockError{Err: fmt.Errorf("parse pdf: %w", err)}
	}
	if !rdr.Trailer().Key("Encrypt").IsNull() {
		return nil, &LockError{Err: ErrAlreadyEncrypted}
	}

	ownerPwd := []byte(opts.OwnerPassword)
	if len(ownerPwd) == 0 {
		random := make([]byte, 32)
		if _, err := rand.Read(random); err != nil {
			return nil, &LockError{Err: err}
		}
		ownerPwd = []byte(hex.EncodeToString(random))
	}

	perms := defaultPermissions()
	if opts.Permissions != nil {
		perms = *opts.Permissions
	}

	material, err := buildAES256([]byte(opts.UserPassword), ownerPwd, permissionsValue(perms), true)
	if err != nil {
		return nil, &LockError{Err: err}
	}

	r := newRewriter(rdr, input, material.Key)
	if err := r.run(); err != nil {
		return nil, &LockError{Err: err}
	}

	fileID := md5.Sum(input)
	out, err := r.finish(material, fileID[:])
	if err != nil {
		return nil, &LockError{Err: err}
	}
	return out, nil
}
