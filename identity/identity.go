// Package identity loads signing identities from PKCS#12 archives and
// exposes the certificate attributes the signing pipeline and its callers
// need for display purposes.
package identity

import (
	"crypto"
	"crypto/x509"
	"fmt"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// CredentialError indicates that a PKCS#12 archive could not be turned into
// a usable signing identity: wrong passphrase, malformed archive, or a key
// type that cannot sign.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return "credential: " + e.Err.Error()
}

func (e *CredentialError) Unwrap() error { return e.Err }

// Identity is a signing identity decoded from a PKCS#12 archive. It is
// immutable once loaded and owned by a single pipeline invocation.
type Identity struct {
	Signer      crypto.Signer
	Certificate *x509.Certificate
	CACerts     []*x509.Certificate
}

// Load decodes a PKCS#12 archive with the given passphrase.
func Load(archive []byte, passphrase string) (*Identity, error) {
	key, cert, caCerts, err := pkcs12.DecodeChain(archive, passphrase)
	if err != nil {
		return nil, &CredentialError{Err: fmt.Errorf("decode PKCS#12 archive: %w", err)}
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, &CredentialError{Err: fmt.Errorf("private key of type %T cannot sign", key)}
	}

	return &Identity{
		Signer:      signer,
		Certificate: cert,
		CACerts:     caCerts,
	}, nil
}

// Name returns the subject common name of the signing certificate. It falls
// back to the literal "Unknown" when the certificate carries no common name;
// the fallback is display-only and has no effect on signing.
func (id *Identity) Name() string {
	if cn := id.Certificate.Subject.CommonName; cn != "" {
		return cn
	}
	return "Unknown"
}

// Chains returns the certificate chain in the layout the signer expects:
// the leaf first, followed by any CA certificates from the archive.
func (id *Identity) Chains() [][]*x509.Certificate {
	chain := make([]*x509.Certificate, 0, len(id.CACerts)+1)
	chain = append(chain, id.Certificate)
	chain = append(chain, id.CACerts...)
	return [][]*x509.Certificate{chain}
}

// NameFromP12 extracts the signer display name from a PKCS#12 archive.
// Any failure yields "Unknown"; callers that need the error use Load.
func NameFromP12(archive []byte, passphrase string) string {
	id, err := Load(archive, passphrase)
	if err != nil {
		return "Unknown"
	}
	return id.Name()
}
