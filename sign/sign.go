// Package sign applies PKCS#7 detached digital signatures to PDF documents
// as incremental updates. Each call adds one signature field with a widget
// annotation on the target page; signatures applied by earlier revisions
// stay intact and verifiable.
package sign

import (
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/digitorus/pkcs7"
)

// SigningError reports a failure while producing the cryptographic
// signature or embedding it into the document.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string { return "signing: " + e.Err.Error() }

func (e *SigningError) Unwrap() error { return e.Err }

// ErrFieldExists reports a signature field name already present in the
// document's form.
var ErrFieldExists = errors.New("signature field name already in use")

// TSA configures an RFC 3161 timestamp authority. An empty URL disables
// timestamping.
type TSA struct {
	URL      string
	Username string
	Password string
}

// SignData describes one signature to apply.
type SignData struct {
	Signer            crypto.Signer
	Certificate       *x509.Certificate
	CertificateChains [][]*x509.Certificate

	// DigestAlgorithm defaults to SHA-256.
	DigestAlgorithm crypto.Hash

	// FieldName is the form field name of the new signature field. It must
	// not collide with an existing field.
	FieldName string

	// Page is the zero-based page the widget is placed on.
	Page int

	// Rect is the widget rectangle [llx lly urx ury] in PDF points.
	Rect [4]float64

	Name        string
	Reason      string
	Location    string
	ContactInfo string

	// Date is the claimed signing time; the zero value means time.Now.
	Date time.Time

	TSA TSA

	// SignatureSizeOverride fixes the raw signature size estimate in bytes
	// instead of deriving it from the certificate's key.
	SignatureSizeOverride uint32
}

// placeholderTooSmallError signals that the reserved /Contents hex area
// could not hold the produced signature; needed is the required hex length.
type placeholderTooSmallError struct {
	needed int
}

func (e *placeholderTooSmallError) Error() string {
	return fmt.Sprintf("signature placeholder too small, need %d hex characters", e.needed)
}

// Sign appends a signed revision of input and returns the complete new
// document. The ByteRange of the embedded signature covers everything but
// the signature contents themselves.
func Sign(input []byte, data SignData) ([]byte, error) {
	if data.Certificate == nil {
		return nil, &SigningError{Err: errNilCertificate}
	}
	if data.Signer == nil {
		return nil, &SigningError{Err: errNilSigner}
	}
	if err := validateSignerCertificateMatch(data.Signer, data.Certificate); err != nil {
		return nil, &SigningError{Err: err}
	}
	if !data.DigestAlgorithm.Available() {
		data.DigestAlgorithm = crypto.SHA256
	}
	if data.Date.IsZero() {
		data.Date = time.Now()
	}

	maxLength, err := estimateSignatureLength(&data)
	if err != nil {
		return nil, &SigningError{Err: err}
	}

	// The estimate covers everything but variable-size structures like TSA
	// tokens; when the real signature overflows, grow and redo the update.
	for {
		out, err := signOnce(input, &data, maxLength)
		var tooSmall *placeholderTooSmallError
		if errors.As(err, &tooSmall) {
			maxLength = tooSmall.needed + 2
			continue
		}
		if err != nil {
			return nil, &SigningError{Err: err}
		}
		return out, nil
	}
}

// estimateSignatureLength computes the hex length reserved for /Contents
// from the sizes of the signature, digests and the certificate chain.
func estimateSignatureLength(data *SignData) (int, error) {
	length := hex.EncodedLen(512)

	sigSize := int(data.SignatureSizeOverride)
	if sigSize == 0 {
		var err error
		sigSize, err = publicKeySignatureSize(data.Certificate.PublicKey)
		if err != nil {
			sigSize = defaultSignatureSize
		}
	}
	length += hex.EncodedLen(sigSize)

	// Digest appears twice, as the file digest and in the signing
	// certificate attribute. The zero value falls back to SHA-256 like
	// Sign does; Size would panic on it.
	digest := data.DigestAlgorithm
	if !digest.Available() {
		digest = crypto.SHA256
	}
	length += hex.EncodedLen(digest.Size() * 2)

	degenerated, err := pkcs7.DegenerateCertificate(data.Certificate.Raw)
	if err != nil {
		return 0, fmt.Errorf("degenerate certificate: %w", err)
	}
	length += hex.EncodedLen(len(degenerated))
	length += hex.EncodedLen(len(data.Certificate.RawIssuer))

	for _, cert := range chainWithoutLeaf(data) {
		degenerated, err := pkcs7.DegenerateCertificate(cert.Raw)
		if err != nil {
			return 0, fmt.Errorf("degenerate chain certificate: %w", err)
		}
		length += hex.EncodedLen(len(degenerated))
	}

	// TSA response size is unknown until after signing.
	if data.TSA.URL != "" {
		length += hex.EncodedLen(9000)
	}

	return length, nil
}

// chainWithoutLeaf returns the first certificate chain minus the signing
// certificate itself, which pkcs7 adds on its own.
func chainWithoutLeaf(data *SignData) []*x509.Certificate {
	if len(data.CertificateChains) > 0 && len(data.CertificateChains[0]) > 1 {
		return data.CertificateChains[0][1:]
	}
	return nil
}
