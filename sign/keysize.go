package sign

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
)

var (
	errNilSigner      = errors.New("signer cannot be nil")
	errNilCertificate = errors.New("certificate cannot be nil")
	errUnsupportedKey = errors.New("unsupported key type")
	errKeyMismatch    = errors.New("signer public key does not match certificate")
)

// defaultSignatureSize is the fallback for unrecognized key types.
const defaultSignatureSize = 8192

// publicKeySignatureSize returns the maximum signature size in bytes the
// key behind pub produces. The certificate's SignatureAlgorithm is not
// usable for this, it describes how the CA signed the certificate.
func publicKeySignatureSize(pub crypto.PublicKey) (int, error) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		if k.N == nil {
			return 0, fmt.Errorf("%w: RSA key has nil modulus", errUnsupportedKey)
		}
		return k.Size(), nil

	case *ecdsa.PublicKey:
		if k.Curve == nil {
			return 0, fmt.Errorf("%w: ECDSA key has nil curve", errUnsupportedKey)
		}
		// DER SEQUENCE { r INTEGER, s INTEGER }: two coordinates plus tag,
		// length and padding overhead.
		coordSize := (k.Curve.Params().BitSize + 7) / 8
		return 2*coordSize + 9, nil

	case ed25519.PublicKey:
		return ed25519.SignatureSize, nil

	default:
		return 0, fmt.Errorf("%w: %T", errUnsupportedKey, pub)
	}
}

// validateSignerCertificateMatch checks that the signer holds the private
// key for the certificate.
func validateSignerCertificateMatch(signer crypto.Signer, cert *x509.Certificate) error {
	if signer == nil {
		return errNilSigner
	}
	if cert == nil {
		return errNilCertificate
	}

	signerPub, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return fmt.Errorf("marshal signer public key: %w", err)
	}
	certPub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return fmt.Errorf("marshal certificate public key: %w", err)
	}
	if !bytes.Equal(signerPub, certPub) {
		return errKeyMismatch
	}
	return nil
}
