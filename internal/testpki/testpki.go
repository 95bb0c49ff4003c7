// Package testpki generates throwaway certificate hierarchies and PKCS#12
// archives for tests.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// KeyProfile selects the key algorithm used throughout a hierarchy.
type KeyProfile string

const (
	RSA_2048   KeyProfile = "RSA_2048"
	ECDSA_P256 KeyProfile = "ECDSA_P256"
	ECDSA_P384 KeyProfile = "ECDSA_P384"
)

// TestPKI is a root CA with one intermediate and helpers to mint leaf
// signing identities below it.
type TestPKI struct {
	T                *testing.T
	RootKey          crypto.Signer
	RootCert         *x509.Certificate
	IntermediateKey  crypto.Signer
	IntermediateCert *x509.Certificate
	Profile          KeyProfile
}

// New builds a fresh hierarchy with RSA 2048 keys.
func New(t *testing.T) *TestPKI {
	return NewWithProfile(t, RSA_2048)
}

func NewWithProfile(t *testing.T, profile KeyProfile) *TestPKI {
	t.Helper()

	rootKey := GenerateKey(t, profile)
	rootTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "eSignature Test Root CA",
			Organization: []string{"eSignature Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SubjectKeyId:          []byte{1, 2, 3, 4},
	}
	rootCert := createCert(t, rootTemplate, rootTemplate, rootKey.Public(), rootKey)

	intermediateKey := GenerateKey(t, profile)
	intermediateTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			CommonName:   "eSignature Test Intermediate CA",
			Organization: []string{"eSignature Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		SubjectKeyId:          []byte{5, 6, 7, 8},
		AuthorityKeyId:        rootCert.SubjectKeyId,
	}
	intermediateCert := createCert(t, intermediateTemplate, rootCert, intermediateKey.Public(), rootKey)

	return &TestPKI{
		T:                t,
		RootKey:          rootKey,
		RootCert:         rootCert,
		IntermediateKey:  intermediateKey,
		IntermediateCert: intermediateCert,
		Profile:          profile,
	}
}

// Leaf mints an end-entity signing certificate below the intermediate.
func (p *TestPKI) Leaf(commonName string) (crypto.Signer, *x509.Certificate) {
	p.T.Helper()

	key := GenerateKey(p.T, p.Profile)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"eSignature Test Org"},
			Country:      []string{"CZ"},
		},
		NotBefore:      time.Now().Add(-1 * time.Hour),
		NotAfter:       time.Now().Add(24 * time.Hour),
		KeyUsage:       x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		ExtKeyUsage:    []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
		SubjectKeyId:   []byte{9, 10, 11, 12},
		AuthorityKeyId: p.IntermediateCert.SubjectKeyId,
	}
	cert := createCert(p.T, template, p.IntermediateCert, key.Public(), p.IntermediateKey)
	return key, cert
}

// P12 mints a leaf identity and packs it into a PKCS#12 archive together
// with the CA chain.
func (p *TestPKI) P12(commonName, password string) []byte {
	p.T.Helper()

	key, cert := p.Leaf(commonName)
	archive, err := pkcs12.Modern.Encode(key, cert, []*x509.Certificate{p.IntermediateCert, p.RootCert}, password)
	if err != nil {
		p.T.Fatalf("encode pkcs12: %v", err)
	}
	return archive
}

// GenerateKey creates a private key for the given profile.
func GenerateKey(t *testing.T, profile KeyProfile) crypto.Signer {
	t.Helper()

	var key crypto.Signer
	var err error
	switch profile {
	case RSA_2048:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	case ECDSA_P256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case ECDSA_P384:
		key, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	default:
		t.Fatalf("unknown key profile %q", profile)
	}
	if err != nil {
		t.Fatalf("generate %s key: %v", profile, err)
	}
	return key
}

func createCert(t *testing.T, template, parent *x509.Certificate, pub crypto.PublicKey, signer crypto.Signer) *x509.Certificate {
	t.Helper()

	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, signer)
	if err != nil {
		t.Fatalf("create certificate %q: %v", template.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate %q: %v", template.Subject.CommonName, err)
	}
	return cert
}
