package sign

import (
	"bytes"
	"crypto"
	"encoding/asn1"
	"fmt"
	"io"
	"net/http"

	"github.com/digitorus/pkcs7"
	"github.com/digitorus/timestamp"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var hashOIDs = map[crypto.Hash]asn1.ObjectIdentifier{
	crypto.SHA1:   {1, 3, 14, 3, 2, 26},
	crypto.SHA256: {2, 16, 840, 1, 101, 3, 4, 2, 1},
	crypto.SHA384: {2, 16, 840, 1, 101, 3, 4, 2, 2},
	crypto.SHA512: {2, 16, 840, 1, 101, 3, 4, 2, 3},
}

// createSignature produces the detached PKCS#7 signature over content.
func createSignature(content []byte, data *SignData) ([]byte, error) {
	signedData, err := pkcs7.NewSignedData(content)
	if err != nil {
		return nil, fmt.Errorf("new signed data: %w", err)
	}
	signedData.SetDigestAlgorithm(hashOIDs[data.DigestAlgorithm])

	signingCertificate, err := signingCertificateAttribute(data)
	if err != nil {
		return nil, fmt.Errorf("signing certificate attribute: %w", err)
	}

	config := pkcs7.SignerInfoConfig{
		ExtraSignedAttributes: []pkcs7.Attribute{*signingCertificate},
	}

	if err := signedData.AddSignerChain(data.Certificate, data.Signer, chainWithoutLeaf(data), config); err != nil {
		return nil, fmt.Errorf("add signer chain: %w", err)
	}

	// PDF signatures are detached, the signed content stays in the file.
	signedData.Detach()

	if data.TSA.URL != "" {
		if err := addTimestampToken(signedData, data); err != nil {
			return nil, err
		}
	}

	return signedData.Finish()
}

// signingCertificateAttribute builds the ESS signing-certificate signed
// attribute (RFC 5035) binding the signature to the signer certificate's
// digest.
func signingCertificateAttribute(data *SignData) (*pkcs7.Attribute, error) {
	h := data.DigestAlgorithm.New()
	h.Write(data.Certificate.Raw)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SigningCertificateV2
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // certs
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ESSCertIDv2
				// SHA-256 is the DEFAULT for hashAlgorithm and is omitted.
				if data.DigestAlgorithm != crypto.SHA1 && data.DigestAlgorithm != crypto.SHA256 {
					b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
						b.AddASN1ObjectIdentifier(hashOIDs[data.DigestAlgorithm])
					})
				}
				b.AddASN1OctetString(h.Sum(nil))
			})
		})
	})

	encoded, err := b.Bytes()
	if err != nil {
		return nil, err
	}

	attr := pkcs7.Attribute{
		Type:  asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}, // SigningCertificateV2
		Value: asn1.RawValue{FullBytes: encoded},
	}
	if data.DigestAlgorithm == crypto.SHA1 {
		attr.Type = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 12} // SigningCertificate
	}
	return &attr, nil
}

// addTimestampToken requests an RFC 3161 token over the signature value and
// attaches it as an unauthenticated attribute.
func addTimestampToken(signedData *pkcs7.SignedData, data *SignData) error {
	inner := signedData.GetSignedData()

	response, err := requestTimestamp(data.TSA, inner.SignerInfos[0].EncryptedDigest)
	if err != nil {
		return fmt.Errorf("get timestamp: %w", err)
	}

	ts, err := timestamp.ParseResponse(response)
	if err != nil {
		return fmt.Errorf("parse timestamp: %w", err)
	}
	if _, err := pkcs7.Parse(ts.RawToken); err != nil {
		return fmt.Errorf("parse timestamp token: %w", err)
	}

	attr := pkcs7.Attribute{
		Type:  asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14},
		Value: asn1.RawValue{FullBytes: ts.RawToken},
	}
	return inner.SignerInfos[0].SetUnauthenticatedAttributes([]pkcs7.Attribute{attr})
}

func requestTimestamp(tsa TSA, signature []byte) ([]byte, error) {
	request, err := timestamp.CreateRequest(bytes.NewReader(signature), &timestamp.RequestOptions{
		Certificates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, tsa.URL, bytes.NewReader(request))
	if err != nil {
		return nil, fmt.Errorf("prepare request (%s): %w", tsa.URL, err)
	}
	req.Header.Add("Content-Type", "application/timestamp-query")
	req.Header.Add("Content-Transfer-Encoding", "binary")
	if tsa.Username != "" && tsa.Password != "" {
		req.SetBasicAuth(tsa.Username, tsa.Password)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("non success response (%d): %s", resp.StatusCode, body)
	}
	return body, nil
}
