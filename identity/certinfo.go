package identity

import (
	"fmt"
	"time"
)

// certDateLayout renders certificate validity bounds for display,
// e.g. "02.01.2006 15:04".
const certDateLayout = "02.01.2006 15:04"

// CertificateInfo is the display record for a signing certificate. All
// fields are preformatted strings so the UI layer and the protocol page can
// render them without further interpretation.
type CertificateInfo struct {
	SubjectCN      string
	SubjectOrg     string
	SubjectCountry string
	IssuerCN       string
	IssuerOrg      string
	ValidFrom      string
	ValidTo        string
	SerialNumber   string
}

// CertificateInfo extracts the display record from the signing certificate.
// Missing common names fall back to "Unknown", missing organizations and
// countries to the empty string. The serial number renders as uppercase hex
// without a leading "0x".
func (id *Identity) CertificateInfo() CertificateInfo {
	cert := id.Certificate

	info := CertificateInfo{
		SubjectCN: "Unknown",
		IssuerCN:  "Unknown",
		ValidFrom: formatCertDate(cert.NotBefore),
		ValidTo:   formatCertDate(cert.NotAfter),
	}

	if cn := cert.Subject.CommonName; cn != "" {
		info.SubjectCN = cn
	}
	if len(cert.Subject.Organization) > 0 {
		info.SubjectOrg = cert.Subject.Organization[0]
	}
	if len(cert.Subject.Country) > 0 {
		info.SubjectCountry = cert.Subject.Country[0]
	}
	if cn := cert.Issuer.CommonName; cn != "" {
		info.IssuerCN = cn
	}
	if len(cert.Issuer.Organization) > 0 {
		info.IssuerOrg = cert.Issuer.Organization[0]
	}
	if cert.SerialNumber != nil {
		info.SerialNumber = fmt.Sprintf("%X", cert.SerialNumber)
	}

	return info
}

func formatCertDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(certDateLayout)
}
