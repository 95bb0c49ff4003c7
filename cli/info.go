package cli

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	esignature "github.com/keboola/esignature"
	"github.com/keboola/esignature/identity"
)

// InfoCommand prints facts about a document or a certificate archive:
// page count for a PDF, signer details for a PKCS#12 file.
func InfoCommand(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	var passphrase string
	fs.StringVarP(&passphrase, "passphrase", "p", "", "PKCS#12 passphrase")
	fs.Usage = func() { printInfoUsage(os.Stderr) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: missing file argument", ErrInvalidArgs)
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cli: read file: %w", err)
	}

	if isPDF(data) {
		return printDocumentInfo(os.Stdout, data)
	}
	return printIdentityInfo(os.Stdout, data, passphrase)
}

func isPDF(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

func printDocumentInfo(w io.Writer, data []byte) error {
	pages, err := esignature.PageCount(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Pages: %d\n", pages)
	return nil
}

func printIdentityInfo(w io.Writer, p12 []byte, passphrase string) error {
	id, err := identity.Load(p12, passphrase)
	if err != nil {
		return err
	}
	info := id.CertificateInfo()
	fmt.Fprintf(w, "Signer: %s\n", id.Name())
	fmt.Fprintf(w, "Initials: %s\n", identity.Initials(id.Name()))
	if info.SubjectOrg != "" {
		fmt.Fprintf(w, "Organization: %s\n", info.SubjectOrg)
	}
	fmt.Fprintf(w, "Issuer: %s\n", info.IssuerCN)
	fmt.Fprintf(w, "Valid from: %s\n", info.ValidFrom)
	fmt.Fprintf(w, "Valid until: %s\n", info.ValidTo)
	fmt.Fprintf(w, "Serial number: %s\n", info.SerialNumber)
	return nil
}
