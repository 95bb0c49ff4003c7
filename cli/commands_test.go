package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/keboola/esignature/internal/testpdf"
	"github.com/keboola/esignature/internal/testpki"
)

func TestRunUnknownCommand(t *testing.T) {
	if err := Run([]string{"frobnicate"}); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("error = %v, want ErrInvalidArgs", err)
	}
	if err := Run(nil); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("error = %v, want ErrInvalidArgs", err)
	}
}

func TestRunHelp(t *testing.T) {
	if err := Run([]string{"help"}); err != nil {
		t.Errorf("help returned %v", err)
	}
}

func TestInfoCommandPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(path, testpdf.New(3), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := Run([]string{"info", path}); err != nil {
		t.Errorf("info on a PDF: %v", err)
	}
}

func TestInfoCommandP12(t *testing.T) {
	dir := t.TempDir()
	pki := testpki.New(t)
	path := filepath.Join(dir, "signer.p12")
	if err := os.WriteFile(path, pki.P12("Jan Novak", "pw"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := Run([]string{"info", "--passphrase", "pw", path}); err != nil {
		t.Errorf("info on a PKCS#12 archive: %v", err)
	}
	if err := Run([]string{"info", "--passphrase", "wrong", path}); err == nil {
		t.Error("wrong passphrase should fail")
	}
}

func TestInfoCommandMissingArg(t *testing.T) {
	if err := Run([]string{"info"}); !errors.Is(err, ErrInvalidArgs) {
		t.Errorf("error = %v, want ErrInvalidArgs", err)
	}
}
