package esignature

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/digitorus/pdf"

	"github.com/keboola/esignature/identity"
	"github.com/keboola/esignature/internal/testpdf"
	"github.com/keboola/esignature/internal/testpki"
)

var testClock = func() time.Time {
	return time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
}

func reopen(t *testing.T, data []byte) *pdf.Reader {
	t.Helper()
	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reopen document: %v", err)
	}
	return rdr
}

func fieldNames(t *testing.T, rdr *pdf.Reader) []string {
	t.Helper()
	var names []string
	fields := rdr.Trailer().Key("Root").Key("AcroForm").Key("Fields")
	for i := 0; i < fields.Len(); i++ {
		names = append(names, fields.Index(i).Key("T").RawString())
	}
	return names
}

func TestSignPipeline(t *testing.T) {
	pki := testpki.New(t)
	p12 := pki.P12("Jan Novák", "secret")
	document := testpdf.New(2)

	placements := []Placement{
		{Page: 0, X: 400, Y: 50, Kind: Signature},
		{Page: 1, X: 50, Y: 700, Kind: Initials},
	}

	out, err := Sign(document, p12, "secret", placements,
		WithProtocolPage(true),
		WithClock(testClock),
	)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	pages, err := PageCount(out)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if pages != 3 {
		t.Errorf("PageCount = %d, want 3 (2 original + protocol)", pages)
	}

	rdr := reopen(t, out)
	names := fieldNames(t, rdr)
	if len(names) != 2 || names[0] != "Signature_1" || names[1] != "Signature_2" {
		t.Errorf("field names = %v, want [Signature_1 Signature_2]", names)
	}

	for _, want := range []string{
		"1. Digital signature - page 1",
		"Initials - pages: 2",
		"Owner: Jan Novak",
		"(JN)",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output is missing %q", want)
		}
	}

	// Every signature names its reason and signer.
	sig := rdr.Trailer().Key("Root").Key("AcroForm").Key("Fields").Index(0).Key("V")
	if got := sig.Key("Reason").RawString(); got != DefaultReason {
		t.Errorf("Reason = %q, want %q", got, DefaultReason)
	}
	if got := sig.Key("Name").Text(); got != "Jan Novák" {
		t.Errorf("Name = %q, want %q", got, "Jan Novák")
	}
}

func TestSignWithoutProtocolPage(t *testing.T) {
	pki := testpki.New(t)
	p12 := pki.P12("Jan Novak", "pw")

	out, err := SignSingle(testpdf.New(1), p12, "pw", 0, 100, 100, WithClock(testClock))
	if err != nil {
		t.Fatalf("SignSingle: %v", err)
	}
	pages, err := PageCount(out)
	if err != nil {
		t.Fatalf("PageCount: %v", err)
	}
	if pages != 1 {
		t.Errorf("PageCount = %d, want 1", pages)
	}
	if bytes.Contains(out, []byte("Digital Signature Protocol")) {
		t.Error("protocol page appended without WithProtocolPage")
	}
}

func TestSignWithLock(t *testing.T) {
	pki := testpki.New(t)
	p12 := pki.P12("Jan Novak", "pw")

	out, err := SignSingle(testpdf.New(1), p12, "pw", 0, 100, 100,
		WithLock(true), WithClock(testClock))
	if err != nil {
		t.Fatalf("SignSingle with lock: %v", err)
	}
	if !bytes.Contains(out, []byte("/Encrypt")) {
		t.Error("locked output has no encryption dictionary")
	}
	if !bytes.Contains(out, []byte("/AESV3")) {
		t.Error("locked output does not use AES-256")
	}
}

func TestSignWrongPassphrase(t *testing.T) {
	pki := testpki.New(t)
	p12 := pki.P12("Jan Novak", "pw")

	_, err := SignSingle(testpdf.New(1), p12, "wrong", 0, 0, 0)
	var credErr *identity.CredentialError
	if !errors.As(err, &credErr) {
		t.Errorf("error type = %T, want *identity.CredentialError", err)
	}
}

func TestSignValidation(t *testing.T) {
	pki := testpki.New(t)
	p12 := pki.P12("Jan Novak", "pw")
	document := testpdf.New(2)

	t.Run("no placements", func(t *testing.T) {
		_, err := Sign(document, p12, "pw", nil)
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("error type = %T, want *ValidationError", err)
		}
	})

	t.Run("page out of range", func(t *testing.T) {
		_, err := Sign(document, p12, "pw", []Placement{{Page: 2}})
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("error type = %T, want *ValidationError", err)
		}
	})

	t.Run("negative dimensions", func(t *testing.T) {
		_, err := Sign(document, p12, "pw", []Placement{{Page: 0, Width: -10}})
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("error type = %T, want *ValidationError", err)
		}
	})

	t.Run("not a pdf", func(t *testing.T) {
		_, err := Sign([]byte("junk"), p12, "pw", []Placement{{Page: 0}})
		var valErr *ValidationError
		if !errors.As(err, &valErr) {
			t.Errorf("error type = %T, want *ValidationError", err)
		}
	})
}

func TestPlacementResolve(t *testing.T) {
	tests := []struct {
		name          string
		placement     Placement
		width, height float64
	}{
		{"signature defaults", Placement{Kind: Signature}, SignatureWidth, SignatureHeight},
		{"initials defaults", Placement{Kind: Initials}, InitialsWidth, InitialsHeight},
		{"override", Placement{Kind: Signature, Width: 200, Height: 80}, 200, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rect := tt.placement.resolve()
			if rect.Width != tt.width || rect.Height != tt.height {
				t.Errorf("resolve() = %vx%v, want %vx%v", rect.Width, rect.Height, tt.width, tt.height)
			}
		})
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	const pageHeight = 842.0
	for _, y := range []float64{0, 50, 400, 792} {
		top := TopFromBottom(pageHeight, y, 50)
		if got := BottomFromTop(pageHeight, top, 50); got != y {
			t.Errorf("round trip of %v = %v", y, got)
		}
	}
}

func TestKindString(t *testing.T) {
	if Signature.String() != "signature" || Initials.String() != "initials" {
		t.Errorf("Kind strings = %q, %q", Signature.String(), Initials.String())
	}
}

func TestPageCount(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		got, err := PageCount(testpdf.New(n))
		if err != nil {
			t.Fatalf("PageCount(%d pages): %v", n, err)
		}
		if got != n {
			t.Errorf("PageCount = %d, want %d", got, n)
		}
	}

	if _, err := PageCount([]byte("junk")); err == nil {
		t.Error("PageCount accepted junk")
	}
}
