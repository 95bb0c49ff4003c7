package cli

import (
	"errors"
	"testing"

	esignature "github.com/keboola/esignature"
)

const jobYAML = `
input: contract.pdf
output: contract-signed.pdf
certificate: signer.p12
passphrase_env: ESIGN_PASSPHRASE
reason: Contract approval
protocol_page: true
lock: true
tsa:
  url: https://tsa.example/tsr
placements:
  - page: 1
    x: 400
    y: 50
  - page: 2
    x: 50
    y: 700
    kind: initials
    width: 60
    height: 40
`

func TestParseJob(t *testing.T) {
	job, err := ParseJob([]byte(jobYAML))
	if err != nil {
		t.Fatalf("ParseJob: %v", err)
	}

	if job.Input != "contract.pdf" || job.Output != "contract-signed.pdf" {
		t.Errorf("paths = %q, %q", job.Input, job.Output)
	}
	if !job.ProtocolPage || !job.Lock {
		t.Error("boolean options not parsed")
	}
	if job.TSA.URL != "https://tsa.example/tsr" {
		t.Errorf("TSA URL = %q", job.TSA.URL)
	}
	if len(job.Placements) != 2 {
		t.Fatalf("got %d placements, want 2", len(job.Placements))
	}

	placements, err := job.placements()
	if err != nil {
		t.Fatalf("placements: %v", err)
	}
	// Job files use 1-based pages; the library is 0-based.
	if placements[0].Page != 0 || placements[0].Kind != esignature.Signature {
		t.Errorf("placement 0 = %+v", placements[0])
	}
	if placements[1].Page != 1 || placements[1].Kind != esignature.Initials {
		t.Errorf("placement 1 = %+v", placements[1])
	}
	if placements[1].Width != 60 || placements[1].Height != 40 {
		t.Errorf("placement 1 size = %vx%v", placements[1].Width, placements[1].Height)
	}
}

func TestParseJobEmpty(t *testing.T) {
	if _, err := ParseJob(nil); !errors.Is(err, ErrEmptyJob) {
		t.Errorf("error = %v, want ErrEmptyJob", err)
	}
}

func TestParseJobInvalidYAML(t *testing.T) {
	if _, err := ParseJob([]byte("placements: [broken")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    esignature.Kind
		wantErr bool
	}{
		{"", esignature.Signature, false},
		{"signature", esignature.Signature, false},
		{"initials", esignature.Initials, false},
		{"stamp", 0, true},
	}
	for _, tt := range tests {
		got, err := parseKind(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownMarkKind) {
				t.Errorf("parseKind(%q) error = %v, want ErrUnknownMarkKind", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseKind(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestPassphraseEnv(t *testing.T) {
	job := &Job{Passphrase: "inline", PassphraseEnv: "ESIGN_TEST_PASSPHRASE"}

	if got := job.passphrase(); got != "inline" {
		t.Errorf("unset env: passphrase = %q, want inline value", got)
	}

	t.Setenv("ESIGN_TEST_PASSPHRASE", "from-env")
	if got := job.passphrase(); got != "from-env" {
		t.Errorf("set env: passphrase = %q, want env value", got)
	}
}
