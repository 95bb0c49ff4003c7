package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	esignature "github.com/keboola/esignature"
)

var (
	ErrEmptyJob        = errors.New("cli: job file is empty")
	ErrNoPlacements    = errors.New("cli: job defines no placements")
	ErrUnknownMarkKind = errors.New("cli: unknown placement kind")
)

// PlacementConfig is one signature or initials mark in a job file.
// Coordinates are PDF points from the bottom-left page corner; pages
// are numbered from 1 in job files.
type PlacementConfig struct {
	Page   int     `yaml:"page"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Kind   string  `yaml:"kind"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// TSAConfig configures an RFC 3161 timestamp authority.
type TSAConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Job describes one signing run. Flags may override the scalar fields.
type Job struct {
	Input         string            `yaml:"input"`
	Output        string            `yaml:"output"`
	Certificate   string            `yaml:"certificate"`
	Passphrase    string            `yaml:"passphrase"`
	PassphraseEnv string            `yaml:"passphrase_env"`
	Reason        string            `yaml:"reason"`
	Location      string            `yaml:"location"`
	Font          string            `yaml:"font"`
	ProtocolPage  bool              `yaml:"protocol_page"`
	Lock          bool              `yaml:"lock"`
	TSA           TSAConfig         `yaml:"tsa"`
	Placements    []PlacementConfig `yaml:"placements"`
}

// LoadJob reads and parses a YAML job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: read job file: %w", err)
	}
	return ParseJob(data)
}

// ParseJob parses job YAML.
func ParseJob(data []byte) (*Job, error) {
	if len(data) == 0 {
		return nil, ErrEmptyJob
	}
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("cli: parse job file: %w", err)
	}
	return &job, nil
}

// passphrase resolves the PKCS#12 passphrase, preferring the
// environment variable over the inline value.
func (j *Job) passphrase() string {
	if j.PassphraseEnv != "" {
		if v, ok := os.LookupEnv(j.PassphraseEnv); ok {
			return v
		}
	}
	return j.Passphrase
}

// placements converts job placements to library placements,
// translating 1-based page numbers to 0-based indexes.
func (j *Job) placements() ([]esignature.Placement, error) {
	out := make([]esignature.Placement, 0, len(j.Placements))
	for _, p := range j.Placements {
		kind, err := parseKind(p.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, esignature.Placement{
			Page:   p.Page - 1,
			X:      p.X,
			Y:      p.Y,
			Kind:   kind,
			Width:  p.Width,
			Height: p.Height,
		})
	}
	return out, nil
}

func parseKind(s string) (esignature.Kind, error) {
	switch s {
	case "", "signature":
		return esignature.Signature, nil
	case "initials":
		return esignature.Initials, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMarkKind, s)
	}
}
