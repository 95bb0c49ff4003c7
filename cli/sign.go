package cli

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	esignature "github.com/keboola/esignature"
)

var ErrInvalidArgs = errors.New("cli: invalid arguments")

// signFlags holds flag overrides for the sign command. Zero values
// mean "keep the job file setting".
type signFlags struct {
	job        string
	output     string
	cert       string
	passphrase string
	reason     string
	location   string
	font       string
	protocol   bool
	noProtocol bool
	lock       bool
	tsaURL     string
}

func parseSignFlags(args []string) (*signFlags, []string, error) {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	f := &signFlags{}

	fs.StringVarP(&f.job, "job", "j", "", "YAML job file with placements")
	fs.StringVarP(&f.output, "output", "o", "", "output PDF path")
	fs.StringVarP(&f.cert, "certificate", "c", "", "PKCS#12 certificate path")
	fs.StringVarP(&f.passphrase, "passphrase", "p", "", "PKCS#12 passphrase")
	fs.StringVar(&f.reason, "reason", "", "signature reason")
	fs.StringVar(&f.location, "location", "", "signature location")
	fs.StringVar(&f.font, "font", "", "TrueType font for the signature name")
	fs.BoolVar(&f.protocol, "protocol", false, "append a signing protocol page")
	fs.BoolVar(&f.noProtocol, "no-protocol", false, "suppress the protocol page")
	fs.BoolVar(&f.lock, "lock", false, "encrypt the output with AES-256")
	fs.StringVar(&f.tsaURL, "tsa", "", "RFC 3161 timestamp authority URL")

	fs.Usage = func() { printSignUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

// buildJob merges the job file (if any) with flag overrides and the
// positional input path.
func buildJob(f *signFlags, args []string) (*Job, error) {
	job := &Job{}
	if f.job != "" {
		loaded, err := LoadJob(f.job)
		if err != nil {
			return nil, err
		}
		job = loaded
	}
	if len(args) > 0 {
		job.Input = args[0]
	}
	if f.output != "" {
		job.Output = f.output
	}
	if f.cert != "" {
		job.Certificate = f.cert
	}
	if f.passphrase != "" {
		job.Passphrase = f.passphrase
	}
	if f.reason != "" {
		job.Reason = f.reason
	}
	if f.location != "" {
		job.Location = f.location
	}
	if f.font != "" {
		job.Font = f.font
	}
	if f.protocol {
		job.ProtocolPage = true
	}
	if f.noProtocol {
		job.ProtocolPage = false
	}
	if f.lock {
		job.Lock = true
	}
	if f.tsaURL != "" {
		job.TSA.URL = f.tsaURL
	}

	if job.Input == "" {
		return nil, fmt.Errorf("%w: missing input PDF", ErrInvalidArgs)
	}
	if job.Output == "" {
		return nil, fmt.Errorf("%w: missing output path", ErrInvalidArgs)
	}
	if job.Certificate == "" {
		return nil, fmt.Errorf("%w: missing certificate path", ErrInvalidArgs)
	}
	if len(job.Placements) == 0 {
		return nil, ErrNoPlacements
	}
	return job, nil
}

// runSign executes a job: read inputs, sign, write the output.
func runSign(job *Job) error {
	document, err := os.ReadFile(job.Input)
	if err != nil {
		return fmt.Errorf("cli: read input: %w", err)
	}
	p12, err := os.ReadFile(job.Certificate)
	if err != nil {
		return fmt.Errorf("cli: read certificate: %w", err)
	}

	placements, err := job.placements()
	if err != nil {
		return err
	}

	opts := []esignature.Option{
		esignature.WithProtocolPage(job.ProtocolPage),
		esignature.WithLock(job.Lock),
	}
	if job.Reason != "" {
		opts = append(opts, esignature.WithReason(job.Reason))
	}
	if job.Location != "" {
		opts = append(opts, esignature.WithLocation(job.Location))
	}
	if job.Font != "" {
		ttf, err := os.ReadFile(job.Font)
		if err != nil {
			return fmt.Errorf("cli: read font: %w", err)
		}
		opts = append(opts, esignature.WithOrnamentalFont(ttf))
	}
	if job.TSA.URL != "" {
		opts = append(opts, esignature.WithTSA(job.TSA.URL, job.TSA.Username, job.TSA.Password))
	}

	signed, err := esignature.Sign(document, p12, job.passphrase(), placements, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(job.Output, signed, 0o644); err != nil {
		return fmt.Errorf("cli: write output: %w", err)
	}
	return nil
}

// SignCommand parses sign arguments and executes the job.
func SignCommand(args []string) error {
	f, rest, err := parseSignFlags(args)
	if err != nil {
		return err
	}
	job, err := buildJob(f, rest)
	if err != nil {
		return err
	}
	return runSign(job)
}
