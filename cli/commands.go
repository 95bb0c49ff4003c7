package cli

import (
	"fmt"
	"io"
	"os"
)

// Run dispatches a command line to the matching command.
func Run(args []string) error {
	if len(args) < 1 {
		printUsage(os.Stderr)
		return ErrInvalidArgs
	}
	switch args[0] {
	case "sign":
		return SignCommand(args[1:])
	case "info":
		return InfoCommand(args[1:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("%w: unknown command %q", ErrInvalidArgs, args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  sign    Sign a PDF with visual marks and digital signatures")
	fmt.Fprintln(w, "  info    Show document or certificate details")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Use '%s <command> --help' for command-specific help\n", os.Args[0])
}

func printSignUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s sign [options] <input.pdf>\n\n", os.Args[0])
	fmt.Fprintln(w, "Sign a PDF according to a YAML job file, with optional flag overrides.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s sign -j job.yaml\n", os.Args[0])
	fmt.Fprintf(w, "  %s sign -j job.yaml -o signed.pdf --lock contract.pdf\n", os.Args[0])
}

func printInfoUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s info [options] <file.pdf|file.p12>\n\n", os.Args[0])
	fmt.Fprintln(w, "Print page count for a PDF, or signer details for a PKCS#12 archive.")
}
