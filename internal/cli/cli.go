// internal/cli/cli.go
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/dalemusser/mailcheck/app"
	"github.com/dalemusser/mailcheck/email"
	"github.com/dalemusser/mailcheck/logging"
	"github.com/dalemusser/mailcheck/pantry/export"
	"github.com/dalemusser/mailcheck/pantry/version"
	"github.com/dalemusser/mailcheck/report"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitInvalid = 2 // --strict and at least one input was invalid
)

// maxLineBytes bounds a single input line.
const maxLineBytes = 1 << 20

// Run is the entrypoint for the mailcheck binary.
//
// binName is the name shown in usage text; args exclude the binary name
// (os.Args[1:]). It returns a process exit code.
func Run(binName string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr, binName)
		return ExitError
	}

	switch args[0] {
	case "check":
		return checkCmd(binName, args[1:], stdin, stdout, stderr)
	case "providers":
		return providersCmd(binName, args[1:], stdout, stderr)
	case "serve":
		return serveCmd(args[1:], stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "%s %s\n", binName, version.Get())
		return ExitOK
	case "help", "-h", "--help":
		usage(stdout, binName)
		return ExitOK
	default:
		fmt.Fprintf(stderr, "unknown command: %q\n\n", args[0])
		usage(stderr, binName)
		return ExitError
	}
}

func usage(w io.Writer, binName string) {
	fmt.Fprintf(w, "%s validates, normalizes and classifies email addresses.\n", binName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s check [flags] [file]   check addresses, one per line (stdin when no file or \"-\")\n", binName)
	fmt.Fprintf(w, "  %s providers [flags]      list known personal email providers\n", binName)
	fmt.Fprintf(w, "  %s serve [flags]          run the HTTP API\n", binName)
	fmt.Fprintf(w, "  %s version                print version information\n", binName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s check --format csv signups.txt > report.csv\n", binName)
	fmt.Fprintf(w, "  %s check --column email --format xlsx --output report.xlsx contacts.csv\n", binName)
	fmt.Fprintf(w, "  %s check --valid-only --normalize < list.txt\n", binName)
}

type checkOptions struct {
	format    string
	output    string
	column    string
	tab       bool
	validOnly bool
	normalize bool
	strict    bool
	logLevel  string
}

func checkCmd(binName string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts checkOptions
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.format, "format", "text", "output format: text, csv, json or xlsx")
	fs.StringVarP(&opts.output, "output", "o", "", "write the report to this file (required for xlsx)")
	fs.StringVar(&opts.column, "column", "", "read addresses from this column of a CSV input")
	fs.BoolVar(&opts.tab, "tab", false, "CSV input is tab-delimited (with --column)")
	fs.BoolVar(&opts.validOnly, "valid-only", false, "print only the valid addresses, one per line (text format only)")
	fs.BoolVar(&opts.normalize, "normalize", false, "with --valid-only, print normalized addresses")
	fs.BoolVar(&opts.strict, "strict", false, fmt.Sprintf("exit %d if any address is invalid", ExitInvalid))
	fs.StringVar(&opts.logLevel, "log_level", "warn", "log level")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s check [flags] [file]\n", binName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitError
	}

	logger, err := logging.NewLogger(opts.logLevel, "dev", stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return ExitError
	}
	defer logger.Sync()

	switch opts.format {
	case "text", "csv", "json":
	case "xlsx":
		if opts.output == "" {
			fmt.Fprintln(stderr, "error: --format xlsx requires --output")
			return ExitError
		}
	default:
		fmt.Fprintf(stderr, "error: unknown format %q\n", opts.format)
		return ExitError
	}
	if opts.validOnly && opts.format != "text" {
		fmt.Fprintf(stderr, "error: --valid-only prints a plain list and cannot be combined with --format %s\n", opts.format)
		return ExitError
	}
	if opts.normalize && !opts.validOnly {
		fmt.Fprintln(stderr, "error: --normalize requires --valid-only")
		return ExitError
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "error: at most one input file")
		return ExitError
	}

	src := "-"
	if fs.NArg() == 1 {
		src = fs.Arg(0)
	}
	inputs, err := readInputs(src, stdin, opts)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return ExitError
	}
	logger.Debug("inputs read", zap.String("source", src), zap.Int("count", len(inputs)))

	entries := report.Build(inputs)
	summary := report.Summarize(entries)
	logger.Info("check complete",
		zap.Int("total", summary.Total),
		zap.Int("valid", summary.Valid),
		zap.Int("invalid", summary.Invalid),
	)

	if err := writeReport(stdout, entries, summary, inputs, opts); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return ExitError
	}

	if opts.strict && summary.Invalid > 0 {
		return ExitInvalid
	}
	return ExitOK
}

// readInputs returns one input per non-blank line, or the values of
// opts.column when reading CSV.
func readInputs(src string, stdin io.Reader, opts checkOptions) ([]string, error) {
	r := stdin
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	if opts.column != "" {
		cr := export.ReadCSV(r)
		if opts.tab {
			cr.TabDelimited()
		}
		values, err := cr.Column(opts.column)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		return values, nil
	}

	var inputs []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	return inputs, nil
}

func writeReport(stdout io.Writer, entries []report.Entry, summary report.Summary, inputs []string, opts checkOptions) error {
	if opts.format == "xlsx" {
		x := export.EntriesExcel(entries, summary)
		defer x.Close()
		return x.Save(opts.output)
	}
	if opts.output == "" {
		return renderReport(stdout, entries, summary, inputs, opts)
	}

	f, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	if err := renderReport(f, entries, summary, inputs, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func renderReport(w io.Writer, entries []report.Entry, summary report.Summary, inputs []string, opts checkOptions) error {
	if opts.validOnly {
		list := email.FilterValid(inputs)
		if opts.normalize {
			list = email.NormalizeAll(inputs)
		}
		for _, s := range list {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	}

	switch opts.format {
	case "csv":
		return export.Entries(entries).UseLF().Write(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Results []report.Entry `json:"results"`
			Summary report.Summary `json:"summary"`
		}{entries, summary})
	default:
		return writeText(w, entries, summary)
	}
}

func writeText(w io.Writer, entries []report.Entry, summary report.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		if !e.Valid {
			fmt.Fprintf(tw, "invalid\t%s\t\n", e.Input)
			continue
		}
		fmt.Fprintf(tw, "valid\t%s\t%s\n", e.Normalized, e.Provider)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d checked, %d valid, %d invalid, %d personal\n",
		summary.Total, summary.Valid, summary.Invalid, summary.Personal)
	return err
}

func providersCmd(binName string, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("providers", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "text", "output format: text, csv or json")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s providers [flags]\n", binName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		return ExitError
	}

	providers := email.Providers()
	var err error
	switch *format {
	case "text":
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DOMAIN\tPROVIDER")
		for _, p := range providers {
			fmt.Fprintf(tw, "%s\t%s\n", p.Domain, p.Name)
		}
		err = tw.Flush()
	case "csv":
		c := export.NewCSV().UseLF().Headers("domain", "provider")
		for _, p := range providers {
			c.Row(p.Domain, p.Name)
		}
		err = c.Write(stdout)
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(providers)
	default:
		fmt.Fprintf(stderr, "error: unknown format %q\n", *format)
		return ExitError
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return ExitError
	}
	return ExitOK
}

func serveCmd(args []string, stderr io.Writer) int {
	if err := app.Run(context.Background(), args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintln(stderr, "error:", err)
		return ExitError
	}
	return ExitOK
}
