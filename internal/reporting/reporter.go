// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/observability"
)

// Supported output formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJUnit = "junit"
	FormatSARIF = "sarif"
)

// Formats lists every format New accepts.
var Formats = []string{FormatText, FormatJSON, FormatJUnit, FormatSARIF}

// Exit codes returned by ExitCode.
const (
	ExitPassed  = 0
	ExitFailed  = 1
	ExitErrored = 2
)

// Reporter renders sealed run reports to an output.
type Reporter interface {
	// Write renders a single sealed report.
	Write(report *schemas.RunReport) error
	// Close finalizes the output and closes any underlying file handle.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

type options struct {
	toolVersion string
	logger      *zap.Logger
}

// Option configures a reporter built by New.
type Option func(*options)

// WithToolVersion sets the version recorded in SARIF and JUnit output.
func WithToolVersion(v string) Option {
	return func(o *options) { o.toolVersion = v }
}

// WithLogger overrides the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath string, opts ...Option) (Reporter, error) {
	o := options{toolVersion: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.GetLogger()
	}

	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatText, FormatJSON, FormatJUnit, FormatSARIF:
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}

	writer, err := openOutput(outputPath)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatText:
		return NewTextReporter(writer), nil
	case FormatJSON:
		return NewJSONReporter(writer), nil
	case FormatJUnit:
		return NewJUnitReporter(writer, o.logger), nil
	default:
		return NewSARIFReporter(writer, o.toolVersion, o.logger), nil
	}
}

func openOutput(outputPath string) (io.WriteCloser, error) {
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		return &nopWriteCloser{os.Stdout}, nil
	}
	expanded, err := homedir.Expand(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand output path %s: %w", outputPath, err)
	}
	f, err := os.Create(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", expanded, err)
	}
	return f, nil
}

// ExitCode maps a report onto a process exit status. Errored wins over
// Failed, matching how scenario statuses are derived.
func ExitCode(report *schemas.RunReport) int {
	switch {
	case report == nil:
		return ExitErrored
	case report.Summary.Errored > 0:
		return ExitErrored
	case report.Summary.Failed > 0:
		return ExitFailed
	default:
		return ExitPassed
	}
}

// stepLabel renders the action of an outcome, e.g. `CLICK "#login"`.
func stepLabel(o schemas.StepOutcome) string {
	if o.Target == "" {
		return string(o.ActionKind)
	}
	return fmt.Sprintf("%s %q", o.ActionKind, o.Target)
}

// describe explains a non-passing outcome in one line.
func describe(o schemas.StepOutcome) string {
	var b strings.Builder
	if o.Assertion != "" && o.Expected != nil {
		fmt.Fprintf(&b, "expected %s %s", o.Assertion, o.Expected)
		if o.Actual != nil {
			fmt.Fprintf(&b, ", got %s", o.Actual)
		}
	}
	if o.Message != "" && o.Detail != schemas.DetailAssertionFailed {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(o.Message)
	}
	if b.Len() == 0 {
		b.WriteString(string(o.Detail))
	}
	return b.String()
}
