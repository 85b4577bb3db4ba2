package reporting

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

func TestNew_Formats(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tests := []struct {
		format string
		want   interface{}
	}{
		{"text", &TextReporter{}},
		{"json", &JSONReporter{}},
		{"junit", &JUnitReporter{}},
		{"sarif", &SARIFReporter{}},
		{" SARIF ", &SARIFReporter{}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "report.out")
			r, err := New(tt.format, path, WithLogger(logger))
			require.NoError(t, err)
			assert.IsType(t, tt.want, r)
			assert.FileExists(t, path)
			require.NoError(t, r.Close())
		})
	}
}

// Verifies that the reporter can be configured to write to standard output.
func TestNew_Output_Stdout(t *testing.T) {
	for _, path := range []string{"", "stdout"} {
		r, err := New("json", path, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)

		jr, ok := r.(*JSONReporter)
		require.True(t, ok)
		nwc, ok := jr.writer.(*nopWriteCloser)
		require.True(t, ok, "Writer should be a nopWriteCloser when outputting to stdout")
		assert.Equal(t, os.Stdout, nwc.Writer)
		assert.NoError(t, r.Close(), "closing must not close os.Stdout")
	}
}

func TestNew_UnsupportedFormatCreatesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xml")
	r, err := New("xml", path)
	assert.Nil(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: xml")
	assert.NoFileExists(t, path)
}

func TestNew_Failure_FileCreation(t *testing.T) {
	r, err := New("sarif", t.TempDir())
	assert.Nil(t, r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestNopWriteCloser(t *testing.T) {
	buf := new(bytes.Buffer)
	nwc := &nopWriteCloser{buf}
	_, err := nwc.Write([]byte("hello"))
	require.NoError(t, err)
	assert.NoError(t, nwc.Close())
	_, _ = nwc.Write([]byte(" world"))
	assert.Equal(t, "hello world", buf.String())
}

func TestExitCode(t *testing.T) {
	onlyFailed := sampleReport()
	onlyFailed.Results = onlyFailed.Results[:2]
	onlyFailed.Summary = schemas.Summarize(onlyFailed.Results)

	assert.Equal(t, ExitPassed, ExitCode(passingReport()))
	assert.Equal(t, ExitFailed, ExitCode(onlyFailed))
	assert.Equal(t, ExitErrored, ExitCode(sampleReport()))
	assert.Equal(t, ExitErrored, ExitCode(nil))
	assert.Equal(t, ExitPassed, ExitCode(&schemas.RunReport{}), "an empty run passes")
}

func TestDescribe(t *testing.T) {
	r := sampleReport()
	failedLast := r.Results[1].Outcomes[1]
	assert.Equal(t, `expected CONTAINS "do not match", got "locked out"`, describe(failedLast))

	erroredLast := r.Results[2].Outcomes[1]
	assert.Equal(t, "element not found: gave up after 12 attempts", describe(erroredLast))
	assert.Equal(t, `CLICK "#add"`, stepLabel(erroredLast))

	assert.Equal(t, "Timeout", describe(schemas.StepOutcome{Detail: schemas.DetailTimeout}))
	assert.Equal(t, "READ_TITLE", stepLabel(schemas.StepOutcome{ActionKind: schemas.ActionReadTitle}))
}

func TestTextReporter(t *testing.T) {
	w := newMockWriter()
	r := NewTextReporter(w)
	require.NoError(t, r.Write(sampleReport()))
	require.NoError(t, r.Close())
	assert.True(t, w.Closed)

	out := w.Buffer.String()
	assert.Contains(t, out, "Run run-1 (saucedemo)")
	assert.Regexp(t, `PASSED\s+Page Title\s+1\.2s`, out)
	assert.Contains(t, out, "3 scenarios, 1 passed, 1 failed, 1 errored (6 steps)")
	assert.Contains(t, out, `step 1: CLICK "#add"`)
	assert.Contains(t, out, "ElementNotFound: element not found: gave up after 12 attempts")
	assert.Contains(t, out, "attempts: 2")
	assert.Contains(t, out, "screenshot: /tmp/shot.png")

	// Errored scenarios are listed before failed ones.
	failures := out[bytes.Index([]byte(out), []byte("Failures:")):]
	assert.Less(t, bytes.Index([]byte(failures), []byte("Add to Cart Without Login")),
		bytes.Index([]byte(failures), []byte("Invalid Login")))
}

func TestTextReporter_AllPassed(t *testing.T) {
	w := newMockWriter()
	require.NoError(t, NewTextReporter(w).Write(passingReport()))
	assert.NotContains(t, w.Buffer.String(), "Failures:")
}

func TestTextReporter_WriteError(t *testing.T) {
	w := newMockWriter()
	w.FailWrite = true
	assert.Error(t, NewTextReporter(w).Write(sampleReport()))
}
