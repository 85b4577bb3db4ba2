// File: cmd/scenario-cli/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scenario-cli/cmd"
	"github.com/xkilldash9x/scenario-cli/internal/reporting"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
	execute = cmd.Execute
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, reporting.ExitPassed},
		{"failed run", &cmd.ExitError{Code: reporting.ExitFailed, Message: "1 failed"}, reporting.ExitFailed},
		{"errored run", &cmd.ExitError{Code: reporting.ExitErrored, Message: "1 errored"}, reporting.ExitErrored},
		{"wrapped exit error", fmt.Errorf("outer: %w", &cmd.ExitError{Code: 1}), reporting.ExitFailed},
		{"plain error", errors.New("boom"), reporting.ExitErrored},
		{"interrupted", context.Canceled, reporting.ExitErrored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestMain_PropagatesExitCode(t *testing.T) {
	defer resetMocks()

	var got int
	osExit = func(code int) { got = code }
	execute = func(ctx context.Context) error {
		return &cmd.ExitError{Code: reporting.ExitFailed, Message: "run r: 1 of 2 scenarios failed, 0 errored"}
	}

	main()
	assert.Equal(t, reporting.ExitFailed, got)
}

func TestHandlePanic(t *testing.T) {
	t.Run("writes panic log", func(t *testing.T) {
		defer resetMocks()
		var written []byte
		var exitedWith = -1
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = data
			return nil
		}
		osExit = func(code int) { exitedWith = code }

		func() {
			defer handlePanic()
			panic("scenario exploded")
		}()

		require.NotNil(t, written)
		assert.Contains(t, string(written), "panic: scenario exploded")
		assert.Equal(t, reporting.ExitErrored, exitedWith)
	})

	t.Run("log write failure still exits", func(t *testing.T) {
		defer resetMocks()
		exitedWith := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
		osExit = func(code int) { exitedWith = code }

		func() {
			defer handlePanic()
			panic("again")
		}()
		assert.Equal(t, reporting.ExitErrored, exitedWith)
	})

	t.Run("no panic is a no-op", func(t *testing.T) {
		defer resetMocks()
		osExit = func(int) { t.Fatal("osExit must not be called") }
		func() {
			defer handlePanic()
		}()
	})
}
