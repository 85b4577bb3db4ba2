// -- cmd/validate.go --
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/scenario-cli/internal/suite"
)

func newValidateCmd() *cobra.Command {
	var baseURL string

	validateCmd := &cobra.Command{
		Use:   "validate [suite.yaml...]",
		Short: "Checks suite files without running them",
		Long: `Loads each suite through every validation phase (structural, semantic and
domain) and prints all problems with their location. With no arguments the
built-in suites are checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []suite.Option
			if baseURL != "" {
				opts = append(opts, suite.WithBaseURL(baseURL))
			}

			type target struct {
				label string
				load  func() (*suite.Suite, error)
			}
			var targets []target
			if len(args) == 0 {
				for _, name := range suite.BuiltinNames() {
					targets = append(targets, target{"builtin:" + name, func() (*suite.Suite, error) { return suite.Builtin(name, opts...) }})
				}
			}
			for _, p := range args {
				targets = append(targets, target{p, func() (*suite.Suite, error) { return suite.LoadFile(p, opts...) }})
			}

			out := cmd.OutOrStdout()
			invalid := 0
			for _, t := range targets {
				s, err := t.load()
				if err == nil {
					printf(out, "%s: OK (%d scenarios)\n", t.label, len(s.Scenarios))
					continue
				}
				invalid++
				var verrs suite.ValidationErrors
				if !errors.As(err, &verrs) {
					printf(out, "%s: %v\n", t.label, err)
					continue
				}
				printf(out, "%s: %d problem(s)\n", t.label, len(verrs))
				for _, ve := range verrs {
					printf(out, "  [%s] %s: %s\n", ve.Phase, ve.Path, ve.Message)
				}
			}
			if invalid > 0 {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d suites are invalid", invalid, len(targets))}
			}
			return nil
		},
	}
	validateCmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL used to resolve relative navigate targets")
	return validateCmd
}
