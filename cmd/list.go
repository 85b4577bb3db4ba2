// -- cmd/list.go --
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	opts := &runOptions{}
	var showSteps bool

	listCmd := &cobra.Command{
		Use:   "list [suite.yaml]",
		Short: "Lists the scenarios of a suite",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSuite(opts, args)
			if err != nil {
				return err
			}
			scenarios, err := s.Filter(opts.filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printf(out, "Suite %s (%s)\n\n", s.Name, s.Source)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			printf(tw, "SCENARIO\tSTEPS\n")
			for _, sc := range scenarios {
				printf(tw, "%s\t%d\n", sc.Name(), sc.Len())
				if !showSteps {
					continue
				}
				for i, step := range sc.Steps() {
					line := step.Action().String()
					if as, ok := step.Assertion(); ok {
						line = fmt.Sprintf("%s expect %s", line, as)
					}
					printf(tw, "  %d. %s\t\n", i+1, line)
				}
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVar(&opts.builtin, "builtin", defaultBuiltin, "Built-in suite to list when no file is given")
	listCmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Override the suite's base_url")
	listCmd.Flags().StringVarP(&opts.filter, "filter", "f", "", "Only list scenarios whose name matches this regular expression")
	listCmd.Flags().BoolVar(&showSteps, "steps", false, "Print every step with its expectation")
	return listCmd
}
