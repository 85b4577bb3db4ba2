// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/internal/config"
	"github.com/xkilldash9x/scenario-cli/internal/observability"
)

// newReportCmd creates and configures the `report` command.
func newReportCmd(provider storeProvider) *cobra.Command {
	var (
		runID      string
		outputPath string
		format     string
		list       bool
		limit      int
	)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Re-renders a stored run report",
		Long: `Loads a run persisted with 'run --persist' from the database and renders it
in any supported format. With --list the most recent runs are shown instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if list {
				return runListRuns(ctx, logger, cfg, limit, cmd.OutOrStdout(), provider)
			}
			if runID == "" {
				return fmt.Errorf("--run-id is required unless --list is given")
			}
			if cmd.Flags().Changed("format") {
				cfg.SetReportFormat(format)
			}
			if cmd.Flags().Changed("output") {
				cfg.SetReportOutput(outputPath)
			}
			return runReport(ctx, logger, cfg, runID, provider)
		},
	}

	reportCmd.Flags().StringVar(&runID, "run-id", "", "The ID of the run to render")
	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path, or 'stdout' (overrides config)")
	reportCmd.Flags().StringVar(&format, "format", "", "Report format: text, json, junit or sarif (overrides config)")
	reportCmd.Flags().BoolVar(&list, "list", false, "List recent runs instead of rendering one")
	reportCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs shown by --list")

	return reportCmd
}

// runReport loads one run and renders it.
func runReport(ctx context.Context, logger *zap.Logger, cfg config.Interface, runID string, provider storeProvider) error {
	logger.Info("Starting report generation", zap.String("run_id", runID))

	st, cleanup, err := provider.NewStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer cleanup()

	report, err := st.LoadReport(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	if err := render(report, cfg); err != nil {
		return err
	}
	logger.Info("Report generated",
		zap.String("run_id", runID),
		zap.String("format", cfg.Report().Format),
		zap.Int("scenarios", report.Summary.Total))
	return nil
}

// runListRuns prints the run history as a table.
func runListRuns(ctx context.Context, logger *zap.Logger, cfg config.Interface, limit int, out io.Writer, provider storeProvider) error {
	st, cleanup, err := provider.NewStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer cleanup()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printf(out, "No runs stored.\n")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	printf(tw, "RUN\tSUITE\tSTARTED\tDURATION\tPASSED\tFAILED\tERRORED\n")
	for _, r := range runs {
		printf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.Suite,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Summary.Passed, r.Summary.Failed, r.Summary.Errored)
	}
	return tw.Flush()
}
