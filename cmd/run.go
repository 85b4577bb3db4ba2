// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/config"
	"github.com/xkilldash9x/scenario-cli/internal/engine"
	"github.com/xkilldash9x/scenario-cli/internal/observability"
	"github.com/xkilldash9x/scenario-cli/internal/orchestrator"
	"github.com/xkilldash9x/scenario-cli/internal/reporting"
	"github.com/xkilldash9x/scenario-cli/internal/suite"
)

const defaultBuiltin = "saucedemo"

type runOptions struct {
	builtin     string
	baseURL     string
	filter      string
	format      string
	output      string
	concurrency int
	headless    bool
	persist     bool
	watch       bool
}

func newRunCmd(deps dependencies) *cobra.Command {
	opts := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run [suite.yaml]",
		Short: "Runs a scenario suite and reports the results",
		Long: `Runs every scenario of a suite in its own browser session and renders a report.
Without a file argument the built-in suite selected by --builtin is run.

Exit status is 0 when every scenario passed, 1 when at least one failed and
2 when at least one errored.`,
		Example: `  scenario-cli run
  scenario-cli run ./checkout.yaml --filter "(?i)cart" --format junit --output report.xml
  scenario-cli run ./checkout.yaml --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			applyRunOverrides(cmd, cfg, opts)
			if err := validateRunConfig(cfg); err != nil {
				return err
			}
			if opts.watch && len(args) == 0 {
				return fmt.Errorf("--watch requires a suite file argument")
			}
			return runSuite(cmd, cfg, deps, opts, args)
		},
	}

	runCmd.Flags().StringVar(&opts.builtin, "builtin", defaultBuiltin, "Built-in suite to run when no file is given")
	runCmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Override the suite's base_url")
	runCmd.Flags().StringVarP(&opts.filter, "filter", "f", "", "Only run scenarios whose name matches this regular expression")
	runCmd.Flags().StringVar(&opts.format, "format", "", "Report format: text, json, junit or sarif (overrides config)")
	runCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Report destination file, or 'stdout' (overrides config)")
	runCmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "Number of scenarios run at once (overrides config)")
	runCmd.Flags().BoolVar(&opts.headless, "headless", true, "Run the browser without a window (overrides config)")
	runCmd.Flags().BoolVar(&opts.persist, "persist", false, "Store the report in the configured database")
	runCmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-run the suite whenever the file changes")

	return runCmd
}

// applyRunOverrides copies explicitly set flags onto cfg.
func applyRunOverrides(cmd *cobra.Command, cfg config.Interface, opts *runOptions) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.SetReportFormat(opts.format)
	}
	if flags.Changed("output") {
		cfg.SetReportOutput(opts.output)
	}
	if flags.Changed("concurrency") {
		cfg.SetEngineConcurrency(opts.concurrency)
	}
	if flags.Changed("headless") {
		cfg.SetBrowserHeadless(opts.headless)
	}
}

// validateRunConfig rechecks the values flags may have changed.
func validateRunConfig(cfg config.Interface) error {
	if cfg.Engine().Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Engine().Concurrency)
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Report().Format))
	if !slices.Contains(reporting.Formats, format) {
		return fmt.Errorf("unsupported output format: %s (supported: %s)", cfg.Report().Format, strings.Join(reporting.Formats, ", "))
	}
	return nil
}

// loadSuite reads the suite named by args, or the built-in one.
func loadSuite(opts *runOptions, args []string) (*suite.Suite, error) {
	var loadOpts []suite.Option
	if opts.baseURL != "" {
		loadOpts = append(loadOpts, suite.WithBaseURL(opts.baseURL))
	}
	if len(args) > 0 {
		return suite.LoadFile(args[0], loadOpts...)
	}
	return suite.Builtin(opts.builtin, loadOpts...)
}

func runSuite(cmd *cobra.Command, cfg config.Interface, deps dependencies, opts *runOptions, args []string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	if timeout := cfg.Engine().RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Load before launching anything so that authoring errors are cheap.
	s, err := loadSuite(opts, args)
	if err != nil {
		return err
	}

	sessions, shutdown, err := deps.browsers.NewSessionFactory(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer shutdown()

	var sink orchestrator.ReportSink
	if opts.persist {
		st, cleanup, err := deps.stores.NewStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := st.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = st
	}

	runner := &suiteRunner{
		cfg:      cfg,
		sessions: sessions,
		sink:     sink,
		logger:   logger,
		filter:   opts.filter,
	}

	if !opts.watch {
		report, err := runner.execute(ctx, s)
		if err != nil {
			return err
		}
		return exitErrorFor(report)
	}

	logger.Info("Watching suite for changes.", zap.String("path", args[0]))
	if _, err := runner.execute(ctx, s); err != nil {
		logger.Error("Run failed.", zap.Error(err))
	}
	err = suite.Watch(ctx, args[0], suite.DefaultDebounce, logger, func(reloaded *suite.Suite, loadErr error) {
		if loadErr != nil {
			logger.Error("Suite reload failed, keeping the watcher alive.", zap.Error(loadErr))
			printf(cmd.ErrOrStderr(), "%v\n", loadErr)
			return
		}
		if _, err := runner.execute(ctx, reloaded); err != nil {
			logger.Error("Run failed.", zap.Error(err))
		}
	}, suiteOptions(opts)...)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func suiteOptions(opts *runOptions) []suite.Option {
	if opts.baseURL == "" {
		return nil
	}
	return []suite.Option{suite.WithBaseURL(opts.baseURL)}
}

// suiteRunner executes one suite end to end: filter, orchestrate, render.
type suiteRunner struct {
	cfg      config.Interface
	sessions engine.SessionFactory
	sink     orchestrator.ReportSink
	logger   *zap.Logger
	filter   string
}

// execute returns the report whenever one was sealed, together with any
// persistence or rendering error.
func (r *suiteRunner) execute(ctx context.Context, s *suite.Suite) (*schemas.RunReport, error) {
	scenarios, err := s.Filter(r.filter)
	if err != nil {
		return nil, err
	}

	executor := engine.New(engine.PolicyFromConfig(r.cfg.Engine()), r.logger,
		engine.WithScreenshots(r.cfg.Browser().Screenshots))

	orchOpts := []orchestrator.Option{
		orchestrator.FromConfig(r.cfg),
		orchestrator.WithSuiteName(s.Name),
		orchestrator.WithResultHook(func(res schemas.ScenarioResult) {
			r.logger.Info("Scenario finished.",
				zap.String("scenario", res.Name),
				zap.String("status", string(res.Status)),
				zap.Duration("duration", res.FinishedAt.Sub(res.StartedAt)))
		}),
	}
	if r.sink != nil {
		orchOpts = append(orchOpts, orchestrator.WithReportSink(r.sink))
	}

	orch, err := orchestrator.New(executor, r.sessions, r.logger, orchOpts...)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Running suite.",
		zap.String("suite", s.Name),
		zap.Int("scenarios", len(scenarios)),
		zap.Stringer("policy", executor.Policy()))

	report, runErr := orch.Run(ctx, scenarios)
	if report == nil {
		return nil, runErr
	}
	if orchestrator.IsInterrupted(report) {
		r.logger.Warn("Run was interrupted before every scenario completed.")
	}

	if err := render(report, r.cfg); err != nil {
		return report, errors.Join(runErr, err)
	}
	return report, runErr
}

// render writes report in the configured format and destination.
func render(report *schemas.RunReport, cfg config.Interface) error {
	rep, err := reporting.New(cfg.Report().Format, cfg.Report().Output, reporting.WithToolVersion(Version))
	if err != nil {
		return err
	}
	if err := rep.Write(report); err != nil {
		_ = rep.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := rep.Close(); err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	return nil
}

// exitErrorFor maps a report onto the process exit status.
func exitErrorFor(report *schemas.RunReport) error {
	code := reporting.ExitCode(report)
	if code == reporting.ExitPassed {
		return nil
	}
	return &ExitError{
		Code: code,
		Message: fmt.Sprintf("run %s: %d of %d scenarios failed, %d errored",
			report.ID, report.Summary.Failed, report.Summary.Total, report.Summary.Errored),
	}
}
