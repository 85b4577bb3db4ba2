// internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/reporting/sarif"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "scenario-cli"
	ToolInfoURI  = "https://github.com/xkilldash9x/scenario-cli"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// Every non-passing scenario yields one result for its terminal step, under
// a rule named after the classification, e.g. "scenario/errored/Timeout".
// It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the rule index.
	mu    sync.Mutex
	rules map[string]bool
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string, logger *zap.Logger) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						// Initialize empty slices (not nil) for proper JSON marshalling
						Rules: []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer: writer,
		logger: logger.Named("sarif_reporter"),
		log:    log,
		rules:  make(map[string]bool),
	}
}

// RuleID names the rule for a scenario status and outcome detail.
func RuleID(status schemas.StepStatus, detail schemas.OutcomeDetail) string {
	if detail == schemas.DetailNone {
		detail = "Unknown"
	}
	return fmt.Sprintf("scenario/%s/%s", strings.ToLower(string(status)), detail)
}

// Write converts the non-passing scenarios of a report into SARIF results.
func (r *SARIFReporter) Write(report *schemas.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	run.Invocations = append(run.Invocations, &sarif.Invocation{
		ExecutionSuccessful: report.OK(),
		StartTimeUTC:        pString(report.StartedAt.UTC().Format(time.RFC3339Nano)),
		EndTimeUTC:          pString(report.FinishedAt.UTC().Format(time.RFC3339Nano)),
		Properties: &sarif.PropertyBag{
			"runId":   report.ID,
			"suite":   report.Suite,
			"summary": report.Summary,
		},
	})

	count := 0
	for _, res := range report.Results {
		last, ok := res.Terminal()
		if !ok || res.Status == schemas.StatusPassed {
			continue
		}
		ruleID := r.ensureRule(res.Status, last.Detail)

		props := sarif.PropertyBag{
			"runId":      report.ID,
			"stepIndex":  last.StepIndex,
			"actionKind": string(last.ActionKind),
			"attempts":   last.Attempts,
		}
		if res.Attempts > 1 {
			props["scenarioAttempts"] = res.Attempts
		}
		if last.Screenshot != "" {
			props["screenshot"] = last.Screenshot
		}

		run.Results = append(run.Results, &sarif.Result{
			RuleID:     ruleID,
			Message:    &sarif.Message{Text: pString(fmt.Sprintf("%s: step %d %s: %s", res.Name, last.StepIndex, stepLabel(last), describe(last)))},
			Level:      levelFor(res.Status),
			Locations:  createLocations(res.Name, last),
			Properties: &props,
		})
		count++
	}

	if count > 0 {
		r.logger.Debug("Wrote scenario results to SARIF buffer", zap.Int("results_count", count))
	}
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Debug("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

// ruleHelp explains each classification to whoever triages the result.
var ruleHelp = map[schemas.OutcomeDetail]string{
	schemas.DetailAssertionFailed:     "The page produced a value that does not match the expectation. This is a product regression or a stale expectation.",
	schemas.DetailTypeMismatch:        "The assertion cannot be applied to the value the action produces. Fix the scenario definition.",
	schemas.DetailElementNotFound:     "The selector matched nothing interactable before the step timeout. Check the selector or the preceding steps.",
	schemas.DetailTimeout:             "The step did not complete before its deadline.",
	schemas.DetailNavigation:          "The page could not be loaded at all.",
	schemas.DetailBackendDisconnected: "The browser crashed or the protocol connection dropped.",
	schemas.DetailBackendError:        "The browser returned an unexpected error.",
	schemas.DetailCancelled:           "The run was interrupted before the scenario finished.",
}

// ensureRule registers the rule for a classification once and returns its ID.
// NOTE: Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(status schemas.StepStatus, detail schemas.OutcomeDetail) string {
	id := RuleID(status, detail)
	if r.rules[id] {
		return id
	}
	r.rules[id] = true
	r.logger.Debug("Registering new SARIF rule definition", zap.String("rule_id", id))

	help := ruleHelp[detail]
	if help == "" {
		help = "Unclassified scenario failure."
	}
	name := fmt.Sprintf("Scenario %s (%s)", strings.ToLower(string(status)), detail)
	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:                   id,
		Name:                 pString(name),
		ShortDescription:     &sarif.MultiformatMessageString{Text: pString(name)},
		FullDescription:      &sarif.MultiformatMessageString{Text: pString(help)},
		Help:                 &sarif.MultiformatMessageString{Text: pString(help)},
		DefaultConfiguration: &sarif.ReportingConfiguration{Level: levelFor(status)},
		Properties: &sarif.PropertyBag{
			"tags": []string{"scenario", strings.ToLower(string(status))},
		},
	})
	return id
}

// createLocations points at the failing step of a scenario.
func createLocations(scenario string, o schemas.StepOutcome) []*sarif.Location {
	step := fmt.Sprintf("steps[%d]", o.StepIndex)
	loc := &sarif.Location{
		LogicalLocations: []*sarif.LogicalLocation{{
			Name:               pString(step),
			FullyQualifiedName: pString(scenario + "/" + step),
			Kind:               pString("member"),
		}},
		Message: &sarif.Message{Text: pString(stepLabel(o))},
	}
	return []*sarif.Location{loc}
}

// levelFor maps scenario statuses to SARIF levels. Regressions are errors,
// infrastructure trouble is a warning.
func levelFor(status schemas.StepStatus) sarif.Level {
	switch status {
	case schemas.StatusFailed:
		return sarif.LevelError
	case schemas.StatusErrored:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// pString returns a pointer to the given string value. Helper for optional SARIF fields.
func pString(s string) *string {
	return &s
}
