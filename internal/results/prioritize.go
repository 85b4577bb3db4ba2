// File: internal/results/prioritize.go
package results

import (
	"sort"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

var statusOrder = map[schemas.StepStatus]int{
	schemas.StatusErrored: 1,
	schemas.StatusFailed:  2,
	schemas.StatusPassed:  3,
}

// Failures returns the non-passing results of a report, errored before
// failed, then by name. The report itself is left untouched.
func Failures(report *schemas.RunReport) []schemas.ScenarioResult {
	var out []schemas.ScenarioResult
	for _, r := range report.Results {
		if r.Status != schemas.StatusPassed {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := statusOrder[out[i].Status], statusOrder[out[j].Status]
		if oi != oj {
			return oi < oj
		}
		return out[i].Name < out[j].Name
	})
	return out
}
