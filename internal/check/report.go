// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one check.
type Result struct {
	Kind     string
	Expected interface{}
	Observed interface{}
	Passed   bool
	Message  string
	// Diff is a -expected +observed diff of the parts that differ.
	Diff string
}

// Report holds one Result per check of the evaluated spec.
type Report struct {
	Target     Target
	Results    []Result
	ObservedAt time.Time
}

// Passed reports whether every check passed. A report without checks passes.
func (r *Report) Passed() bool {
	for _, result := range r.Results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failed results in evaluation order.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, result := range r.Results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

func (r *Report) FailedKinds() []string {
	kinds := []string{}
	for _, result := range r.Failed() {
		kinds = append(kinds, result.Kind)
	}
	return kinds
}

// Result returns the result of the check of kind.
func (r *Report) Result(kind string) (Result, bool) {
	for _, result := range r.Results {
		if result.Kind == kind {
			return result, true
		}
	}
	return Result{}, false
}

// Err returns a *CheckFailure when a check failed and nil otherwise.
func (r *Report) Err() error {
	if r == nil || r.Passed() {
		return nil
	}
	return &CheckFailure{Report: r}
}

func (r *Report) String() string {
	if r == nil {
		return "<no report>"
	}
	return fmt.Sprintf("%s: %d of %d checks failed", r.Target, len(r.Failed()), len(r.Results))
}

// Render formats the report for humans: one line per check and, for failed ones, what differs.
func (r *Report) Render() string {
	b := &strings.Builder{}
	failed := len(r.Failed())
	if failed == 0 {
		fmt.Fprintf(b, "%s: all %d checks passed\n", r.Target, len(r.Results))
	} else {
		fmt.Fprintf(b, "%s: %d of %d checks failed\n", r.Target, failed, len(r.Results))
	}
	for _, result := range r.Results {
		if result.Passed {
			fmt.Fprintf(b, "  ok   %s\n", result.Kind)
			continue
		}
		fmt.Fprintf(b, "  FAIL %s", result.Kind)
		if result.Message != "" {
			fmt.Fprintf(b, ": %s", result.Message)
		}
		b.WriteString("\n")
		fmt.Fprintf(b, "       expected: %v\n", result.Expected)
		fmt.Fprintf(b, "       observed: %v\n", result.Observed)
		if result.Diff != "" {
			b.WriteString("       diff (-expected +observed):\n")
			for _, line := range strings.Split(strings.TrimRight(result.Diff, "\n"), "\n") {
				b.WriteString("         " + line + "\n")
			}
		}
	}
	return b.String()
}

// CheckFailure is returned when the installation converged but does not match the expected state.
type CheckFailure struct {
	Report *Report
}

func (e *CheckFailure) Error() string {
	return fmt.Sprintf("%s: %d of %d checks failed: %s", e.Report.Target, len(e.Report.Failed()), len(e.Report.Results), strings.Join(e.Report.FailedKinds(), ", "))
}
