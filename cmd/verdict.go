// SPDX-FileCopyrightText: 2025 INDUSTRIA DE DISEÑO TEXTIL, S.A. (INDITEX, S.A.)
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/Abirdcfly/clickhouse-operator/internal/driver"
	"github.com/fatih/color"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// printVerdict writes a human summary of a run.
func printVerdict(w io.Writer, verdict *driver.Verdict, err error) {
	if verdict == nil {
		failColor.Fprintln(w, "FAILED")
		fmt.Fprintln(w, err)
		return
	}
	if err == nil {
		passColor.Fprintf(w, "PASSED")
	} else {
		failColor.Fprintf(w, "FAILED")
	}
	fmt.Fprintf(w, " %s state=%s status=%q\n", verdict.Target, verdict.State, verdict.Status)
	dimColor.Fprintf(w, "run %s\n", verdict.RunID)

	stages := make([]string, 0, len(verdict.Durations))
	for stage := range verdict.Durations {
		stages = append(stages, string(stage))
	}
	sort.Strings(stages)
	for _, stage := range stages {
		dimColor.Fprintf(w, "  %-16s %s\n", stage, verdict.Durations[driver.Stage(stage)].Round(time.Millisecond))
	}
	if verdict.Report != nil {
		fmt.Fprint(w, verdict.Report.Render())
	}
	if err != nil {
		fmt.Fprintln(w, err)
	}
}
