package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/rulemerge/pkg/core"
)

// printFailures writes one line per failed rule.
func printFailures(w io.Writer, report *core.Report) {
	for _, res := range report.Failures() {
		fmt.Fprintf(w, "FAIL %s: %s: %v\n", res.Rule, core.ErrorKind(res.Err), res.Err)
	}
}

// printSummary writes the succeeded and failed rule names.
func printSummary(w io.Writer, report *core.Report) {
	var failed []string
	for _, res := range report.Failures() {
		failed = append(failed, res.Rule)
	}
	fmt.Fprintf(w, "%d succeeded: %s\n", len(report.Succeeded()), names(report.Succeeded()))
	if len(failed) > 0 {
		fmt.Fprintf(w, "%d failed: %s\n", len(failed), names(failed))
	}
}

func names(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}

func failedErr(report *core.Report) error {
	n := len(report.Failures())
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d rules failed", n, len(report.Results))
}
