package core

import (
	"errors"
	"time"
)

// Status is the outcome of one rule in a build or check.
type Status string

const (
	StatusOK       Status = "ok"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusUpToDate Status = "up-to-date"
	StatusStale    Status = "stale"
)

// RuleResult records the outcome of a single rule.
type RuleResult struct {
	Rule      string        `json:"rule"`
	Output    string        `json:"output"`
	Status    Status        `json:"status"`
	Documents int           `json:"documents"`
	Bytes     int           `json:"bytes"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// Failed reports whether the result should make the build fail.
func (r RuleResult) Failed() bool {
	return r.Err != nil
}

// Report is the summary of a build or check, with one result per selected
// rule in manifest order.
type Report struct {
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Results  []RuleResult  `json:"results"`
}

// Succeeded returns the names of rules that completed without error.
func (r *Report) Succeeded() []string {
	var names []string
	for _, res := range r.Results {
		if !res.Failed() {
			names = append(names, res.Rule)
		}
	}
	return names
}

// Failures returns the results that carry an error.
func (r *Report) Failures() []RuleResult {
	var failed []RuleResult
	for _, res := range r.Results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Result returns the result for the named rule.
func (r *Report) Result(name string) (RuleResult, bool) {
	for _, res := range r.Results {
		if res.Rule == name {
			return res, true
		}
	}
	return RuleResult{}, false
}

// Err joins every per-rule error, or returns nil when all rules succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}
