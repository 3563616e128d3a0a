package ir

import "time"

// Status is the final outcome of one resource in an apply.
type Status string

const (
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusSkipped   Status = "SKIPPED"
)

// ResourceResult is the per-resource outcome of an apply.
type ResourceResult struct {
	Address  string        `json:"address"`
	Action   Action        `json:"action"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// ApplyReport summarizes an apply run. A report containing any FAILED
// result is a failed apply overall; completed resources remain applied.
type ApplyReport struct {
	Results []*ResourceResult `json:"results"`
}

// Failed reports whether any resource failed.
func (r *ApplyReport) Failed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Result returns the outcome recorded for an address, or nil.
func (r *ApplyReport) Result(address string) *ResourceResult {
	for _, res := range r.Results {
		if res.Address == address {
			return res
		}
	}
	return nil
}

// Count returns the number of results with the given status.
func (r *ApplyReport) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}
