package model

import "time"

type Run struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	ObjectIdentifier string    `json:"objectIdentifier,omitempty"`
	SuiteID          string    `json:"suiteId"`
	Status           Status    `json:"status"`
	ErrorDescription string    `json:"errorDescription,omitempty"`
	Results          []Result  `json:"results"`
}

// Summary counts results per status.
func (r *Run) Summary() map[Status]int {
	out := map[Status]int{
		StatusSuccess: 0,
		StatusFailure: 0,
		StatusError:   0,
		StatusSkip:    0,
	}
	if r == nil {
		return out
	}
	for _, res := range r.Results {
		out[res.Status]++
	}
	return out
}

// Failed reports whether the run itself did not complete.
func (r *Run) Failed() bool {
	return r != nil && r.Status != StatusSuccess
}
