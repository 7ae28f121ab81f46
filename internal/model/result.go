package model

import "time"

// CheckRef identifies the check a Result came from.
type CheckRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`
	Level Level  `json:"level,omitempty"`
}

type Output struct {
	Value      string `json:"value"`
	Type       string `json:"type,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

type Result struct {
	Check     CheckRef  `json:"check"`
	Status    Status    `json:"status"`
	Output    []Output  `json:"output,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func RefOf(c Check) CheckRef {
	return CheckRef{ID: c.ID, Name: c.Name, Type: c.Type, Level: c.Level}
}

func NewResult(c Check, status Status, message string, at time.Time) Result {
	return Result{
		Check:     RefOf(c),
		Status:    status,
		Message:   message,
		Timestamp: at,
	}
}

// ErrorResult records a failure of the check machinery. The error text is
// carried both as the message and as the single output value.
func ErrorResult(c Check, err error, at time.Time) Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	res := NewResult(c, StatusError, msg, at)
	res.Output = []Output{{Value: msg}}
	return res
}

func SkipResult(c Check, message string, at time.Time) Result {
	return NewResult(c, StatusSkip, message, at)
}
