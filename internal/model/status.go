package model

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusError   Status = "ERROR"
	StatusSkip    Status = "SKIP"
)

// ParseStatus accepts the canonical names case-insensitively, plus the
// PASS/FAIL/SKIPPED spellings some check authors use.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "PASS":
		return StatusSuccess, nil
	case "FAILURE", "FAIL":
		return StatusFailure, nil
	case "ERROR":
		return StatusError, nil
	case "SKIP", "SKIPPED":
		return StatusSkip, nil
	default:
		return "", fmt.Errorf("unknown status %q", raw)
	}
}

type Level string

const (
	LevelInfo     Level = "INFO"
	LevelOptional Level = "OPTIONAL"
	LevelRequired Level = "REQUIRED"
)

// UnmarshalText lets every suite decoder share one normalisation. An empty
// level is kept empty; suites are not required to declare one.
func (l *Level) UnmarshalText(text []byte) error {
	v := strings.ToUpper(strings.TrimSpace(string(text)))
	switch Level(v) {
	case "", LevelInfo, LevelOptional, LevelRequired:
		*l = Level(v)
		return nil
	default:
		return fmt.Errorf("unknown check level %q (must be one of: INFO, OPTIONAL, REQUIRED)", string(text))
	}
}
