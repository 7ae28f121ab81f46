package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestResultSerialization(t *testing.T) {
	r := Result{
		Check:     CheckRef{ID: "check.title.1", Level: LevelRequired},
		Status:    StatusFailure,
		Output:    []Output{{Value: "title too short"}},
		Message:   "Something is wrong",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"check":{"id":"check.title.1","level":"REQUIRED"},"status":"FAILURE","output":[{"value":"title too short"}],"message":"Something is wrong","timestamp":"2024-01-02T03:04:05Z"}`
	if string(data) != expected {
		t.Errorf("Expected %s, got %s", expected, string(data))
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "success", want: StatusSuccess},
		{in: " PASS ", want: StatusSuccess},
		{in: "Failure", want: StatusFailure},
		{in: "error", want: StatusError},
		{in: "skipped", want: StatusSkip},
		{in: "maybe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %s want %s", got, tt.want)
			}
		})
	}
}

func TestLevel_UnmarshalText(t *testing.T) {
	var l Level
	if err := l.UnmarshalText([]byte("optional")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l != LevelOptional {
		t.Fatalf("got %s want OPTIONAL", l)
	}
	if err := l.UnmarshalText([]byte("critical")); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSelector_PathPrefersXPath(t *testing.T) {
	s := Selector{Name: "x", XPath: " /a/b ", Expression: &Expression{Syntax: "jsonpath", Value: "$.a"}}
	p := s.Path()
	if p.Syntax != SyntaxXPath || p.Value != "/a/b" {
		t.Fatalf("unexpected path: %+v", p)
	}

	s = Selector{Name: "x", Expression: &Expression{Syntax: "JSONPath", Value: "$.a"}}
	p = s.Path()
	if p.Syntax != SyntaxJSONPath || p.Value != "$.a" {
		t.Fatalf("unexpected path: %+v", p)
	}
}

func TestCheck_Validate(t *testing.T) {
	ok := Check{
		ID:          "c1",
		Environment: "lua",
		Selectors: []Selector{
			{Name: "title", XPath: "/eml/dataset/title"},
			{Name: "_count2", XPath: "count(//creator)"},
		},
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := Check{
		ID: "c2",
		Selectors: []Selector{
			{Name: "1bad", XPath: "/a"},
			{Name: "dup", XPath: "/a"},
			{Name: "dup", XPath: "/b"},
			{Name: "empty"},
		},
	}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"environment is required", `"1bad"`, `duplicate selector name "dup"`, `selector "empty" has no path`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestErrorResult_CarriesMessageAsOutput(t *testing.T) {
	res := ErrorResult(Check{ID: "c"}, errors.New("boom"), time.Time{})
	if res.Status != StatusError || res.Message != "boom" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Output) != 1 || res.Output[0].Value != "boom" {
		t.Fatalf("unexpected output: %+v", res.Output)
	}
}

func TestRun_Summary(t *testing.T) {
	run := &Run{Status: StatusSuccess, Results: []Result{
		{Status: StatusSuccess}, {Status: StatusSkip}, {Status: StatusSuccess}, {Status: StatusError},
	}}
	s := run.Summary()
	if s[StatusSuccess] != 2 || s[StatusSkip] != 1 || s[StatusError] != 1 || s[StatusFailure] != 0 {
		t.Fatalf("unexpected summary: %v", s)
	}
	if run.Failed() {
		t.Fatal("run should not be failed")
	}
}
