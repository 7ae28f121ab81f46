package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := New()
	cfg.Run.Suite = "suite.xml"
	cfg.Run.Docs = []string{"doc.xml"}
	return cfg
}

func TestValidate_NormalizesCommaDelimitedDocs(t *testing.T) {
	cfg := validConfig()
	cfg.Run.Docs = []string{"a.xml, b.json", "data/**/*.xml", ",,"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}

	want := []string{"a.xml", "b.json", "data/**/*.xml"}
	if !reflect.DeepEqual(cfg.Run.Docs, want) {
		t.Fatalf("Docs normalized mismatch: got %v want %v", cfg.Run.Docs, want)
	}
}

func TestValidate_RequiresSuiteAndDocs(t *testing.T) {
	cfg := New()
	cfg.Run.Docs = []string{"doc.xml"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "--suite") {
		t.Fatalf("expected --suite error, got %v", err)
	}

	cfg = New()
	cfg.Run.Suite = "suite.xml"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "--doc") {
		t.Fatalf("expected --doc error, got %v", err)
	}
}

func TestParseParamAssignments(t *testing.T) {
	got, err := ParseParamAssignments([]string{
		"year=2024, node=urn:node:KNB",
		"empty=",
		"year=2025",
	})
	if err != nil {
		t.Fatalf("ParseParamAssignments returned error: %v", err)
	}
	want := map[string]string{"year": "2025", "node": "urn:node:KNB", "empty": ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseParamAssignments_ErrorsOnInvalidSyntax(t *testing.T) {
	tests := []struct {
		name   string
		values []string
	}{
		{name: "missing_equals", values: []string{"year"}},
		{name: "empty_key", values: []string{" =2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseParamAssignments(tt.values); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestValidate_RejectsInvalidParamSyntax(t *testing.T) {
	cfg := validConfig()
	cfg.Run.Params = []string{"nokey"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestValidate_ConsoleFormat(t *testing.T) {
	for _, v := range []string{"text", " JSON ", "ndjson"} {
		cfg := validConfig()
		cfg.Output.ConsoleFormat = v
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate(%q) returned error: %v", v, err)
		}
	}
	for _, v := range []string{"", "xml"} {
		cfg := validConfig()
		cfg.Output.ConsoleFormat = v
		if err := cfg.Validate(); err == nil {
			t.Fatalf("Validate(%q) expected error", v)
		}
	}
}

func TestValidate_NormalizesFilterStatus(t *testing.T) {
	cfg := validConfig()
	cfg.Output.ConsoleFilterStatus = []string{"fail, error", "SKIPPED"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
	want := []string{"FAILURE", "ERROR", "SKIP"}
	if !reflect.DeepEqual(cfg.Output.ConsoleFilterStatus, want) {
		t.Fatalf("got %v want %v", cfg.Output.ConsoleFilterStatus, want)
	}

	cfg = validConfig()
	cfg.Output.ConsoleFilterStatus = []string{"maybe"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestValidate_OutFormat(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		format  string
		want    string
		wantErr bool
	}{
		{name: "infer json", out: "runs.json", want: "json"},
		{name: "infer jsonl", out: "runs.jsonl", want: "ndjson"},
		{name: "explicit", out: "runs.txt", format: "NDJSON", want: "ndjson"},
		{name: "unknown extension", out: "runs.txt", wantErr: true},
		{name: "unsupported", out: "runs.json", format: "csv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Output.Out = tt.out
			cfg.Output.OutFormat = tt.format
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() returned error: %v", err)
			}
			if cfg.Output.OutFormat != tt.want {
				t.Fatalf("OutFormat = %q, want %q", cfg.Output.OutFormat, tt.want)
			}
		})
	}
}

func TestValidate_RejectsInvalidRuntimeBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "concurrency", mutate: func(c *Config) { c.Runtime.Concurrency = 0 }},
		{name: "check_timeout", mutate: func(c *Config) { c.Runtime.CheckTimeout = 0 }},
		{name: "library_timeout", mutate: func(c *Config) { c.Runtime.LibraryTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
