package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mdqengine/internal/flags"
	"mdqengine/internal/model"
	"mdqengine/internal/output"
)

type Config struct {
	// MAINTAINER NOTE: fields here are bound to flags in internal/cli/run.go;
	// keep the two in sync.
	Run     Run
	Output  Output
	Runtime Runtime
}

type Run struct {
	// Suite is the path of the suite file (see --suite). XML, JSON and YAML
	// are accepted.
	Suite string

	// Docs lists document paths or doublestar globs (see --doc).
	// Values may be provided as repeated flags and/or comma-separated lists.
	Docs []string

	// Params holds key=value run parameters exposed to checks as mdq_params
	// (see --param). Repeatable; comma-separated accepted.
	Params []string

	// Sysmeta is an optional system-metadata XML file (see --sysmeta).
	Sysmeta string

	// TempDir is the scratch directory handed to checks (see --temp-dir).
	// Empty means the OS temp directory.
	TempDir string
}

type Output struct {
	// ConsoleFormat controls the console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by result status
	// (see --console-filter-status). Allowed values: SUCCESS, FAILURE, ERROR, SKIP.
	ConsoleFilterStatus []string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// MetricsFile writes Prometheus metrics in text format after the run
	// (see --metrics-file).
	MetricsFile string
}

type Runtime struct {
	// Concurrency bounds how many documents are evaluated at once (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// CheckTimeout bounds a single check evaluation (see --check-timeout).
	// Must be > 0.
	CheckTimeout time.Duration

	// LibraryTimeout bounds each library fetch (see --library-timeout).
	// Must be > 0.
	LibraryTimeout time.Duration

	// GitHubToken authenticates github: library references (see --github-token).
	// Empty falls back to the environment and then the gh CLI.
	GitHubToken string

	// Verbose enables debug logging.
	Verbose bool
}

func New() *Config {
	return &Config{
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency:    4,
			CheckTimeout:   time.Minute,
			LibraryTimeout: 30 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	c.Run.Docs = splitCommaList(c.Run.Docs)
	c.Run.Params = splitCommaList(c.Run.Params)
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)
	c.Run.Suite = strings.TrimSpace(c.Run.Suite)

	if c.Run.Suite == "" {
		return fmt.Errorf("--%s is required", flags.FlagSuite)
	}
	if len(c.Run.Docs) == 0 {
		return fmt.Errorf("at least one --%s must be provided", flags.FlagDoc)
	}

	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, raw := range c.Output.ConsoleFilterStatus {
		st, err := model.ParseStatus(raw)
		if err != nil {
			return fmt.Errorf("invalid --%s value: %w", flags.FlagConsoleFilterStatus, err)
		}
		c.Output.ConsoleFilterStatus[i] = string(st)
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			c.Output.OutFormat = output.FormatFromPath(c.Output.Out)
			if c.Output.OutFormat == "" {
				return fmt.Errorf("cannot infer output format from %q; use --%s", c.Output.Out, flags.FlagOutFormat)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	if c.Runtime.Concurrency <= 0 {
		return fmt.Errorf("--%s must be >= 1", flags.FlagConcurrency)
	}
	if c.Runtime.CheckTimeout <= 0 {
		return fmt.Errorf("--%s must be > 0", flags.FlagCheckTimeout)
	}
	if c.Runtime.LibraryTimeout <= 0 {
		return fmt.Errorf("--%s must be > 0", flags.FlagLibraryTimeout)
	}

	if len(c.Run.Params) > 0 {
		if _, err := ParseParamAssignments(c.Run.Params); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseParamAssignments parses values of the form "key=value".
//
// Notes:
// - Entries may be provided via repeated flags and/or comma-delimited lists.
// - Empty values are allowed ("key="); a later entry overrides an earlier one.
// - Values are returned as written; typing happens when they are bound.
func ParseParamAssignments(values []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, raw := range splitCommaList(values) {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --%s entry %q: expected key=value", flags.FlagParam, raw)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid --%s entry %q: expected non-empty key", flags.FlagParam, raw)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
