// Package flags defines canonical CLI flag names shared across the CLI and engine.
// Keeping these as constants avoids drift between Cobra flag wiring and code
// that needs to refer to a flag by name in error messages.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Run.Suite, flags.FlagSuite, "", "...")
//	arg := "--" + flags.FlagSuite
package flags

const (
	// Run
	FlagSuite   = "suite"
	FlagDoc     = "doc"
	FlagParam   = "param"
	FlagSysmeta = "sysmeta"
	FlagTempDir = "temp-dir"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagNoConsole           = "no-console"
	FlagMetricsFile         = "metrics-file"

	// Runtime
	FlagConcurrency    = "concurrency"
	FlagCheckTimeout   = "check-timeout"
	FlagLibraryTimeout = "library-timeout"
	FlagGitHubToken    = "github-token"
	FlagVerbose        = "verbose"
)
