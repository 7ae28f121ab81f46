package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mdqengine",
	Short: "Run metadata quality suites against metadata documents",
	Long: `mdqengine evaluates XML and JSON metadata documents against quality suites.

A suite is an ordered list of checks. Each check selects values from the
document, runs code in one of the registered environments (JavaScript, Lua,
Python, R, shell or compiled Go checks) and reports SUCCESS, FAILURE, ERROR
or SKIP.

Examples:
	# Show available commands and global flags
	mdqengine --help

	# Run a suite against a document
	mdqengine run --suite suite.xml --doc eml.xml

	# List script environments
	mdqengine environments list

	# Print build info
	mdqengine version

Output:
	By default, commands write human-readable output to stdout.
	Diagnostics go to stderr; --verbose raises them to debug level.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Runtime.Verbose))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable debug logging (every check, library fetch and GitHub API call)")
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
