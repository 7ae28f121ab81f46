package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"mdqengine/internal/config"
	"mdqengine/internal/engine"
	"mdqengine/internal/executor"
	"mdqengine/internal/flags"
)

var cfg = config.New()

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a quality suite against metadata documents",
	Long: `Run a quality suite against one or more metadata documents.

Every document produces one run holding one result per check, in suite
order. A document that is neither well-formed XML nor JSON produces a
failed run with no results.

Documents:
	--doc accepts paths and doublestar globs such as 'data/**/*.xml'.
	Documents are evaluated concurrently (see --concurrency).

Libraries:
	A check's <library> entries are fetched and prepended to its code.
	file paths, http(s) URLs and github:owner/repo/path[@ref] are accepted.
	GitHub references authenticate with --github-token, then MDQ_GITHUB_TOKEN
	or GITHUB_TOKEN, then the gh CLI (gh auth token).

Output:
	Console output is controlled by --console-format (default: text).
	Structured output can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --no-console: suppress the console sink (use with --out for machine output)
	- --metrics-file: write Prometheus metrics in text exposition format

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, check.result, document.finished, run.finished).

Exit codes:
	0 = every check succeeded or was skipped
	1 = at least one check reported FAILURE
	2 = partial failure (a check errored or a document could not be run)
	3 = fatal error (nothing was run)

Examples:
	mdqengine run --suite suites/knb.xml --doc eml/*.xml

	# Parameters are visible to checks as mdq_params
	mdqengine run --suite s.yaml --doc d.json --param year=2024

	# Stream machine-readable events to stdout
	mdqengine run --suite s.xml --doc 'data/**/*.xml' --console-format ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		code := engine.NewEngine(executor.Default(), slog.Default()).Run(ctx, cfg)
		stop()
		os.Exit(code)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Run
	runCmd.Flags().StringVar(&cfg.Run.Suite, flags.FlagSuite, "", "Suite file (XML, JSON or YAML)")
	runCmd.Flags().StringSliceVar(&cfg.Run.Docs, flags.FlagDoc, nil, "Document path or glob (repeatable; comma-separated accepted)")
	runCmd.Flags().StringSliceVar(&cfg.Run.Params, flags.FlagParam, nil, "Run parameter as key=value, bound as mdq_params (repeatable; comma-separated accepted)")
	runCmd.Flags().StringVar(&cfg.Run.Sysmeta, flags.FlagSysmeta, "", "System metadata XML file for the documents")
	runCmd.Flags().StringVar(&cfg.Run.TempDir, flags.FlagTempDir, "", "Scratch directory for check artifacts (default: a fresh temp dir)")

	// Output
	runCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	runCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (SUCCESS, FAILURE, ERROR, SKIP). Comma-separated.")
	runCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	runCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	runCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --out)")
	runCmd.Flags().StringVar(&cfg.Output.MetricsFile, flags.FlagMetricsFile, "", "Write Prometheus metrics to this path after the run")

	// Runtime
	runCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Documents evaluated concurrently")
	runCmd.Flags().DurationVar(&cfg.Runtime.CheckTimeout, flags.FlagCheckTimeout, cfg.Runtime.CheckTimeout, "Timeout for a single check")
	runCmd.Flags().DurationVar(&cfg.Runtime.LibraryTimeout, flags.FlagLibraryTimeout, cfg.Runtime.LibraryTimeout, "Timeout for each library fetch")
	runCmd.Flags().StringVar(&cfg.Runtime.GitHubToken, flags.FlagGitHubToken, "", "GitHub token for github: library references")
}
