package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"mdqengine/internal/config"
	"mdqengine/internal/document"
	"mdqengine/internal/executor"
	gh "mdqengine/internal/github"
	"mdqengine/internal/library"
	"mdqengine/internal/metrics"
	"mdqengine/internal/model"
	"mdqengine/internal/output"
	"mdqengine/internal/selector"
	"mdqengine/internal/suite"
)

func exitCodeForRun(fatal, partial, failures bool) int {
	// Exit code contract:
	// 0 = every check succeeded or was skipped
	// 1 = at least one check reported FAILURE
	// 2 = partial failure (a check errored or a document could not be run)
	// 3 = fatal error (nothing was run)
	if fatal {
		return 3
	}
	if partial {
		return 2
	}
	if failures {
		return 1
	}
	return 0
}

func setupOutputManager(cfg *config.Config, stdout io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()

	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// Engine drives a whole CLI run: it loads the suite, resolves documents,
// evaluates them in a Batch and reports through the output sinks.
type Engine struct {
	Registry *executor.Registry
	Logger   *slog.Logger

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer

	// newGitHub is a test seam for the library fetcher's GitHub client.
	// If nil, Engine resolves a token and builds a real client.
	newGitHub func(ctx context.Context, cfg *config.Config) (library.GitHubReader, error)
}

func NewEngine(registry *executor.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Registry: registry, Logger: logger}
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// ExpandDocuments resolves document arguments. Arguments containing glob
// metacharacters are expanded with doublestar (files only, sorted) and must
// match at least one file; plain paths are kept as given. Duplicates are
// dropped, keeping the first occurrence.
func ExpandDocuments(patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[{") {
			add(p)
			continue
		}
		if !doublestar.ValidatePathPattern(p) {
			return nil, fmt.Errorf("invalid document pattern %q", p)
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no documents match %q", p)
		}
		slices.Sort(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return out, nil
}

// usesGitHubLibraries reports whether any check loads library code from GitHub.
func usesGitHubLibraries(s *model.Suite) bool {
	for _, c := range s.Checks {
		for _, ref := range c.Library {
			if strings.HasPrefix(strings.TrimSpace(ref), "github:") {
				return true
			}
		}
	}
	return false
}

func (e *Engine) githubReader(ctx context.Context, cfg *config.Config) (library.GitHubReader, error) {
	if e.newGitHub != nil {
		return e.newGitHub(ctx, cfg)
	}
	token, source, err := gh.ResolveToken(ctx, cfg.Runtime.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("resolve github token: %w", err)
	}
	e.logger().Debug("github token", "source", source, "present", token != "")
	opts := []gh.Option{gh.WithTimeout(cfg.Runtime.LibraryTimeout)}
	if cfg.Runtime.Verbose {
		opts = append(opts, gh.WithLogger(e.logger()))
	}
	client, err := gh.NewClient(ctx, token, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func loadSystemMetadata(path string) (*document.SystemMetadata, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open system metadata: %w", err)
	}
	defer f.Close()
	return document.ParseSystemMetadata(f)
}

// coerceParams types --param values the same way selector values are typed.
func coerceParams(raw []string) (map[string]any, error) {
	assignments, err := config.ParseParamAssignments(raw)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(assignments))
	for k, v := range assignments {
		params[k] = selector.Coerce(v)
	}
	return params, nil
}

// buildJobs reads every document. Unreadable documents become failed runs
// rather than aborting the batch.
func buildJobs(docs []string, req Request) (jobs []Job, unreadable []output.DocumentRun) {
	for _, path := range docs {
		raw, err := os.ReadFile(path)
		if err != nil {
			unreadable = append(unreadable, output.DocumentRun{
				Document: path,
				Run: &model.Run{
					ID:               uuid.NewString(),
					Timestamp:        time.Now(),
					ObjectIdentifier: req.ObjectIdentifier,
					SuiteID:          req.Suite.ID,
					Status:           model.StatusFailure,
					ErrorDescription: fmt.Sprintf("read document: %v", err),
					Results:          []model.Result{},
				},
			})
			continue
		}
		r := req
		r.Document = raw
		jobs = append(jobs, Job{Name: path, Request: r})
	}
	return jobs, unreadable
}

// tally folds a finished run into the exit-code inputs.
func tally(run *model.Run, partial, failures *bool) {
	if run.Failed() {
		*partial = true
		return
	}
	for _, res := range run.Results {
		switch res.Status {
		case model.StatusError:
			*partial = true
		case model.StatusFailure:
			*failures = true
		}
	}
}

func (e *Engine) fatal(format string, args ...any) int {
	fmt.Fprintf(e.stderr(), format+"\n", args...)
	return exitCodeForRun(true, false, false)
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	logger := e.logger()
	progress := func(format string, args ...any) {
		if !cfg.Output.NoConsole {
			fmt.Fprintf(e.stderr(), format+"\n", args...)
		}
	}

	s, err := suite.Load(cfg.Run.Suite)
	if err != nil {
		return e.fatal("Error loading suite: %v", err)
	}
	if err := suite.Validate(s); err != nil {
		logger.Warn("suite has problems; affected checks will report ERROR", "suite", s.ID, "error", err)
	}

	docs, err := ExpandDocuments(cfg.Run.Docs)
	if err != nil {
		return e.fatal("Error resolving documents: %v", err)
	}
	progress("Found %d documents.", len(docs))

	sysmeta, err := loadSystemMetadata(cfg.Run.Sysmeta)
	if err != nil {
		return e.fatal("Error reading system metadata: %v", err)
	}
	params, err := coerceParams(cfg.Run.Params)
	if err != nil {
		return e.fatal("Error parsing params: %v", err)
	}

	tempDir := cfg.Run.TempDir
	if tempDir == "" {
		tempDir, err = os.MkdirTemp("", "mdqengine-")
		if err != nil {
			return e.fatal("Error creating temp dir: %v", err)
		}
		defer os.RemoveAll(tempDir)
	} else if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return e.fatal("Error creating temp dir: %v", err)
	}

	libOpts := library.Options{Timeout: cfg.Runtime.LibraryTimeout, Logger: logger}
	if usesGitHubLibraries(s) {
		reader, err := e.githubReader(ctx, cfg)
		if err != nil {
			return e.fatal("Error creating GitHub client: %v", err)
		}
		libOpts.GitHub = reader
	}

	recorder := metrics.NewRecorder()
	runner := NewRunner(Options{
		Registry:     e.Registry,
		Libraries:    library.NewFetcher(libOpts),
		CheckTimeout: cfg.Runtime.CheckTimeout,
		Logger:       logger,
		Observer:     recorder,
	})

	outMgr, err := setupOutputManager(cfg, e.stdout())
	if err != nil {
		return e.fatal("Error creating output sinks: %v", err)
	}
	defer outMgr.Close()

	_ = outMgr.Write(output.Event{Type: "run.started", Documents: len(docs), Checks: len(s.Checks)})

	base := Request{Suite: s, SystemMetadata: sysmeta, Params: params, TempDir: tempDir}
	jobs, unreadable := buildJobs(docs, base)

	var partial, failures bool
	for _, dr := range unreadable {
		logger.Warn("document unreadable", "document", dr.Document, "error", dr.ErrorDescription)
		tally(dr.Run, &partial, &failures)
		_ = outMgr.Write(dr)
	}

	batchErr := runner.Batch(ctx, jobs, cfg.Runtime.Concurrency, func(job Job, run *model.Run) {
		tally(run, &partial, &failures)
		if err := outMgr.Write(output.DocumentRun{Document: job.Name, Run: run}); err != nil {
			logger.Warn("writing run", "document", job.Name, "error", err)
		}
	})
	if batchErr != nil {
		logger.Warn("batch stopped early", "error", batchErr)
		partial = true
	}

	if cfg.Output.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			logger.Warn("writing metrics", "path", cfg.Output.MetricsFile, "error", err)
		}
	}

	code := exitCodeForRun(false, partial, failures)
	_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: code})
	return code
}
