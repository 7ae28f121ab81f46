package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mdqengine/internal/dialect"
	"mdqengine/internal/dispatch"
	"mdqengine/internal/document"
	"mdqengine/internal/executor"
	"mdqengine/internal/model"
	"mdqengine/internal/postprocess"
	"mdqengine/internal/selector"
)

// State is a stage of a single run.
type State string

const (
	StateInit        State = "INIT"
	StateParsing     State = "PARSING"
	StateEvaluating  State = "EVALUATING"
	StateParseFailed State = "PARSE_FAILED"
	StateComplete    State = "COMPLETE"
)

// Request is one document to run a suite against.
type Request struct {
	Suite            *model.Suite
	Document         []byte
	SystemMetadata   *document.SystemMetadata
	Params           map[string]any
	TempDir          string
	ObjectIdentifier string
}

// Observer is told about every finished check and run.
type Observer interface {
	CheckFinished(suiteID string, res model.Result, d time.Duration)
	RunFinished(run *model.Run, d time.Duration)
}

type Options struct {
	Registry     *executor.Registry
	Libraries    dispatch.Assembler
	CheckTimeout time.Duration
	Logger       *slog.Logger
	Observer     Observer
	Now          func() time.Time
	NewID        func() string
}

// Runner evaluates suites against documents. It holds no per-run state and
// is safe for concurrent use; every Run builds its own Dispatcher.
type Runner struct {
	registry     *executor.Registry
	libraries    dispatch.Assembler
	checkTimeout time.Duration
	logger       *slog.Logger
	observer     Observer
	now          func() time.Time
	newID        func() string
	matcher      *dialect.Matcher
	post         *postprocess.Processor
}

func NewRunner(opts Options) *Runner {
	r := &Runner{
		registry:     opts.Registry,
		libraries:    opts.Libraries,
		checkTimeout: opts.CheckTimeout,
		logger:       opts.Logger,
		observer:     opts.Observer,
		now:          opts.Now,
		newID:        opts.NewID,
	}
	if r.registry == nil {
		r.registry = executor.Default()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = func() string { return uuid.NewString() }
	}
	r.matcher = dialect.NewMatcher(r.logger)
	r.post = postprocess.New(r.logger)
	return r
}

// Run evaluates every check of req.Suite, in order, against req.Document.
// The returned Run has one Result per check unless the document could not
// be parsed, in which case it has none and status FAILURE.
func (r *Runner) Run(ctx context.Context, req Request) *model.Run {
	start := r.now()
	suite := req.Suite
	if suite == nil {
		suite = &model.Suite{}
	}
	run := &model.Run{
		ID:               r.newID(),
		Timestamp:        start,
		ObjectIdentifier: req.ObjectIdentifier,
		SuiteID:          suite.ID,
		Results:          make([]model.Result, 0, len(suite.Checks)),
	}
	if run.ObjectIdentifier == "" && req.SystemMetadata != nil {
		run.ObjectIdentifier = req.SystemMetadata.Identifier
	}
	logger := r.logger.With("run", run.ID, "suite", suite.ID)
	logger.Debug("run state", "state", StateInit, "checks", len(suite.Checks))

	logger.Debug("run state", "state", StateParsing)
	doc, err := document.Parse(req.Document, req.SystemMetadata)
	if err != nil {
		logger.Warn("run state", "state", StateParseFailed, "error", err)
		run.Status = model.StatusFailure
		run.ErrorDescription = err.Error()
		r.finish(logger, run, start)
		return run
	}
	logger.Debug("document parsed", "format", doc.Format())

	d := dispatch.New(dispatch.Options{
		Registry:     r.registry,
		Libraries:    r.libraries,
		CheckTimeout: r.checkTimeout,
		TempDir:      req.TempDir,
		Logger:       logger,
		Now:          r.now,
	})
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("closing executors", "error", err)
		}
	}()

	for _, check := range suite.Checks {
		logger.Debug("run state", "state", StateEvaluating, "check", check.ID)
		checkStart := r.now()
		res := r.evaluate(ctx, d, doc, check, req)
		if r.observer != nil {
			r.observer.CheckFinished(suite.ID, res, r.now().Sub(checkStart))
		}
		run.Results = append(run.Results, res)
	}

	run.Status = model.StatusSuccess
	r.finish(logger, run, start)
	return run
}

func (r *Runner) finish(logger *slog.Logger, run *model.Run, start time.Time) {
	elapsed := r.now().Sub(start)
	summary := run.Summary()
	logger.Info("run complete",
		"state", StateComplete,
		"status", run.Status,
		"success", summary[model.StatusSuccess],
		"failure", summary[model.StatusFailure],
		"error", summary[model.StatusError],
		"skip", summary[model.StatusSkip],
		"duration", elapsed,
	)
	if r.observer != nil {
		r.observer.RunFinished(run, elapsed)
	}
}

// evaluate produces exactly one Result for check. Every failure, including
// a panic in a backend, becomes an ERROR result.
func (r *Runner) evaluate(ctx context.Context, d *dispatch.Dispatcher, doc document.Context, check model.Check, req Request) (res model.Result) {
	defer func() {
		if p := recover(); p != nil {
			res = model.ErrorResult(check, fmt.Errorf("check panicked: %v", p), r.now())
		}
	}()
	logger := r.logger.With("check", check.ID)

	if err := ctx.Err(); err != nil {
		return model.ErrorResult(check, fmt.Errorf("run cancelled: %w", err), r.now())
	}
	if err := check.Validate(); err != nil {
		return model.ErrorResult(check, err, r.now())
	}

	ok, _, err := r.matcher.IsApplicable(check, doc)
	if err != nil {
		return model.ErrorResult(check, err, r.now())
	}
	if !ok {
		return model.SkipResult(check, "check does not apply to this document dialect", r.now())
	}

	values, err := selector.EvaluateAll(doc, check.Selectors)
	if err != nil {
		return model.ErrorResult(check, err, r.now())
	}
	vars := dispatch.Variables(doc, values, req.Params, req.TempDir)

	res, err = d.Dispatch(ctx, check, vars)
	if err != nil {
		logger.Debug("dispatch failed", "environment", check.Environment, "error", err)
		return model.ErrorResult(check, err, r.now())
	}
	return r.post.Process(res)
}
