// Package dispatch runs one check's code in its execution environment and
// turns the outcome into a Result. A Dispatcher belongs to a single run;
// it carries the live executor between checks for state inheritance.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"mdqengine/internal/executor"
	"mdqengine/internal/model"
	"mdqengine/internal/selector"
)

var (
	ErrStateInheritance = errors.New("state inheritance failed")
	ErrEval             = errors.New("check evaluation failed")
)

// evalError carries the check's own error text unchanged while still
// matching ErrEval.
type evalError struct{ err error }

func (e *evalError) Error() string   { return e.err.Error() }
func (e *evalError) Unwrap() []error { return []error{ErrEval, e.err} }

// Assembler prepends library code to a check's code.
type Assembler interface {
	Assemble(ctx context.Context, refs []string, code string) (string, error)
}

type Options struct {
	Registry     *executor.Registry
	Libraries    Assembler
	CheckTimeout time.Duration
	TempDir      string
	Logger       *slog.Logger
	Now          func() time.Time
}

type Dispatcher struct {
	registry     *executor.Registry
	libraries    Assembler
	checkTimeout time.Duration
	tempDir      string
	logger       *slog.Logger
	now          func() time.Time

	prior executor.Executor
}

func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		registry:     opts.Registry,
		libraries:    opts.Libraries,
		checkTimeout: opts.CheckTimeout,
		tempDir:      opts.TempDir,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if d.registry == nil {
		d.registry = executor.Default()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Dispatch evaluates check with vars bound. Errors cover every way the
// check could not produce its own verdict; callers record them as ERROR.
func (d *Dispatcher) Dispatch(ctx context.Context, check model.Check, vars map[string]any) (model.Result, error) {
	code := check.Code
	if len(check.Library) > 0 {
		if d.libraries == nil {
			return model.Result{}, fmt.Errorf("check %s uses libraries but no fetcher is configured", check.ID)
		}
		var err error
		if code, err = d.libraries.Assemble(ctx, check.Library, check.Code); err != nil {
			return model.Result{}, err
		}
	}

	ex, err := d.executorFor(check)
	if err != nil {
		return model.Result{}, err
	}
	if err := bindAll(ex, vars); err != nil {
		return model.Result{}, err
	}

	evalCtx := ctx
	if d.checkTimeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, d.checkTimeout)
		defer cancel()
	}
	start := d.now()
	value, err := ex.Eval(evalCtx, code)
	d.logger.Debug("check evaluated",
		"check", check.ID,
		"environment", ex.Environment(),
		"duration", d.now().Sub(start),
		"error", err,
	)
	if err != nil {
		return model.Result{}, &evalError{err: err}
	}
	return resultFrom(check, value, d.now()), nil
}

// executorFor returns the executor check runs in and makes it the prior
// executor for the next check.
func (d *Dispatcher) executorFor(check model.Check) (executor.Executor, error) {
	opts := executor.Options{TempDir: d.tempDir, Logger: d.logger}

	if !check.InheritState || d.prior == nil {
		ex, err := d.registry.New(check.Environment, opts)
		if err != nil {
			return nil, err
		}
		d.replacePrior(ex)
		return ex, nil
	}

	if d.registry.SameEnvironment(d.prior.Environment(), check.Environment) {
		d.logger.Debug("inheriting executor", "check", check.ID, "environment", d.prior.Environment())
		return d.prior, nil
	}

	if _, ok := d.registry.Lookup(check.Environment); !ok {
		return nil, fmt.Errorf("%w: %q", executor.ErrUnsupportedEnvironment, check.Environment)
	}
	exported, err := d.prior.ExportBindings()
	if err != nil {
		return nil, fmt.Errorf("%w: export from %s: %w", ErrStateInheritance, d.prior.Environment(), err)
	}
	if len(exported) == 0 {
		return nil, fmt.Errorf("%w: %s environment exposes no bindings to carry into %s",
			ErrStateInheritance, d.prior.Environment(), check.Environment)
	}
	ex, err := d.registry.New(check.Environment, opts)
	if err != nil {
		return nil, err
	}
	for name, v := range exported {
		exported[name] = selector.Retype(v)
	}
	if err := bindAll(ex, exported); err != nil {
		_ = ex.Close()
		return nil, fmt.Errorf("%w: %w", ErrStateInheritance, err)
	}
	d.logger.Debug("rebound state across environments",
		"check", check.ID,
		"from", d.prior.Environment(),
		"to", ex.Environment(),
		"bindings", len(exported),
	)
	d.replacePrior(ex)
	return ex, nil
}

func (d *Dispatcher) replacePrior(ex executor.Executor) {
	if d.prior != nil && d.prior != ex {
		if err := d.prior.Close(); err != nil {
			d.logger.Warn("closing executor", "environment", d.prior.Environment(), "error", err)
		}
	}
	d.prior = ex
}

// Close releases the executor still held for inheritance.
func (d *Dispatcher) Close() error {
	if d.prior == nil {
		return nil
	}
	err := d.prior.Close()
	d.prior = nil
	return err
}

func bindAll(ex executor.Executor, vars map[string]any) error {
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		if err := ex.Bind(name, vars[name]); err != nil {
			return err
		}
	}
	return nil
}
