// Package executor defines the contract every script-execution backend
// satisfies, and the registry that maps environment names to backends.
package executor

import (
	"context"
	"errors"
	"log/slog"
)

var ErrUnsupportedEnvironment = errors.New("unsupported environment")

// Executor holds the variable bindings of one environment and evaluates
// code against them. An Executor belongs to a single run and is not safe for
// concurrent use.
type Executor interface {
	// Environment is the canonical backend name.
	Environment() string

	// Bind sets a variable visible to subsequent Eval calls. Values are
	// nil, string, bool, int64, float64, []any or map[string]any.
	Bind(name string, value any) error

	// Eval runs code and returns its result converted to the same value
	// space Bind accepts. Cancelling ctx must abort a running evaluation.
	Eval(ctx context.Context, code string) (any, error)

	// ExportBindings returns the user-visible variables currently defined,
	// so another environment can be seeded with them.
	ExportBindings() (map[string]any, error)

	Close() error
}

type Options struct {
	// TempDir is a scratch directory checks may write artifacts into.
	TempDir string
	Logger  *slog.Logger
}

type Factory func(opts Options) (Executor, error)

// Backend describes a registered environment.
type Backend struct {
	Name        string
	Aliases     []string
	Description string
	New         Factory
}
