// Package native runs checks implemented in Go. A check's code names a
// function registered with Register; the "java" alias lets suites that
// reference compiled checks by class name resolve against the same table.
package native

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"mdqengine/internal/executor"
)

const Name = "native"

// Func is a compiled check. vars holds every binding made for the check.
type Func func(ctx context.Context, vars map[string]any) (any, error)

var (
	funcsMu sync.RWMutex
	funcs   = make(map[string]Func)
)

func init() {
	executor.Register(executor.Backend{
		Name:        Name,
		Aliases:     []string{"java"},
		Description: "checks compiled into the engine, referenced by name",
		New:         New,
	})
}

// Register adds a check function. It panics if name is already taken.
func Register(name string, fn Func) {
	funcsMu.Lock()
	defer funcsMu.Unlock()
	if fn == nil {
		panic("native: nil check func for " + name)
	}
	if _, dup := funcs[name]; dup {
		panic("native: check func already registered: " + name)
	}
	funcs[name] = fn
}

// Names lists registered check functions in sorted order.
func Names() []string {
	funcsMu.RLock()
	defer funcsMu.RUnlock()
	return slices.Sorted(maps.Keys(funcs))
}

func lookup(name string) (Func, bool) {
	funcsMu.RLock()
	defer funcsMu.RUnlock()
	fn, ok := funcs[name]
	return fn, ok
}

type Executor struct {
	bindings map[string]any
}

func New(executor.Options) (executor.Executor, error) {
	return &Executor{bindings: make(map[string]any)}, nil
}

func (e *Executor) Environment() string { return Name }

func (e *Executor) Bind(name string, value any) error {
	e.bindings[name] = value
	return nil
}

// Eval resolves the last non-blank line of code as a check name. Earlier
// lines, such as assembled library text, are ignored.
func (e *Executor) Eval(ctx context.Context, code string) (any, error) {
	ref := reference(code)
	if ref == "" {
		return nil, fmt.Errorf("no check function named in code")
	}
	fn, ok := lookup(ref)
	if !ok {
		return nil, fmt.Errorf("unknown check function %q", ref)
	}
	out, err := fn(ctx, maps.Clone(e.bindings))
	if err != nil {
		return nil, err
	}
	return executor.Normalize(out), nil
}

func (e *Executor) ExportBindings() (map[string]any, error) {
	return maps.Clone(e.bindings), nil
}

func (e *Executor) Close() error { return nil }

func reference(code string) string {
	lines := strings.Split(code, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// Success, Failure and Skip build the status-map return convention a
// dispatched check result is mapped from.
func Success(output ...any) map[string]any { return outcome("SUCCESS", "", output) }

func Failure(message string, output ...any) map[string]any {
	return outcome("FAILURE", message, output)
}

func Skip(message string) map[string]any { return outcome("SKIP", message, nil) }

func outcome(status, message string, output []any) map[string]any {
	m := map[string]any{"status": status}
	if message != "" {
		m["message"] = message
	}
	if len(output) > 0 {
		m["output"] = output
	}
	return m
}
