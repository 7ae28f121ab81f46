// Package javascript hosts checks written in JavaScript (ECMAScript 5.1+)
// on the goja runtime.
package javascript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"mdqengine/internal/executor"
)

const Name = "javascript"

func init() {
	executor.Register(executor.Backend{
		Name:        Name,
		Aliases:     []string{"js", "ecmascript"},
		Description: "JavaScript on the embedded goja runtime",
		New:         New,
	})
}

type Executor struct {
	vm       *goja.Runtime
	builtins map[string]struct{}
	logger   *slog.Logger
}

func New(opts executor.Options) (executor.Executor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	vm := goja.New()
	e := &Executor{vm: vm, logger: logger}

	console := vm.NewObject()
	if err := console.Set("log", e.consoleLog); err != nil {
		return nil, fmt.Errorf("install console: %w", err)
	}
	if err := vm.Set("console", console); err != nil {
		return nil, fmt.Errorf("install console: %w", err)
	}

	e.builtins = make(map[string]struct{})
	for _, k := range vm.GlobalObject().Keys() {
		e.builtins[k] = struct{}{}
	}
	return e, nil
}

func (e *Executor) Environment() string { return Name }

func (e *Executor) Bind(name string, value any) error {
	if err := e.vm.Set(name, value); err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	return nil
}

func (e *Executor) Eval(ctx context.Context, code string) (any, error) {
	done := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	v, err := e.vm.RunString(code)
	close(done)
	<-watched
	e.vm.ClearInterrupt()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("evaluation interrupted: %w", context.Cause(ctx))
		}
		var exc *goja.Exception
		if errors.As(err, &exc) && exc.Value() != nil {
			return nil, errors.New(exc.Value().String())
		}
		return nil, err
	}
	return export(v), nil
}

// ExportBindings returns enumerable globals that are not functions, which
// covers bound variables and top-level var declarations.
func (e *Executor) ExportBindings() (map[string]any, error) {
	out := make(map[string]any)
	for _, k := range e.vm.GlobalObject().Keys() {
		if _, builtin := e.builtins[k]; builtin {
			continue
		}
		v := e.vm.Get(k)
		if _, isFn := goja.AssertFunction(v); isFn {
			continue
		}
		out[k] = export(v)
	}
	return out, nil
}

func (e *Executor) Close() error {
	e.vm.Interrupt("closed")
	return nil
}

func (e *Executor) consoleLog(call goja.FunctionCall) goja.Value {
	args := make([]any, 0, len(call.Arguments))
	for _, a := range call.Arguments {
		args = append(args, a.String())
	}
	e.logger.Debug("check console", "environment", Name, "args", args)
	return goja.Undefined()
}

func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return executor.Normalize(v.Export())
}
