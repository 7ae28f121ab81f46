// Package lua hosts checks written in Lua 5.1 on gopher-lua.
package lua

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	glua "github.com/yuin/gopher-lua"

	"mdqengine/internal/executor"
)

const Name = "lua"

// maxDepth bounds table conversion so self-referencing tables terminate.
const maxDepth = 32

func init() {
	executor.Register(executor.Backend{
		Name:        Name,
		Description: "Lua 5.1 on the embedded gopher-lua VM",
		New:         New,
	})
}

type Executor struct {
	state    *glua.LState
	builtins map[string]struct{}
	logger   *slog.Logger
}

func New(opts executor.Options) (executor.Executor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	L := glua.NewState()
	e := &Executor{state: L, logger: logger, builtins: make(map[string]struct{})}
	L.SetGlobal("print", L.NewFunction(e.print))
	L.G.Global.ForEach(func(k, _ glua.LValue) {
		e.builtins[k.String()] = struct{}{}
	})
	return e, nil
}

func (e *Executor) Environment() string { return Name }

func (e *Executor) Bind(name string, value any) error {
	e.state.SetGlobal(name, toLua(e.state, value))
	return nil
}

// Eval runs code as a chunk; the chunk's first return value is the result.
func (e *Executor) Eval(ctx context.Context, code string) (any, error) {
	L := e.state
	fn, err := L.LoadString(code)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	L.SetContext(ctx)
	defer L.RemoveContext()

	top := L.GetTop()
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		L.SetTop(top)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("evaluation interrupted: %w", context.Cause(ctx))
		}
		var apiErr *glua.ApiError
		if errors.As(err, &apiErr) && apiErr.Object != nil {
			return nil, errors.New(apiErr.Object.String())
		}
		return nil, err
	}
	ret := L.Get(-1)
	L.SetTop(top)
	return fromLua(ret, 0), nil
}

func (e *Executor) ExportBindings() (map[string]any, error) {
	out := make(map[string]any)
	e.state.G.Global.ForEach(func(k, v glua.LValue) {
		name, ok := k.(glua.LString)
		if !ok {
			return
		}
		if _, builtin := e.builtins[string(name)]; builtin {
			return
		}
		switch v.Type() {
		case glua.LTFunction, glua.LTUserData, glua.LTThread, glua.LTChannel:
			return
		}
		out[string(name)] = fromLua(v, 0)
	})
	return out, nil
}

func (e *Executor) Close() error {
	e.state.Close()
	return nil
}

func (e *Executor) print(L *glua.LState) int {
	args := make([]any, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i).String())
	}
	e.logger.Debug("check console", "environment", Name, "args", args)
	return 0
}

func toLua(L *glua.LState, v any) glua.LValue {
	switch t := executor.Normalize(v).(type) {
	case nil:
		return glua.LNil
	case bool:
		return glua.LBool(t)
	case int64:
		return glua.LNumber(t)
	case float64:
		return glua.LNumber(t)
	case string:
		return glua.LString(t)
	case []any:
		tbl := L.CreateTable(len(t), 0)
		for i, e := range t {
			tbl.RawSetInt(i+1, toLua(L, e))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tbl.RawSetString(k, toLua(L, t[k]))
		}
		return tbl
	default:
		return glua.LString(fmt.Sprint(t))
	}
}

func fromLua(v glua.LValue, depth int) any {
	switch t := v.(type) {
	case glua.LBool:
		return bool(t)
	case glua.LNumber:
		return executor.Normalize(float64(t))
	case glua.LString:
		return string(t)
	case *glua.LTable:
		if depth >= maxDepth {
			return nil
		}
		return tableValue(t, depth+1)
	default:
		return nil
	}
}

// tableValue turns a sequence into a list and anything else into a map
// keyed by the string form of each key.
func tableValue(t *glua.LTable, depth int) any {
	n := t.MaxN()
	total := 0
	t.ForEach(func(_, _ glua.LValue) { total++ })
	if n > 0 && n == total {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, fromLua(t.RawGetInt(i), depth))
		}
		return out
	}
	out := make(map[string]any, total)
	t.ForEach(func(k, e glua.LValue) {
		out[k.String()] = fromLua(e, depth)
	})
	return out
}
