// Package process runs checks in an external interpreter. Bindings are
// written to a JSON file named by MDQ_BINDINGS and the script's standard
// output, parsed as JSON when possible, is the check's return value.
// Interpreters that write the file named by MDQ_STATE hand the variables
// their script defined back to the executor, so later checks see them.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"mdqengine/internal/executor"
)

// BindingsEnv names the environment variable holding the bindings file path.
const BindingsEnv = "MDQ_BINDINGS"

// StateEnv names the environment variable holding the path a script writes
// its JSON-serialisable globals to on exit.
const StateEnv = "MDQ_STATE"

// envValueLimit caps scalar bindings exported as MDQ_<name> variables.
const envValueLimit = 4096

// waitDelay bounds how long a cancelled interpreter's children may hold
// its output pipes open.
const waitDelay = time.Second

// Interpreter describes one external environment.
type Interpreter struct {
	Name        string
	Aliases     []string
	Description string
	// Command is the interpreter invocation; the script path is appended.
	Command   []string
	Extension string
	// Preamble is prepended to every script to load the bindings and, where
	// the language allows, register an exit hook that saves its globals.
	Preamble string
}

var Interpreters = []Interpreter{
	{
		Name:        "python",
		Aliases:     []string{"python3", "py"},
		Description: "Python 3 via the python3 interpreter",
		Command:     []string{"python3"},
		Extension:   ".py",
		Preamble: `import atexit as _mdq_atexit, json as _mdq_json, os as _mdq_os
with open(_mdq_os.environ["` + BindingsEnv + `"]) as _mdq_f:
    globals().update(_mdq_json.load(_mdq_f))
def mdq_return(value):
    print(_mdq_json.dumps(value))
def _mdq_save_state():
    state = {}
    for k, v in list(globals().items()):
        if k.startswith("_") or callable(v) or isinstance(v, type(_mdq_os)):
            continue
        try:
            _mdq_json.dumps(v, allow_nan=False)
        except (TypeError, ValueError):
            continue
        state[k] = v
    with open(_mdq_os.environ["` + StateEnv + `"], "w") as f:
        _mdq_json.dump(state, f, allow_nan=False)
_mdq_atexit.register(_mdq_save_state)
`,
	},
	{
		Name:        "r",
		Aliases:     []string{"rscript"},
		Description: "R via Rscript (requires jsonlite)",
		Command:     []string{"Rscript", "--vanilla"},
		Extension:   ".R",
		Preamble: `local({
  b <- jsonlite::fromJSON(Sys.getenv("` + BindingsEnv + `"), simplifyVector = TRUE)
  for (n in names(b)) assign(n, b[[n]], envir = globalenv())
})
mdq_return <- function(value) cat(jsonlite::toJSON(value, auto_unbox = TRUE), "\n")
.mdq_hook <- new.env()
reg.finalizer(.mdq_hook, function(e) {
  s <- list()
  for (n in ls(globalenv())) {
    v <- get(n, envir = globalenv())
    if (is.function(v) || is.environment(v)) next
    ok <- tryCatch({ jsonlite::toJSON(v, auto_unbox = TRUE); TRUE }, error = function(err) FALSE)
    if (ok) s[[n]] <- v
  }
  out <- if (length(s) == 0) "{}" else jsonlite::toJSON(s, auto_unbox = TRUE, null = "null", digits = NA)
  writeLines(out, Sys.getenv("` + StateEnv + `"))
}, onexit = TRUE)
`,
	},
	{
		Name:        "sh",
		Aliases:     []string{"shell"},
		Description: "POSIX shell via /bin/sh",
		Command:     []string{"/bin/sh"},
		Extension:   ".sh",
	},
}

func init() {
	for _, in := range Interpreters {
		executor.Register(executor.Backend{
			Name:        in.Name,
			Aliases:     in.Aliases,
			Description: in.Description,
			New:         Factory(in),
		})
	}
}

// Factory returns an executor.Factory for in. Start-up fails when the
// interpreter is not installed.
func Factory(in Interpreter) executor.Factory {
	return func(opts executor.Options) (executor.Executor, error) {
		if len(in.Command) == 0 {
			return nil, fmt.Errorf("interpreter %s has no command", in.Name)
		}
		path, err := exec.LookPath(in.Command[0])
		if err != nil {
			return nil, fmt.Errorf("interpreter %s: %w", in.Name, err)
		}
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		return &Executor{
			in:       in,
			path:     path,
			tempDir:  opts.TempDir,
			logger:   logger,
			bindings: make(map[string]any),
		}, nil
	}
}

type Executor struct {
	in       Interpreter
	path     string
	tempDir  string
	logger   *slog.Logger
	bindings map[string]any
}

func (e *Executor) Environment() string { return e.in.Name }

func (e *Executor) Bind(name string, value any) error {
	e.bindings[name] = executor.Normalize(value)
	return nil
}

type runResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

func (e *Executor) Eval(ctx context.Context, code string) (any, error) {
	dir, err := os.MkdirTemp(e.tempDir, "mdq-"+e.in.Name+"-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	bindingsPath := filepath.Join(dir, "bindings.json")
	data, err := json.Marshal(e.bindings)
	if err != nil {
		return nil, fmt.Errorf("encode bindings: %w", err)
	}
	if err := os.WriteFile(bindingsPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write bindings: %w", err)
	}
	scriptPath := filepath.Join(dir, "check"+e.in.Extension)
	if err := os.WriteFile(scriptPath, []byte(e.in.Preamble+code), 0o600); err != nil {
		return nil, fmt.Errorf("write script: %w", err)
	}

	statePath := filepath.Join(dir, "state.json")
	res, err := e.run(ctx, dir, scriptPath, bindingsPath, statePath)
	if err != nil {
		return nil, err
	}
	if err := e.mergeState(statePath); err != nil {
		return nil, err
	}
	e.logger.Debug("interpreter finished",
		"environment", e.in.Name,
		"exit_code", res.ExitCode,
		"duration", res.Duration,
	)
	return parseOutput(res.Stdout), nil
}

func (e *Executor) run(ctx context.Context, dir, scriptPath, bindingsPath, statePath string) (*runResult, error) {
	start := time.Now()
	args := append(append([]string{}, e.in.Command[1:]...), scriptPath)

	//nolint:gosec // G204: running check code in the configured interpreter is the purpose of this backend
	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), e.environ(bindingsPath, statePath)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &runResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("evaluation interrupted after %v: %w", res.Duration.Round(time.Millisecond), context.Cause(ctx))
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, fmt.Errorf("%s exited with status %d: %s", e.in.Name, exitErr.ExitCode(), lastLine(res.Stderr))
	}
	return nil, fmt.Errorf("run %s: %w", e.in.Name, err)
}

// mergeState folds the globals a script saved into the bindings. A missing
// state file means the interpreter keeps no state. Reserved variables are
// rebound for every check and are not taken back.
func (e *Executor) mergeState(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	for name, v := range state {
		if executor.IsReserved(name) {
			continue
		}
		e.bindings[name] = executor.Normalize(v)
	}
	return nil
}

// environ exports the bindings and state file paths and short scalar bindings.
func (e *Executor) environ(bindingsPath, statePath string) []string {
	env := []string{BindingsEnv + "=" + bindingsPath, StateEnv + "=" + statePath}
	for name, v := range e.bindings {
		if "MDQ_"+name == BindingsEnv || "MDQ_"+name == StateEnv {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case int64, float64, bool:
			s = fmt.Sprint(t)
		default:
			continue
		}
		if len(s) > envValueLimit || strings.ContainsRune(s, 0) {
			continue
		}
		env = append(env, "MDQ_"+name+"="+s)
	}
	return env
}

func (e *Executor) ExportBindings() (map[string]any, error) {
	return maps.Clone(e.bindings), nil
}

func (e *Executor) Close() error { return nil }

func parseOutput(stdout string) any {
	out := strings.TrimSpace(stdout)
	if out == "" {
		return nil
	}
	if json.Valid([]byte(out)) {
		var v any
		if err := json.Unmarshal([]byte(out), &v); err == nil {
			return executor.Normalize(v)
		}
	}
	return out
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
