package javascript

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"mdqengine/internal/executor"
)

func newExecutor(t *testing.T) executor.Executor {
	t.Helper()
	ex, err := New(executor.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = ex.Close() })
	return ex
}

func TestEval_UsesBindings(t *testing.T) {
	ex := newExecutor(t)
	if err := ex.Bind("title", "Lake temperatures"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := ex.Bind("names", []any{"Jones", "Smith"}); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	got, err := ex.Eval(context.Background(), `title.length > 5 && names.length === 2 ? "ok" : "bad"`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != "ok" {
		t.Fatalf("want ok, got %#v", got)
	}
}

func TestEval_ReturnsStructuredValues(t *testing.T) {
	ex := newExecutor(t)
	got, err := ex.Eval(context.Background(), `({status: "FAILURE", output: ["a", 2], message: "m"})`)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	want := map[string]any{"status": "FAILURE", "output": []any{"a", int64(2)}, "message": "m"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}

func TestEval_ThrowIsError(t *testing.T) {
	ex := newExecutor(t)
	_, err := ex.Eval(context.Background(), `throw new Error("title missing")`)
	if err == nil || !strings.Contains(err.Error(), "title missing") {
		t.Fatalf("want error mentioning the thrown message, got %v", err)
	}
}

func TestEval_InterruptedByContext(t *testing.T) {
	ex := newExecutor(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ex.Eval(ctx, `while (true) {}`)
	if err == nil || !strings.Contains(err.Error(), "interrupted") {
		t.Fatalf("want interrupted error, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("evaluation was not interrupted promptly")
	}

	// The runtime stays usable after an interrupt.
	got, err := ex.Eval(context.Background(), `1 + 1`)
	if err != nil || got != int64(2) {
		t.Fatalf("want 2, got %#v (%v)", got, err)
	}
}

func TestExportBindings(t *testing.T) {
	ex := newExecutor(t)
	_ = ex.Bind("count", int64(3))
	if _, err := ex.Eval(context.Background(), `var ratio = count / 2; function helper() {}`); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	got, err := ex.ExportBindings()
	if err != nil {
		t.Fatalf("ExportBindings: %v", err)
	}
	want := map[string]any{"count": int64(3), "ratio": 1.5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}
