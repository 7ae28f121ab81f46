package engine

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"mdqengine/internal/config"
	"mdqengine/internal/library"
)

const engineSuite = `id: test.suite
name: Test suite
checks:
  - id: title.present
    environment: javascript
    code: 'title != null ? "ok" : ({status: "FAILURE", message: "no title"})'
    selector:
      - name: title
        xpath: /record/title
  - id: title.long
    environment: javascript
    code: 'title.length > 10 ? "ok" : ({status: "FAILURE", message: "title too short"})'
    selector:
      - name: title
        xpath: /record/title
`

func TestExitCodeForRun(t *testing.T) {
	tests := []struct {
		fatal, partial, failures bool
		want                     int
	}{
		{want: 0},
		{failures: true, want: 1},
		{partial: true, failures: true, want: 2},
		{fatal: true, partial: true, want: 3},
	}
	for _, tt := range tests {
		if got := exitCodeForRun(tt.fatal, tt.partial, tt.failures); got != tt.want {
			t.Errorf("exitCodeForRun(%v, %v, %v) = %d, want %d", tt.fatal, tt.partial, tt.failures, got, tt.want)
		}
	}
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandDocuments(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.xml"), "<a/>")
	b := writeFile(t, filepath.Join(dir, "nested", "deep", "b.xml"), "<b/>")
	writeFile(t, filepath.Join(dir, "nested", "c.json"), "{}")

	got, err := ExpandDocuments([]string{filepath.Join(dir, "**", "*.xml"), a})
	if err != nil {
		t.Fatalf("ExpandDocuments: %v", err)
	}
	if want := []string{a, b}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	literal := filepath.Join(dir, "missing.xml")
	got, err = ExpandDocuments([]string{literal})
	if err != nil || len(got) != 1 || got[0] != literal {
		t.Fatalf("literal path: got %v, %v", got, err)
	}

	if _, err := ExpandDocuments([]string{filepath.Join(dir, "*.yaml")}); err == nil {
		t.Fatal("want error for a glob with no matches")
	}
}

func newTestEngine() (*Engine, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	e := NewEngine(testRegistry(), nil)
	e.Stdout = &stdout
	e.Stderr = &stderr
	return e, &stdout, &stderr
}

func TestEngine_Run(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.Run.Suite = writeFile(t, filepath.Join(dir, "suite.yaml"), engineSuite)
	writeFile(t, filepath.Join(dir, "docs", "long.xml"), "<record><title>A very long title indeed</title></record>")
	writeFile(t, filepath.Join(dir, "docs", "short.xml"), "<record><title>Short</title></record>")
	cfg.Run.Docs = []string{filepath.Join(dir, "docs", "*.xml")}
	cfg.Run.TempDir = filepath.Join(dir, "tmp")
	cfg.Output.Out = filepath.Join(dir, "out", "runs.json")
	cfg.Output.MetricsFile = filepath.Join(dir, "metrics.prom")
	cfg.Runtime.Concurrency = 2
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	e, stdout, _ := newTestEngine()
	if code := e.Run(context.Background(), cfg); code != 1 {
		t.Fatalf("exit code = %d, want 1\n%s", code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "[FAILURE] "+filepath.Join(dir, "docs", "short.xml")+": title.long - title too short") {
		t.Fatalf("console output missing failure line:\n%s", stdout.String())
	}

	b, err := os.ReadFile(cfg.Output.Out)
	if err != nil {
		t.Fatal(err)
	}
	var runs []struct {
		Document string `json:"document"`
		SuiteID  string `json:"suiteId"`
		Results  []struct {
			Status string `json:"status"`
		} `json:"results"`
	}
	if err := json.Unmarshal(b, &runs); err != nil {
		t.Fatalf("decode out file: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("want 2 runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.SuiteID != "test.suite" || len(r.Results) != 2 {
			t.Fatalf("unexpected run: %+v", r)
		}
	}

	prom, err := os.ReadFile(cfg.Output.MetricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), `mdq_checks_total{status="FAILURE",suite="test.suite"} 1`) {
		t.Fatalf("metrics file missing failure count:\n%s", prom)
	}
}

func TestEngine_Run_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	suitePath := writeFile(t, filepath.Join(dir, "suite.yaml"), engineSuite)
	good := writeFile(t, filepath.Join(dir, "good.xml"), "<record><title>A very long title indeed</title></record>")
	junk := writeFile(t, filepath.Join(dir, "junk.txt"), "neither xml nor json")

	tests := []struct {
		name  string
		suite string
		docs  []string
		want  int
	}{
		{name: "clean", suite: suitePath, docs: []string{good}, want: 0},
		{name: "parse failure", suite: suitePath, docs: []string{good, junk}, want: 2},
		{name: "unreadable document", suite: suitePath, docs: []string{filepath.Join(dir, "missing.xml")}, want: 2},
		{name: "missing suite", suite: filepath.Join(dir, "nope.yaml"), docs: []string{good}, want: 3},
		{name: "glob without matches", suite: suitePath, docs: []string{filepath.Join(dir, "*.csv")}, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Run.Suite = tt.suite
			cfg.Run.Docs = tt.docs
			cfg.Output.NoConsole = true
			e, stdout, stderr := newTestEngine()
			if code := e.Run(context.Background(), cfg); code != tt.want {
				t.Fatalf("exit code = %d, want %d\nstderr: %s", code, tt.want, stderr.String())
			}
			if stdout.Len() != 0 {
				t.Fatalf("NoConsole wrote to stdout: %s", stdout.String())
			}
		})
	}
}

type fakeGitHub struct {
	files map[string]string
	calls int
}

func (f *fakeGitHub) FileContents(_ context.Context, owner, repo, path, ref string) (string, *http.Response, error) {
	f.calls++
	body, ok := f.files[owner+"/"+repo+"/"+path+"@"+ref]
	if !ok {
		return "", nil, errors.New("404 Not Found")
	}
	return body, nil, nil
}

func TestEngine_Run_GitHubLibraries(t *testing.T) {
	dir := t.TempDir()
	cfg := config.New()
	cfg.Run.Suite = writeFile(t, filepath.Join(dir, "suite.yaml"), `id: gh.suite
checks:
  - id: uses.library
    environment: javascript
    library:
      - github:acme/checks/lib/title.js@v1
    code: 'titleOK(title) ? "ok" : ({status: "FAILURE"})'
    selector:
      - name: title
        xpath: /record/title
`)
	cfg.Run.Docs = []string{
		writeFile(t, filepath.Join(dir, "a.xml"), "<record><title>Alpha</title></record>"),
		writeFile(t, filepath.Join(dir, "b.xml"), "<record><title>Beta</title></record>"),
	}
	cfg.Run.Params = []string{"min=3"}
	cfg.Output.ConsoleFormat = "ndjson"

	gh := &fakeGitHub{files: map[string]string{
		"acme/checks/lib/title.js@v1": "function titleOK(t) { return t.length >= mdq_params.min; }",
	}}
	e, stdout, stderr := newTestEngine()
	e.newGitHub = func(context.Context, *config.Config) (library.GitHubReader, error) { return gh, nil }

	if code := e.Run(context.Background(), cfg); code != 0 {
		t.Fatalf("exit code = %d, want 0\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}
	if gh.calls != 1 {
		t.Fatalf("library fetched %d times, want 1 (cached)", gh.calls)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if !strings.Contains(lines[0], `"run.started"`) || !strings.Contains(lines[len(lines)-1], `"run.finished"`) {
		t.Fatalf("unexpected event stream:\n%s", stdout)
	}
}
