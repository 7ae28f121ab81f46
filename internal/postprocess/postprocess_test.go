package postprocess

import (
	"bytes"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"mdqengine/internal/model"
)

func TestProcess_InlinesFiles(t *testing.T) {
	dir := t.TempDir()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	imgPath := filepath.Join(dir, "plot.png")
	if err := os.WriteFile(imgPath, png, 0o600); err != nil {
		t.Fatal(err)
	}
	typedPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(typedPath, []byte("a,b\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	res := model.Result{
		Check:  model.CheckRef{ID: "c"},
		Status: model.StatusSuccess,
		Output: []model.Output{
			{Value: imgPath},
			{Value: typedPath, Type: "text/csv"},
			{Value: "just a sentence"},
			{Value: dir},
			{Value: ""},
		},
	}
	got := New(nil).Process(res)

	decoded, err := base64.StdEncoding.DecodeString(got.Output[0].Value)
	if err != nil || !bytes.Equal(decoded, png) {
		t.Fatalf("file bytes not round-tripped: %v", err)
	}
	if got.Output[0].Type != "image/png" {
		t.Fatalf("want sniffed image/png, got %q", got.Output[0].Type)
	}
	if got.Output[1].Type != "text/csv" {
		t.Fatalf("existing type overwritten: %q", got.Output[1].Type)
	}
	if got.Output[2].Value != "just a sentence" || got.Output[3].Value != dir || got.Output[4].Value != "" {
		t.Fatalf("non-file outputs changed: %+v", got.Output[2:])
	}
	if res.Output[0].Value != imgPath {
		t.Fatal("input result was mutated")
	}
}

func TestProcess_UnreadableFileLeftUnchanged(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("needs file permissions to be enforced")
	}
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte("x"), 0o000); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	p := New(slog.New(slog.NewTextHandler(&logs, nil)))

	got := p.Process(model.Result{Output: []model.Output{{Value: path}}})
	if got.Output[0].Value != path {
		t.Fatalf("value changed: %q", got.Output[0].Value)
	}
	if !strings.Contains(logs.String(), "not inlined") {
		t.Fatalf("expected a warning, got %q", logs.String())
	}
}

func TestPlausiblePath(t *testing.T) {
	tests := map[string]bool{
		"/tmp/x.png":        true,
		"relative/file.txt": true,
		"":                  false,
		"two\nlines":        false,
		"nul\x00byte":       false,
		" padded ":          false,
	}
	tests[strings.Repeat("a", maxPathLen+1)] = false
	for in, want := range tests {
		if got := plausiblePath(in); got != want {
			t.Errorf("plausiblePath(%q) = %v, want %v", in, got, want)
		}
	}
}
