package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileSink writes every run to a file, as one JSON array (json) or as an
// event stream (ndjson).
type FileSink struct {
	path   string
	format string
	file   *os.File
	mu     sync.Mutex
	runs   []DocumentRun
}

func NewFileSink(path string, format string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	if format == "" {
		format = FormatFromPath(path)
		if format == "" {
			return nil, fmt.Errorf("cannot infer output format from file extension %q", filepath.Ext(path))
		}
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &FileSink{path: path, format: format, file: f}, nil
}

// FormatFromPath infers json or ndjson from a file extension, or returns "".
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".ndjson", ".jsonl":
		return "ndjson"
	default:
		return ""
	}
}

func (s *FileSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		if dr, ok := v.(DocumentRun); ok {
			s.runs = append(s.runs, dr)
		}
		return nil
	}
	return writeNDJSON(s.file, v)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.format == "json" {
		err = writeJSONArray(s.file, s.runs)
	}
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
