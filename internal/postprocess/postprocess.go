// Package postprocess rewrites check outputs that name files on disk into
// the base64 encoding of the file's bytes, so artifacts a check generated
// travel back inside the text-only Result.
package postprocess

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"mdqengine/internal/model"
)

const (
	maxPathLen = 4096
	// MaxFileSize is the largest artifact that gets inlined.
	MaxFileSize = 64 << 20
)

type Processor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// Process returns res with every output that names a regular file
// replaced by that file's base64 content. It never fails: values that are
// not paths, or whose file cannot be read, are left as they are.
func (p *Processor) Process(res model.Result) model.Result {
	if len(res.Output) == 0 {
		return res
	}
	out := make([]model.Output, len(res.Output))
	for i, o := range res.Output {
		out[i] = p.output(res.Check.ID, o)
	}
	res.Output = out
	return res
}

func (p *Processor) output(checkID string, o model.Output) model.Output {
	if !plausiblePath(o.Value) {
		return o
	}
	info, err := os.Stat(o.Value)
	if err != nil {
		// Most outputs are not paths at all.
		return o
	}
	if !info.Mode().IsRegular() {
		return o
	}
	data, err := readArtifact(o.Value, info.Size())
	if err != nil {
		p.logger.Warn("output artifact not inlined", "check", checkID, "path", o.Value, "error", err)
		return o
	}
	if o.Type == "" {
		o.Type = mimetype.Detect(data).String()
	}
	o.Value = base64.StdEncoding.EncodeToString(data)
	return o
}

func readArtifact(path string, size int64) ([]byte, error) {
	if size > MaxFileSize {
		return nil, fmt.Errorf("file is %d bytes, limit %d", size, MaxFileSize)
	}
	return os.ReadFile(path)
}

func plausiblePath(v string) bool {
	if v == "" || len(v) > maxPathLen {
		return false
	}
	if strings.ContainsAny(v, "\x00\n\r") {
		return false
	}
	return strings.TrimSpace(v) == v
}
