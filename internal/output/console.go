package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"mdqengine/internal/model"
)

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	runs            []DocumentRun
	allowedStatuses map[model.Status]bool
}

func NewConsoleSink(w io.Writer, format string, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	s := &ConsoleSink{writer: w, format: format}
	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[model.Status]bool)
		for _, st := range filterStatuses {
			if parsed, err := model.ParseStatus(st); err == nil {
				s.allowedStatuses[parsed] = true
			}
		}
	}
	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dr, isRun := v.(DocumentRun)
	var results []model.Result
	if isRun {
		results = s.filter(dr)
	}

	switch s.format {
	case "json":
		if isRun {
			s.runs = append(s.runs, withResults(dr, results))
		}
		return nil
	case "ndjson":
		if isRun {
			return writeEvents(s.writer, eventsFromRun(dr, results))
		}
		return writeNDJSON(s.writer, v)
	case "text":
		if !isRun {
			return nil
		}
		return s.writeText(dr, results)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// filter returns the results whose status is selected. Summaries are
// still computed over the whole run.
func (s *ConsoleSink) filter(dr DocumentRun) []model.Result {
	if dr.Run == nil {
		return nil
	}
	if len(s.allowedStatuses) == 0 {
		return dr.Results
	}
	var out []model.Result
	for _, r := range dr.Results {
		if s.allowedStatuses[r.Status] {
			out = append(out, r)
		}
	}
	return out
}

func withResults(dr DocumentRun, results []model.Result) DocumentRun {
	if dr.Run == nil {
		return dr
	}
	run := *dr.Run
	run.Results = results
	return DocumentRun{Document: dr.Document, Run: &run}
}

func (s *ConsoleSink) writeText(dr DocumentRun, results []model.Result) error {
	if dr.Run == nil {
		return nil
	}
	var b strings.Builder
	if dr.Failed() {
		fmt.Fprintf(&b, "%s %s: %s\n", color.New(color.FgRed, color.Bold).Sprint("[FAILED]"), dr.Document, dr.ErrorDescription)
	}
	for _, r := range results {
		fmt.Fprintf(&b, "%s %s: %s", statusLabel(r.Status), dr.Document, r.Check.ID)
		if r.Message != "" {
			fmt.Fprintf(&b, " - %s", r.Message)
		}
		b.WriteByte('\n')
	}
	if !dr.Failed() {
		sum := dr.Summary()
		fmt.Fprintf(&b, "%s %s: %d success, %d failure, %d error, %d skip\n",
			color.New(color.Bold).Sprint("=="), dr.Document,
			sum[model.StatusSuccess], sum[model.StatusFailure], sum[model.StatusError], sum[model.StatusSkip])
	}
	if _, err := io.WriteString(s.writer, b.String()); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func statusLabel(st model.Status) string {
	label := "[" + string(st) + "]"
	switch st {
	case model.StatusSuccess:
		return color.GreenString(label)
	case model.StatusFailure:
		return color.RedString(label)
	case model.StatusError:
		return color.YellowString(label)
	default:
		return color.New(color.Faint).Sprint(label)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		return writeJSONArray(s.writer, s.runs)
	case "text", "ndjson":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}
