package output

import (
	"io"

	json "github.com/goccy/go-json"
)

type flusher interface {
	Flush() error
}

func flushIfPossible(w io.Writer) error {
	f, ok := w.(flusher)
	if !ok {
		return nil
	}
	return f.Flush()
}

// writeNDJSON writes v as one or more event lines. Values other than
// Event and DocumentRun are ignored.
func writeNDJSON(w io.Writer, v any) error {
	switch t := v.(type) {
	case Event:
		return writeEvents(w, []Event{t})
	case DocumentRun:
		if t.Run == nil {
			return nil
		}
		return writeEvents(w, eventsFromRun(t, t.Results))
	default:
		return nil
	}
}

func writeEvents(w io.Writer, events []Event) error {
	enc := json.NewEncoder(w)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return flushIfPossible(w)
}

func writeJSONArray(w io.Writer, runs []DocumentRun) error {
	if runs == nil {
		runs = []DocumentRun{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return err
	}
	return flushIfPossible(w)
}
