package output

import "mdqengine/internal/model"

// DocumentRun is a finished run labelled with the document it evaluated.
type DocumentRun struct {
	Document string `json:"document"`
	*model.Run
}

// Event is a lifecycle record for NDJSON streaming output:
// run.started, check.result, document.finished and run.finished.
//
// JSON mode is an aggregate of DocumentRun values instead.
type Event struct {
	Type     string `json:"type"`
	Document string `json:"document,omitempty"`
	RunID    string `json:"run_id,omitempty"`
	*model.Result
	RunStatus model.Status         `json:"run_status,omitempty"`
	Summary   map[model.Status]int `json:"summary,omitempty"`
	Error     string               `json:"error,omitempty"`
	Documents int                  `json:"documents,omitempty"`
	Checks    int                  `json:"checks,omitempty"`
	ExitCode  int                  `json:"exit_code,omitempty"`
}

// eventsFromRun expands a finished run into one check.result event per
// given result followed by document.finished, which summarises the whole run.
func eventsFromRun(dr DocumentRun, results []model.Result) []Event {
	if dr.Run == nil {
		return nil
	}
	events := make([]Event, 0, len(results)+1)
	for i := range results {
		events = append(events, Event{
			Type:     "check.result",
			Document: dr.Document,
			RunID:    dr.ID,
			Result:   &results[i],
		})
	}
	return append(events, Event{
		Type:      "document.finished",
		Document:  dr.Document,
		RunID:     dr.ID,
		RunStatus: dr.Status,
		Summary:   dr.Summary(),
		Error:     dr.ErrorDescription,
	})
}
