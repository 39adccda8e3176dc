package respno

import (
	"context"
	"log"
)

// Event is a diagnostic emitted during reconciliation. Events are advisory:
// they surface data oddities without affecting the operation's result.
type Event struct {
	Type         string
	ProjectID    string
	AnalysisID   string
	Sheet        string
	TranscriptID string
	Code         string
	Detail       string
}

const (
	// EventDuplicateRowRemoved fires when a sheet carried more than one row
	// for the same transcript and the later rows were dropped.
	EventDuplicateRowRemoved = "duplicate_row_removed"
	// EventCodeConflict fires when rows map the same respondent code to
	// different transcripts; the earliest-seen mapping wins.
	EventCodeConflict = "code_conflict"
)

// Sink receives reconciliation diagnostics.
type Sink interface {
	Event(ctx context.Context, evt Event)
}

// LogSink writes each diagnostic as a single structured log line.
type LogSink struct{}

func (LogSink) Event(_ context.Context, evt Event) {
	log.Printf(`{"event":"%s","project_id":"%s","analysis_id":"%s","sheet":"%s","transcript_id":"%s","code":"%s","detail":"%s"}`,
		evt.Type, evt.ProjectID, evt.AnalysisID, evt.Sheet, evt.TranscriptID, evt.Code, evt.Detail)
}
