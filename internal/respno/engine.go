package respno

import (
	"context"
	"sort"
	"strings"

	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/store"
)

// Docs is the persistence gateway the engine reconciles through. Documents
// are read and written whole; *store.Collections satisfies this.
type Docs interface {
	LoadTranscripts(ctx context.Context) (map[string][]store.Transcript, error)
	SaveTranscripts(ctx context.Context, byProject map[string][]store.Transcript) error
	LoadAnalyses(ctx context.Context) ([]store.Analysis, error)
	SaveAnalyses(ctx context.Context, analyses []store.Analysis) error
}

// Locker serializes reconciliation per (projectID, analysisID) key. Two
// overlapping whole-document read-modify-write cycles would lose the first
// writer's changes otherwise.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Result reports the outcome of a reconciliation operation. Updated is
// false only when the target analysis does not exist; Count is the size of
// the final inclusion set.
type Result struct {
	Updated bool `json:"updated"`
	Count   int  `json:"count,omitempty"`
}

// Engine owns respondent-code reconciliation for saved analyses.
type Engine struct {
	docs   Docs
	locker Locker
	sink   Sink
}

func NewEngine(docs Docs, locker Locker, sink Sink) *Engine {
	if sink == nil {
		sink = LogSink{}
	}
	return &Engine{docs: docs, locker: locker, sink: sink}
}

// Recompute reassigns respondent codes for one analysis: it rebuilds the
// inclusion set, allocates dense chronological codes, writes changed codes
// back to the transcript document, and rewrites the analysis sheets
// (assignment, dedup, reorder). Running it twice with no intervening change
// performs no further writes.
func (e *Engine) Recompute(ctx context.Context, projectID, analysisID string) (Result, error) {
	release, err := e.locker.Acquire(ctx, lockKey(projectID, analysisID))
	if err != nil {
		return Result{}, err
	}
	defer release()
	return e.recompute(ctx, projectID, analysisID)
}

// RemoveTranscript drops every row and link for one transcript from an
// analysis, then re-runs the full reconciliation so the remaining codes
// close ranks with no gap.
func (e *Engine) RemoveTranscript(ctx context.Context, projectID, analysisID, transcriptID string) (Result, error) {
	release, err := e.locker.Acquire(ctx, lockKey(projectID, analysisID))
	if err != nil {
		return Result{}, err
	}
	defer release()

	analyses, err := e.docs.LoadAnalyses(ctx)
	if err != nil {
		return Result{}, err
	}
	idx := findAnalysis(analyses, projectID, analysisID)
	if idx < 0 || len(analyses[idx].Data) == 0 {
		return Result{Updated: false}, nil
	}

	analysis := &analyses[idx]
	for name, rows := range analysis.Data {
		kept := make([]store.Row, 0, len(rows))
		for _, row := range rows {
			if row.TranscriptID() == transcriptID {
				continue
			}
			kept = append(kept, row)
		}
		analysis.Data[name] = kept
	}
	if len(analysis.Transcripts) > 0 {
		links := make([]store.TranscriptLink, 0, len(analysis.Transcripts))
		for _, link := range analysis.Transcripts {
			if link.ID == transcriptID || link.SourceTranscriptID == transcriptID {
				continue
			}
			links = append(links, link)
		}
		analysis.Transcripts = links
	}
	if err := e.docs.SaveAnalyses(ctx, analyses); err != nil {
		return Result{}, err
	}

	return e.recompute(ctx, projectID, analysisID)
}

// recompute runs the pipeline with the lock already held.
func (e *Engine) recompute(ctx context.Context, projectID, analysisID string) (Result, error) {
	transcriptsByProject, err := e.docs.LoadTranscripts(ctx)
	if err != nil {
		return Result{}, err
	}
	analyses, err := e.docs.LoadAnalyses(ctx)
	if err != nil {
		return Result{}, err
	}
	idx := findAnalysis(analyses, projectID, analysisID)
	if idx < 0 {
		return Result{Updated: false}, nil
	}
	analysis := &analyses[idx]
	projectTranscripts := transcriptsByProject[projectID]

	included, codeToTID := e.buildInclusion(ctx, projectID, analysis, projectTranscripts)
	codeByTID, ordinalByCode := allocate(included, projectTranscripts)

	// Persist reassigned codes onto the transcript document, but only
	// write the collection when at least one code actually moved.
	transcriptsChanged := false
	for i := range projectTranscripts {
		code, ok := codeByTID[projectTranscripts[i].ID]
		if !ok {
			continue
		}
		if strings.TrimSpace(projectTranscripts[i].RespNo) != code {
			projectTranscripts[i].RespNo = code
			transcriptsChanged = true
		}
	}
	if transcriptsChanged {
		transcriptsByProject[projectID] = projectTranscripts
		if err := e.docs.SaveTranscripts(ctx, transcriptsByProject); err != nil {
			return Result{}, err
		}
	}

	byRespNo := map[string]string{}
	for _, t := range projectTranscripts {
		if code := strings.TrimSpace(t.RespNo); code != "" {
			if _, ok := byRespNo[code]; !ok {
				byRespNo[code] = t.ID
			}
		}
	}

	dataChanged := false
	for _, name := range sheetNames(analysis.Data) {
		rows := analysis.Data[name]

		for _, row := range rows {
			if e.setRowRespno(row, codeByTID, codeToTID, byRespNo) {
				dataChanged = true
			}
		}

		// Dedup by transcriptId, first occurrence wins. Rows without a
		// link are always kept.
		seen := map[string]bool{}
		kept := make([]store.Row, 0, len(rows))
		for _, row := range rows {
			tid := row.TranscriptID()
			if tid != "" && seen[tid] {
				dataChanged = true
				e.sink.Event(ctx, Event{
					Type:         EventDuplicateRowRemoved,
					ProjectID:    projectID,
					AnalysisID:   analysisID,
					Sheet:        name,
					TranscriptID: tid,
				})
				continue
			}
			if tid != "" {
				seen[tid] = true
			}
			kept = append(kept, row)
		}

		if reorderRows(kept, ordinalByCode) {
			dataChanged = true
		}
		analysis.Data[name] = kept
	}

	if dataChanged {
		if err := e.docs.SaveAnalyses(ctx, analyses); err != nil {
			return Result{}, err
		}
	}

	return Result{Updated: true, Count: len(included)}, nil
}

// buildInclusion decides which transcripts participate in this analysis's
// numbering. Directly linked rows win; a project transcript that already
// carries a respondent code nothing points at by id is adopted so the
// sequence stays consistent with transcript metadata.
func (e *Engine) buildInclusion(ctx context.Context, projectID string, analysis *store.Analysis, projectTranscripts []store.Transcript) (map[string]bool, map[string]string) {
	included := map[string]bool{}
	codeToTID := map[string]string{}

	for _, name := range sheetNames(analysis.Data) {
		for _, row := range analysis.Data[name] {
			tid := row.TranscriptID()
			if tid != "" {
				included[tid] = true
			}
			code := row.Code()
			if code == "" || tid == "" {
				continue
			}
			if existing, ok := codeToTID[code]; ok {
				if existing != tid {
					e.sink.Event(ctx, Event{
						Type:         EventCodeConflict,
						ProjectID:    projectID,
						AnalysisID:   analysis.ID,
						Sheet:        name,
						TranscriptID: tid,
						Code:         code,
						Detail:       "code already mapped to " + existing,
					})
				}
				continue
			}
			codeToTID[code] = tid
		}
	}

	for _, t := range projectTranscripts {
		code := strings.TrimSpace(t.RespNo)
		if code == "" || included[t.ID] {
			continue
		}
		if _, taken := codeToTID[code]; taken {
			continue
		}
		included[t.ID] = true
	}

	return included, codeToTID
}

// allocate orders the inclusion set chronologically and assigns dense codes
// from R01. The chrono key sorts first, upload time breaks ties, and the id
// string breaks remaining ties, so the assignment is fully deterministic.
func allocate(included map[string]bool, projectTranscripts []store.Transcript) (codeByTID map[string]string, ordinalByCode map[string]int) {
	byID := make(map[string]store.Transcript, len(projectTranscripts))
	for _, t := range projectTranscripts {
		byID[t.ID] = t
	}

	type entry struct {
		tid        string
		ts         int64
		uploadedAt int64
	}
	entries := make([]entry, 0, len(included))
	for tid := range included {
		ent := entry{tid: tid}
		if t, ok := byID[tid]; ok {
			ent.ts = ComputeChronoKey(t.InterviewDate, t.InterviewTime, t.UploadedAt)
			ent.uploadedAt = t.UploadedAt
		}
		entries = append(entries, ent)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ts != entries[j].ts {
			return entries[i].ts < entries[j].ts
		}
		if entries[i].uploadedAt != entries[j].uploadedAt {
			return entries[i].uploadedAt < entries[j].uploadedAt
		}
		return entries[i].tid < entries[j].tid
	})

	codeByTID = make(map[string]string, len(entries))
	ordinalByCode = make(map[string]int, len(entries))
	for i, ent := range entries {
		code := CodeFor(i + 1)
		codeByTID[ent.tid] = code
		ordinalByCode[code] = i + 1
	}
	return codeByTID, ordinalByCode
}

// setRowRespno resolves one row's respondent code: direct transcript link
// first, then the legacy code mapping, then a project-wide respno match.
// Rows resolved through a fallback get their transcriptId backfilled. The
// row is left untouched when nothing resolves. Reports whether the row
// changed.
func (e *Engine) setRowRespno(row store.Row, codeByTID, codeToTID, byRespNo map[string]string) bool {
	apply := func(tid, code string) bool {
		changed := false
		if row.TranscriptID() == "" {
			row.SetTranscriptID(tid)
			changed = true
		}
		if row.Code() != code {
			row.SetCode(code)
			changed = true
		}
		return changed
	}

	if tid := row.TranscriptID(); tid != "" {
		if code, ok := codeByTID[tid]; ok {
			return apply(tid, code)
		}
	}

	existing := row.Code()
	if existing == "" {
		return false
	}
	if tid, ok := codeToTID[existing]; ok {
		if code, ok := codeByTID[tid]; ok {
			return apply(tid, code)
		}
	}
	if tid, ok := byRespNo[existing]; ok {
		if code, ok := codeByTID[tid]; ok {
			return apply(tid, code)
		}
	}
	return false
}

// reorderRows sorts surviving rows into canonical chronological order.
// Rows whose code is unknown sort last in their original relative order.
// Reports whether any row moved.
func reorderRows(rows []store.Row, ordinalByCode map[string]int) bool {
	const sentinel = int(^uint(0) >> 1)
	ordinal := func(row store.Row) int {
		if ord, ok := ordinalByCode[row.Code()]; ok {
			return ord
		}
		return sentinel
	}

	sorted := true
	for i := 1; i < len(rows); i++ {
		if ordinal(rows[i-1]) > ordinal(rows[i]) {
			sorted = false
			break
		}
	}
	if sorted {
		return false
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return ordinal(rows[i]) < ordinal(rows[j])
	})
	return true
}

func findAnalysis(analyses []store.Analysis, projectID, analysisID string) int {
	for i := range analyses {
		if analyses[i].ID == analysisID && analyses[i].ProjectID == projectID {
			return i
		}
	}
	return -1
}

// sheetNames returns sheet names in a stable order so mapping construction
// and diagnostics are reproducible across runs.
func sheetNames(data store.SheetMap) []string {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lockKey(projectID, analysisID string) string {
	return projectID + "/" + analysisID
}
