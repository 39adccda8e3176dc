package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/blob"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/respno"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/search"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/snapshot"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/store"
	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/util"
)

type documents interface {
	LoadTranscripts(ctx context.Context) (map[string][]store.Transcript, error)
	SaveTranscripts(ctx context.Context, byProject map[string][]store.Transcript) error
	LoadAnalyses(ctx context.Context) ([]store.Analysis, error)
	SaveAnalyses(ctx context.Context, analyses []store.Analysis) error
	Ping(ctx context.Context) error
}

type reconciler interface {
	Recompute(ctx context.Context, projectID, analysisID string) (respno.Result, error)
	RemoveTranscript(ctx context.Context, projectID, analysisID, transcriptID string) (respno.Result, error)
}

type searcher interface {
	Search(q search.Query) search.Response
	IndexTranscript(t search.TranscriptRecord)
	IndexAnalysis(a search.AnalysisRecord)
	DeleteTranscript(id string)
}

type uploadStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

type snapshotter interface {
	Record(projectID, analysisID string, payload []byte, actor, message string) (snapshot.CommitInfo, error)
	History(projectID, analysisID string, limit int) ([]snapshot.CommitInfo, error)
	Content(projectID, analysisID, hash string) ([]byte, error)
}

// SaveAnalysisInput is the PUT body for an analysis document. Data carries
// the full sheet map; the server never merges partial sheets.
type SaveAnalysisInput struct {
	Name        string                 `json:"name"`
	Data        store.SheetMap         `json:"data"`
	Transcripts []store.TranscriptLink `json:"transcripts"`
	SavedBy     string                 `json:"savedBy"`
}

type Service struct {
	docs      documents
	engine    reconciler
	search    searcher
	uploads   uploadStore // nil when no object store is configured
	snapshots snapshotter // nil disables analysis history
}

func NewService(docs documents, engine reconciler, searchSvc searcher, uploads uploadStore, snapshots snapshotter) *Service {
	return &Service{
		docs:      docs,
		engine:    engine,
		search:    searchSvc,
		uploads:   uploads,
		snapshots: snapshots,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.docs.Ping(ctx)
}

func (s *Service) ListTranscripts(ctx context.Context, projectID string) ([]store.Transcript, error) {
	byProject, err := s.docs.LoadTranscripts(ctx)
	if err != nil {
		return nil, err
	}
	transcripts := byProject[projectID]
	if transcripts == nil {
		transcripts = []store.Transcript{}
	}
	return transcripts, nil
}

// UploadTranscript registers one uploaded interview file: the raw bytes go
// to the object store when one is configured, the metadata is appended to
// the project's transcript list, and the search index learns about it.
// Respondent codes are not assigned here; that happens when an analysis
// reconciles.
func (s *Service) UploadTranscript(ctx context.Context, projectID, filename, contentType string, body []byte, interviewDate, interviewTime string) (store.Transcript, error) {
	if strings.TrimSpace(filename) == "" {
		return store.Transcript{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required", nil)
	}

	transcript := store.Transcript{
		ID:            util.NewID("tr"),
		InterviewDate: strings.TrimSpace(interviewDate),
		InterviewTime: strings.TrimSpace(interviewTime),
		UploadedAt:    time.Now().UnixMilli(),
		OriginalName:  filename,
	}

	if s.uploads != nil {
		key := blob.Key(projectID, transcript.ID, filename)
		if err := s.uploads.Put(ctx, key, body, contentType); err != nil {
			return store.Transcript{}, fmt.Errorf("store transcript file: %w", err)
		}
		transcript.FileKey = key
	}

	byProject, err := s.docs.LoadTranscripts(ctx)
	if err != nil {
		return store.Transcript{}, err
	}
	byProject[projectID] = append(byProject[projectID], transcript)
	if err := s.docs.SaveTranscripts(ctx, byProject); err != nil {
		return store.Transcript{}, err
	}

	s.search.IndexTranscript(search.TranscriptRecord{
		ID:            transcript.ID,
		ProjectID:     projectID,
		RespNo:        transcript.RespNo,
		OriginalName:  transcript.OriginalName,
		InterviewDate: transcript.InterviewDate,
	})
	return transcript, nil
}

// TranscriptFile returns the stored raw bytes for one transcript along with
// its original filename.
func (s *Service) TranscriptFile(ctx context.Context, projectID, transcriptID string) ([]byte, string, error) {
	transcript, err := s.findTranscript(ctx, projectID, transcriptID)
	if err != nil {
		return nil, "", err
	}
	if s.uploads == nil || transcript.FileKey == "" {
		return nil, "", domainError(http.StatusNotFound, "NOT_FOUND", "No stored file for transcript", nil)
	}
	body, err := s.uploads.Get(ctx, transcript.FileKey)
	if err != nil {
		return nil, "", err
	}
	return body, transcript.OriginalName, nil
}

// DeleteTranscript removes a transcript from its project entirely. Analyses
// that still reference it keep their rows until their next reconciliation.
func (s *Service) DeleteTranscript(ctx context.Context, projectID, transcriptID string) error {
	byProject, err := s.docs.LoadTranscripts(ctx)
	if err != nil {
		return err
	}
	transcripts := byProject[projectID]
	kept := make([]store.Transcript, 0, len(transcripts))
	var removed *store.Transcript
	for _, t := range transcripts {
		if t.ID == transcriptID {
			copied := t
			removed = &copied
			continue
		}
		kept = append(kept, t)
	}
	if removed == nil {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Transcript not found", nil)
	}
	byProject[projectID] = kept
	if err := s.docs.SaveTranscripts(ctx, byProject); err != nil {
		return err
	}

	if s.uploads != nil && removed.FileKey != "" {
		if err := s.uploads.Remove(ctx, removed.FileKey); err != nil {
			log.Printf("app: remove stored file %s: %v", removed.FileKey, err)
		}
	}
	s.search.DeleteTranscript(transcriptID)
	return nil
}

func (s *Service) ListAnalyses(ctx context.Context, projectID string) ([]store.Analysis, error) {
	analyses, err := s.docs.LoadAnalyses(ctx)
	if err != nil {
		return nil, err
	}
	matched := []store.Analysis{}
	for _, a := range analyses {
		if a.ProjectID == projectID {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func (s *Service) GetAnalysis(ctx context.Context, projectID, analysisID string) (store.Analysis, error) {
	analyses, err := s.docs.LoadAnalyses(ctx)
	if err != nil {
		return store.Analysis{}, err
	}
	for _, a := range analyses {
		if a.ID == analysisID && a.ProjectID == projectID {
			return a, nil
		}
	}
	return store.Analysis{}, domainError(http.StatusNotFound, "NOT_FOUND", "Analysis not found", nil)
}

// SaveAnalysis upserts the analysis document, reconciles respondent codes,
// and records a snapshot of the resulting state.
func (s *Service) SaveAnalysis(ctx context.Context, projectID, analysisID string, input SaveAnalysisInput) (store.Analysis, respno.Result, error) {
	analyses, err := s.docs.LoadAnalyses(ctx)
	if err != nil {
		return store.Analysis{}, respno.Result{}, err
	}

	idx := -1
	for i := range analyses {
		if analyses[i].ID == analysisID && analyses[i].ProjectID == projectID {
			idx = i
			break
		}
	}
	if idx < 0 {
		analyses = append(analyses, store.Analysis{ID: analysisID, ProjectID: projectID})
		idx = len(analyses) - 1
	}
	if input.Name != "" {
		analyses[idx].Name = input.Name
	}
	analyses[idx].Data = input.Data
	analyses[idx].Transcripts = input.Transcripts
	if err := s.docs.SaveAnalyses(ctx, analyses); err != nil {
		return store.Analysis{}, respno.Result{}, err
	}

	result, err := s.engine.Recompute(ctx, projectID, analysisID)
	if err != nil {
		return store.Analysis{}, respno.Result{}, err
	}

	saved, err := s.GetAnalysis(ctx, projectID, analysisID)
	if err != nil {
		return store.Analysis{}, respno.Result{}, err
	}

	s.recordSnapshot(projectID, saved, input.SavedBy, "Save analysis "+displayName(saved))
	s.search.IndexAnalysis(search.AnalysisRecord{
		ID:        saved.ID,
		ProjectID: projectID,
		Name:      saved.Name,
	})
	return saved, result, nil
}

func (s *Service) Recompute(ctx context.Context, projectID, analysisID string) (respno.Result, error) {
	return s.engine.Recompute(ctx, projectID, analysisID)
}

// RemoveFromAnalysis drops one transcript's rows and links from an analysis
// and reconciles the remaining codes.
func (s *Service) RemoveFromAnalysis(ctx context.Context, projectID, analysisID, transcriptID string) (respno.Result, error) {
	result, err := s.engine.RemoveTranscript(ctx, projectID, analysisID, transcriptID)
	if err != nil {
		return respno.Result{}, err
	}
	if result.Updated {
		if saved, err := s.GetAnalysis(ctx, projectID, analysisID); err == nil {
			s.recordSnapshot(projectID, saved, "", "Remove transcript "+transcriptID+" from "+displayName(saved))
		}
	}
	return result, nil
}

// ExportSheetCSV renders one sheet in its stored (canonical) row order. The
// header is the union of row keys with the respondent-code and transcript
// link columns hoisted to the front.
func (s *Service) ExportSheetCSV(ctx context.Context, projectID, analysisID, sheetName string) ([]byte, error) {
	analysis, err := s.GetAnalysis(ctx, projectID, analysisID)
	if err != nil {
		return nil, err
	}
	rows, ok := analysis.Data[sheetName]
	if !ok {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Sheet not found", nil)
	}

	headers := sheetHeaders(rows)
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(headers))
	for _, row := range rows {
		for i, header := range headers {
			record[i] = cellString(row[header])
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) History(projectID, analysisID string, limit int) ([]snapshot.CommitInfo, error) {
	if s.snapshots == nil {
		return []snapshot.CommitInfo{}, nil
	}
	return s.snapshots.History(projectID, analysisID, limit)
}

func (s *Service) SnapshotContent(projectID, analysisID, hash string) ([]byte, error) {
	if s.snapshots == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Snapshots are not enabled", nil)
	}
	body, err := s.snapshots.Content(projectID, analysisID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Snapshot not found", nil)
	}
	return body, nil
}

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) recordSnapshot(projectID string, analysis store.Analysis, actor, message string) {
	if s.snapshots == nil {
		return
	}
	if actor == "" {
		actor = "system"
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		log.Printf("app: encode snapshot for %s: %v", analysis.ID, err)
		return
	}
	if _, err := s.snapshots.Record(projectID, analysis.ID, payload, actor, message); err != nil {
		log.Printf("app: record snapshot for %s: %v", analysis.ID, err)
	}
}

func (s *Service) findTranscript(ctx context.Context, projectID, transcriptID string) (store.Transcript, error) {
	byProject, err := s.docs.LoadTranscripts(ctx)
	if err != nil {
		return store.Transcript{}, err
	}
	for _, t := range byProject[projectID] {
		if t.ID == transcriptID {
			return t, nil
		}
	}
	return store.Transcript{}, domainError(http.StatusNotFound, "NOT_FOUND", "Transcript not found", nil)
}

func sheetHeaders(rows []store.Row) []string {
	leading := []string{"Respondent ID", "respno", "transcriptId"}
	present := map[string]bool{}
	for _, row := range rows {
		for key := range row {
			present[key] = true
		}
	}

	headers := []string{}
	for _, key := range leading {
		if present[key] {
			headers = append(headers, key)
			delete(present, key)
		}
	}
	rest := make([]string, 0, len(present))
	for key := range present {
		rest = append(rest, key)
	}
	sort.Strings(rest)
	return append(headers, rest...)
}

func cellString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func displayName(analysis store.Analysis) string {
	if analysis.Name != "" {
		return analysis.Name
	}
	return analysis.ID
}
