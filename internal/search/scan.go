package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/lukeborglin-coder/jaice-dashboard-sub005/internal/store"
)

type documents interface {
	LoadTranscripts(ctx context.Context) (map[string][]store.Transcript, error)
	LoadAnalyses(ctx context.Context) ([]store.Analysis, error)
}

// Scan is the fallback searcher: a case-insensitive substring scan over the
// collection documents. The documents are small enough to read whole, which
// is the only access the store offers anyway.
type Scan struct {
	docs documents
}

func NewScan(docs documents) *Scan {
	return &Scan{docs: docs}
}

func (s *Scan) Healthy() bool {
	return true
}

func (s *Scan) Search(q Query) ([]Result, int, error) {
	ctx := context.Background()
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	if needle == "" {
		return []Result{}, 0, nil
	}

	var results []Result

	if q.FilterType == "" || q.FilterType == ResultTranscript {
		byProject, err := s.docs.LoadTranscripts(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transcripts: %w", err)
		}
		for projectID, transcripts := range byProject {
			if q.FilterProjectID != "" && q.FilterProjectID != projectID {
				continue
			}
			for _, t := range transcripts {
				if matchesAny(needle, t.OriginalName, t.RespNo, t.InterviewDate) {
					results = append(results, Result{
						Type:      ResultTranscript,
						ID:        t.ID,
						ProjectID: projectID,
						Title:     t.OriginalName,
						Snippet:   t.RespNo,
					})
				}
			}
		}
	}

	if q.FilterType == "" || q.FilterType == ResultAnalysis {
		analyses, err := s.docs.LoadAnalyses(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan analyses: %w", err)
		}
		for _, a := range analyses {
			if q.FilterProjectID != "" && q.FilterProjectID != a.ProjectID {
				continue
			}
			if matchesAny(needle, a.Name, a.ID) {
				results = append(results, Result{
					Type:      ResultAnalysis,
					ID:        a.ID,
					ProjectID: a.ProjectID,
					Title:     a.Name,
				})
			}
		}
	}

	total := len(results)
	results = page(results, q.Offset, q.Limit)
	return results, total, nil
}

func matchesAny(needle string, fields ...string) bool {
	for _, field := range fields {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func page(results []Result, offset, limit int) []Result {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
