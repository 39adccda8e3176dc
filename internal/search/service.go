package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to a
// document-store scan.
type Service struct {
	meili *Meili
	scan  *Scan
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, scan *Scan) *Service {
	return &Service{meili: meili, scan: scan}
}

// Search tries Meilisearch if healthy, otherwise falls back to scanning.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to scan: %v", err)
	}

	results, total, err := s.scan.Search(q)
	if err != nil {
		log.Printf("search: scan error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexTranscript indexes a transcript (fire-and-forget to Meilisearch).
func (s *Service) IndexTranscript(t TranscriptRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexTranscript(t); err != nil {
			log.Printf("search: index transcript %s: %v", t.ID, err)
		}
	}()
}

// IndexAnalysis indexes an analysis (fire-and-forget to Meilisearch).
func (s *Service) IndexAnalysis(a AnalysisRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexAnalysis(a); err != nil {
			log.Printf("search: index analysis %s: %v", a.ID, err)
		}
	}()
}

// DeleteTranscript removes a transcript from the search index
// (fire-and-forget).
func (s *Service) DeleteTranscript(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteTranscript(id); err != nil {
			log.Printf("search: delete transcript %s: %v", id, err)
		}
	}()
}

// ReindexAll reads both collections and pushes them to Meilisearch. Called
// during bootstrap when Meilisearch is healthy.
func (s *Service) ReindexAll(transcripts []TranscriptRecord, analyses []AnalysisRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if len(transcripts) > 0 {
		if err := s.meili.IndexTranscripts(transcripts); err != nil {
			log.Printf("search: reindex transcripts: %v", err)
		}
	}
	if len(analyses) > 0 {
		if err := s.meili.IndexAnalyses(analyses); err != nil {
			log.Printf("search: reindex analyses: %v", err)
		}
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
