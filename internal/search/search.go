package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultTranscript ResultType = "transcript"
	ResultAnalysis   ResultType = "analysis"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterProjectID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// TranscriptRecord is the data we index for a transcript.
type TranscriptRecord struct {
	ID            string `json:"id"`
	ProjectID     string `json:"projectId"`
	RespNo        string `json:"respno"`
	OriginalName  string `json:"originalName"`
	InterviewDate string `json:"interviewDate"`
}

// AnalysisRecord is the data we index for a saved analysis.
type AnalysisRecord struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
}
