package store

import (
	"encoding/json"
	"strings"
)

// Transcript is one uploaded interview transcript. The JSON keys mirror the
// persisted transcripts document, so documents written by earlier versions of
// the dashboard load unchanged.
type Transcript struct {
	ID            string `json:"id"`
	RespNo        string `json:"respno,omitempty"`
	InterviewDate string `json:"interviewDate,omitempty"`
	InterviewTime string `json:"interviewTime,omitempty"`
	UploadedAt    int64  `json:"uploadedAt,omitempty"`
	OriginalName  string `json:"originalName,omitempty"`
	FileKey       string `json:"fileKey,omitempty"`
}

// TranscriptLink is a lightweight reference an analysis keeps to the
// transcripts it was built from. Older analyses used sourceTranscriptId.
type TranscriptLink struct {
	ID                 string `json:"id,omitempty"`
	SourceTranscriptID string `json:"sourceTranscriptId,omitempty"`
}

// Analysis is one saved content analysis: named sheets of rows plus the
// optional transcript link list.
type Analysis struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"projectId"`
	Name        string           `json:"name,omitempty"`
	Data        SheetMap         `json:"data,omitempty"`
	Transcripts []TranscriptLink `json:"transcripts,omitempty"`
}

// SheetMap maps sheet name to that sheet's ordered rows. Decoding is
// tolerant: a sheet whose value is not an array, and a row that is not an
// object, are treated as absent data rather than a document error.
type SheetMap map[string][]Row

func (m *SheetMap) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := SheetMap{}
	for name, rawRows := range raw {
		var rawList []json.RawMessage
		if err := json.Unmarshal(rawRows, &rawList); err != nil {
			continue
		}
		rows := make([]Row, 0, len(rawList))
		for _, rawRow := range rawList {
			var row Row
			if err := json.Unmarshal(rawRow, &row); err != nil || row == nil {
				continue
			}
			rows = append(rows, row)
		}
		out[name] = rows
	}
	*m = out
	return nil
}

// Row is one sheet row. Sheets have no fixed schema; the recognized keys are
// transcriptId and the respondent-code pair ("Respondent ID" / "respno"),
// which may appear in either or both forms depending on the sheet.
type Row map[string]any

const (
	rowKeyTranscriptID = "transcriptId"
	rowKeyRespondentID = "Respondent ID"
	rowKeyRespNo       = "respno"
)

// TranscriptID returns the row's transcript link, or "" when absent.
func (r Row) TranscriptID() string {
	return stringValue(r[rowKeyTranscriptID])
}

// SetTranscriptID backfills the transcript link on a row that resolved its
// respondent code through a fallback lookup.
func (r Row) SetTranscriptID(id string) {
	r[rowKeyTranscriptID] = id
}

// Code returns the row's respondent code, preferring "Respondent ID" over
// "respno". Whitespace-only values count as absent.
func (r Row) Code() string {
	if code := strings.TrimSpace(stringValue(r[rowKeyRespondentID])); code != "" {
		return code
	}
	return strings.TrimSpace(stringValue(r[rowKeyRespNo]))
}

// SetCode writes a resolved respondent code into whichever code keys the row
// already carries. Rows with neither key get a respno field.
func (r Row) SetCode(code string) {
	wrote := false
	if _, ok := r[rowKeyRespondentID]; ok {
		r[rowKeyRespondentID] = code
		wrote = true
	}
	if _, ok := r[rowKeyRespNo]; ok {
		r[rowKeyRespNo] = code
		wrote = true
	}
	if !wrote {
		r[rowKeyRespNo] = code
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
