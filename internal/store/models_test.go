package store

import "testing"

func TestRowCodePrefersRespondentID(t *testing.T) {
	row := Row{"Respondent ID": " R03 ", "respno": "R09"}
	if got := row.Code(); got != "R03" {
		t.Errorf("Code() = %q, want trimmed Respondent ID", got)
	}
}

func TestRowCodeFallsBackToRespno(t *testing.T) {
	row := Row{"Respondent ID": "   ", "respno": "R09"}
	if got := row.Code(); got != "R09" {
		t.Errorf("Code() = %q, want respno fallback", got)
	}
	if got := (Row{}).Code(); got != "" {
		t.Errorf("Code() on empty row = %q, want empty", got)
	}
}

func TestRowSetCodeWritesExistingKeys(t *testing.T) {
	row := Row{"Respondent ID": "R01", "respno": "R01"}
	row.SetCode("R02")
	if row["Respondent ID"] != "R02" || row["respno"] != "R02" {
		t.Errorf("SetCode should update both present keys, got %v", row)
	}
}

func TestRowSetCodeCreatesRespno(t *testing.T) {
	row := Row{"quote": "…"}
	row.SetCode("R05")
	if row["respno"] != "R05" {
		t.Errorf("SetCode on bare row should create respno, got %v", row)
	}
	if _, ok := row["Respondent ID"]; ok {
		t.Error("SetCode must not invent a Respondent ID column")
	}
}

func TestRowTranscriptIDNonString(t *testing.T) {
	row := Row{"transcriptId": 42}
	if got := row.TranscriptID(); got != "" {
		t.Errorf("TranscriptID() on non-string = %q, want empty", got)
	}
}
