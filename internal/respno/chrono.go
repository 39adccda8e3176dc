// Package respno assigns stable, gapless, chronologically ordered respondent
// codes across a project's transcripts and keeps every saved analysis sheet
// consistent with that ordering.
package respno

import (
	"fmt"
	"strings"
	"time"
)

// chronoLayouts are the calendar forms the dashboard has accepted for
// interview scheduling fields, tried in order.
var chronoLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
	"1/2/2006",
}

// ComputeChronoKey derives the sortable timestamp for a transcript. The
// interview date (plus time when present) wins; an unparseable or missing
// date falls back to the upload time; a zero upload time yields 0. The
// function never fails: bad input degrades to the next fallback.
func ComputeChronoKey(interviewDate, interviewTime string, uploadedAt int64) int64 {
	date := strings.TrimSpace(interviewDate)
	if date != "" {
		composed := date
		if t := strings.TrimSpace(interviewTime); t != "" {
			composed = date + " " + t
		}
		if ts, ok := parseInstant(composed); ok {
			return ts
		}
	}
	if uploadedAt != 0 {
		return uploadedAt
	}
	return 0
}

func parseInstant(value string) (int64, bool) {
	for _, layout := range chronoLayouts {
		if parsed, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return parsed.UnixMilli(), true
		}
	}
	return 0, false
}

// CodeFor formats the respondent code for a 1-based ordinal: zero-padded to
// two digits below 100, unpadded beyond.
func CodeFor(ordinal int) string {
	if ordinal < 100 {
		return fmt.Sprintf("R%02d", ordinal)
	}
	return fmt.Sprintf("R%d", ordinal)
}
