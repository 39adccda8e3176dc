package respno

import (
	"testing"
	"time"
)

func TestComputeChronoKeyFromInterviewDate(t *testing.T) {
	got := ComputeChronoKey("2024-03-05", "", 999)
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got != want {
		t.Errorf("ComputeChronoKey(date only) = %d, want %d", got, want)
	}
}

func TestComputeChronoKeyComposesTime(t *testing.T) {
	got := ComputeChronoKey("2024-03-05", "14:30", 999)
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC).UnixMilli()
	if got != want {
		t.Errorf("ComputeChronoKey(date+time) = %d, want %d", got, want)
	}
}

func TestComputeChronoKeyUSDateLayout(t *testing.T) {
	got := ComputeChronoKey("3/5/2024", "2:30 PM", 0)
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC).UnixMilli()
	if got != want {
		t.Errorf("ComputeChronoKey(US layout) = %d, want %d", got, want)
	}
}

func TestComputeChronoKeyFallbackChain(t *testing.T) {
	if got := ComputeChronoKey("", "", 1700000000000); got != 1700000000000 {
		t.Errorf("missing date: got %d, want uploadedAt", got)
	}
	if got := ComputeChronoKey("not-a-date", "", 5); got != 5 {
		t.Errorf("unparseable date: got %d, want 5", got)
	}
	if got := ComputeChronoKey("", "", 0); got != 0 {
		t.Errorf("empty input: got %d, want 0", got)
	}
	// An unparseable time drags the whole composition down to the fallback.
	if got := ComputeChronoKey("2024-03-05", "sometime after lunch", 42); got != 42 {
		t.Errorf("unparseable time: got %d, want 42", got)
	}
}

func TestCodeForPadding(t *testing.T) {
	cases := []struct {
		ordinal int
		want    string
	}{
		{1, "R01"},
		{9, "R09"},
		{10, "R10"},
		{99, "R99"},
		{100, "R100"},
		{101, "R101"},
	}
	for _, tc := range cases {
		if got := CodeFor(tc.ordinal); got != tc.want {
			t.Errorf("CodeFor(%d) = %q, want %q", tc.ordinal, got, tc.want)
		}
	}
}
