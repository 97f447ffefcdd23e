package result

import (
	"testing"
	"time"

	"github.com/verte-zerg/romatype/internal/model"
)

func TestReportRoundsElapsed(t *testing.T) {
	start := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	state := model.SessionState{
		Difficulty: model.Medium,
		StartedAt:  start,
		Budget:     model.Medium.Budget(),
		Errors:     3,
		Successes:  41,
		Phrases:    2,
		Active:     true,
	}
	rec := Report(state, start.Add(240049*time.Millisecond))
	if rec.ElapsedSeconds != 240.0 {
		t.Fatalf("expected 240.0, got %v", rec.ElapsedSeconds)
	}
	if rec.ElapsedDisplay() != "240.0" {
		t.Fatalf("unexpected display %q", rec.ElapsedDisplay())
	}
	if rec.Successes != 41 || rec.Errors != 3 || rec.Phrases != 2 {
		t.Fatalf("counters not copied: %+v", rec)
	}
	if rec.Difficulty != model.Medium {
		t.Fatalf("unexpected difficulty %q", rec.Difficulty)
	}
}

func TestReportClampsSkew(t *testing.T) {
	start := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	rec := Report(model.SessionState{Difficulty: model.Easy, StartedAt: start}, start.Add(-time.Second))
	if rec.ElapsedSeconds != 0 {
		t.Fatalf("expected clamped elapsed, got %v", rec.ElapsedSeconds)
	}
}

func TestQueryMatchesResultsPageParams(t *testing.T) {
	rec := model.ResultRecord{Difficulty: model.Hard, ElapsedSeconds: 380.04, Successes: 120, Errors: 7}
	q := Query(rec)
	if got := q.Encode(); got != "difficulty=hard&errors=7&successes=120&time=380.0" {
		t.Fatalf("unexpected query %q", got)
	}

}
