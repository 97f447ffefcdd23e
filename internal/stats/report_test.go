package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/romatype/internal/model"
	"github.com/verte-zerg/romatype/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "romatype.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Hour)
		rec := model.ResultRecord{
			Difficulty:     model.Easy,
			StartedAt:      start,
			EndedAt:        start.Add(120 * time.Second),
			ElapsedSeconds: 120,
			Successes:      240,
			Errors:         10 * i,
			Phrases:        12,
		}
		id, err := st.InsertResult(ctx, rec)
		if err != nil {
			t.Fatalf("insert result: %v", err)
		}
		ids = append(ids, id)
	}

	report, err := BuildReport(ctx, st, model.HistoryFilter{Difficulty: model.Easy, Last: 2}, 2)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].ID != ids[1] || report.Results[1].ID != ids[2] {
		t.Fatalf("unexpected result ids: %+v", report.Results)
	}
	if report.ByLevel[model.Easy] != 2 || report.TotalErrors != 30 || report.TotalTyped != 480 {
		t.Fatalf("unexpected totals: %+v", report)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Phrases completed: 24", "Avg keys/min: 120.0", "Keys/min", "easy",
		"By level: easy 2, medium 0, hard 0", "Keys typed: 480  Misses: 30", "Learning curves", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, nil, 5); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No sessions found." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestSessionMetrics(t *testing.T) {
	kpm, acc := SessionMetrics(90, 10, 60)
	if kpm != 90 || acc != 0.9 {
		t.Fatalf("got kpm=%v acc=%v", kpm, acc)
	}
	kpm, acc = SessionMetrics(0, 0, 0)
	if kpm != 0 || acc != 0 {
		t.Fatalf("expected zeros, got kpm=%v acc=%v", kpm, acc)
	}
}

func TestSparklineFlatAndRange(t *testing.T) {
	if got := Sparkline([]float64{5, 5, 5}); got != "+++" {
		t.Fatalf("flat sparkline %q", got)
	}
	if got := Sparkline([]float64{0, 100}); got != " @" {
		t.Fatalf("range sparkline %q", got)
	}
	if got := MovingAverage([]float64{2, 4, 6}, 2); got[2] != 5 {
		t.Fatalf("moving average %v", got)
	}
}

func TestRenderResultsTableTruncatesToWidth(t *testing.T) {
	results := []model.StoredResult{{ID: 1, ResultRecord: model.ResultRecord{
		Difficulty:     model.Hard,
		EndedAt:        time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
		ElapsedSeconds: 380,
		Successes:      900,
		Errors:         12,
		Phrases:        31,
	}}}
	var buf bytes.Buffer
	if err := RenderResultsTable(&buf, results, 20); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if displayWidth(line) > 20 {
			t.Fatalf("line wider than 20 cells: %q", line)
		}
	}
}
