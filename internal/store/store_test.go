package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/romatype/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "romatype.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestInsertAndListResults(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	diffs := []model.Difficulty{model.Easy, model.Hard, model.Easy}
	for i, d := range diffs {
		start := base.Add(time.Duration(i) * time.Hour)
		rec := model.ResultRecord{
			Difficulty:     d,
			StartedAt:      start,
			EndedAt:        start.Add(d.Budget()),
			ElapsedSeconds: d.Budget().Seconds(),
			Successes:      100 + i,
			Errors:         i,
			Phrases:        4,
		}
		if _, err := st.InsertResult(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, err := st.ListResults(ctx, model.HistoryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d", len(all))
	}
	if all[1].Difficulty != model.Hard || all[1].ElapsedSeconds != 380 || all[1].Successes != 101 {
		t.Fatalf("unexpected row %+v", all[1])
	}

	easy, err := st.ListResults(ctx, model.HistoryFilter{Difficulty: model.Easy})
	if err != nil {
		t.Fatalf("list easy: %v", err)
	}
	if len(easy) != 2 {
		t.Fatalf("expected 2 easy results, got %d", len(easy))
	}

	since := base.Add(90 * time.Minute)
	recent, err := st.ListResults(ctx, model.HistoryFilter{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 1 || recent[0].Errors != 2 {
		t.Fatalf("unexpected since results %+v", recent)
	}

	last, err := st.ListResults(ctx, model.HistoryFilter{Last: 2})
	if err != nil {
		t.Fatalf("list last: %v", err)
	}
	if len(last) != 2 || last[0].ID != all[1].ID {
		t.Fatalf("unexpected last results %+v", last)
	}
}

func TestAudioDefaultsOff(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	enabled, err := st.Audio(ctx)
	if err != nil || enabled {
		t.Fatalf("fresh store: got %v, %v", enabled, err)
	}
	if err := st.SetBool(ctx, PrefAudio, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if enabled, err = st.Audio(ctx); err != nil || !enabled {
		t.Fatalf("expected audio on, got %v, %v", enabled, err)
	}
}

func TestBoolPreference(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	got, err := st.GetBool(ctx, PrefAudio, false)
	if err != nil || got {
		t.Fatalf("unset preference: got %v, %v", got, err)
	}
	if err := st.SetBool(ctx, PrefAudio, true); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, err = st.GetBool(ctx, PrefAudio, false); err != nil || !got {
		t.Fatalf("expected true, got %v, %v", got, err)
	}
	if err := st.SetBool(ctx, PrefAudio, false); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, err = st.GetBool(ctx, PrefAudio, true); err != nil || got {
		t.Fatalf("expected false, got %v, %v", got, err)
	}
}

func TestListResultsOrdersAcrossOffsets(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	summer := time.FixedZone("CEST", 2*60*60)
	winter := time.FixedZone("CET", 60*60)
	// 00:50Z written with +02:00, then 01:10Z written with +01:00.
	earlier := time.Date(2024, 10, 27, 2, 50, 0, 0, summer)
	later := time.Date(2024, 10, 27, 2, 10, 0, 0, winter)
	for i, ended := range []time.Time{earlier, later} {
		rec := model.ResultRecord{
			Difficulty:     model.Easy,
			StartedAt:      ended.Add(-2 * time.Minute),
			EndedAt:        ended,
			ElapsedSeconds: 120,
			Successes:      i,
		}
		if _, err := st.InsertResult(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	last, err := st.ListResults(ctx, model.HistoryFilter{Last: 1})
	if err != nil {
		t.Fatalf("list last: %v", err)
	}
	if len(last) != 1 || !last[0].EndedAt.Equal(later) {
		t.Fatalf("expected the later session, got %+v", last)
	}

	since := time.Date(2024, 10, 27, 2, 0, 0, 0, winter)
	recent, err := st.ListResults(ctx, model.HistoryFilter{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 1 || recent[0].Successes != 1 {
		t.Fatalf("unexpected since results %+v", recent)
	}
}
