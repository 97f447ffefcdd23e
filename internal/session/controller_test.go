package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/romatype/internal/matcher"
	"github.com/verte-zerg/romatype/internal/model"
	"github.com/verte-zerg/romatype/internal/phrases"
)

var epoch = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

// fakeSource returns queued phrases in order and counts requests.
type fakeSource struct {
	queue    []model.Phrase
	err      error
	requests []model.Difficulty
}

func (f *fakeSource) Fetch(_ context.Context, difficulty model.Difficulty) (model.Phrase, error) {
	f.requests = append(f.requests, difficulty)
	if f.err != nil {
		return model.Phrase{}, f.err
	}
	if len(f.queue) == 0 {
		return model.Phrase{}, phrases.ErrNoPhrases
	}
	p := f.queue[0]
	f.queue = f.queue[1:]
	return p, nil
}

type recordingSink struct {
	signals []Signal
}

func (r *recordingSink) Signal(s Signal) {
	r.signals = append(r.signals, s)
}

func startController(t *testing.T, src *fakeSource, difficulty model.Difficulty) (*Controller, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	c := New(src, sink)
	if err := c.Start(context.Background(), difficulty, epoch); err != nil {
		t.Fatalf("start: %v", err)
	}
	return c, sink
}

func TestKaScenario(t *testing.T) {
	src := &fakeSource{queue: []model.Phrase{
		{Text: "か", Romaji: "ka"},
		{Text: "き", Romaji: "ki"},
	}}
	c, sink := startController(t, src, model.Easy)

	out := c.Keystroke("x")
	snap := c.Snapshot()
	if out.Verdict != matcher.Rejected || snap.Errors != 1 || snap.Buffer != "" {
		t.Fatalf("after x: verdict=%v snap=%+v", out.Verdict, snap)
	}

	out = c.Keystroke("k")
	snap = c.Snapshot()
	if out.Verdict != matcher.Accepted || snap.Successes != 1 || snap.Buffer != "k" {
		t.Fatalf("after k: verdict=%v snap=%+v", out.Verdict, snap)
	}

	out = c.Keystroke("ka")
	snap = c.Snapshot()
	if out.Verdict != matcher.Completed || snap.Successes != 2 || snap.Buffer != "" {
		t.Fatalf("after ka: verdict=%v snap=%+v", out.Verdict, snap)
	}
	if !out.NeedPhrase || snap.HasPhrase || !snap.Pending {
		t.Fatalf("expected a pending phrase request: %+v", snap)
	}

	phrase, err := c.Fetch(context.Background(), out.Request)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if err := c.InstallPhrase(out.Request, phrase); err != nil {
		t.Fatalf("install: %v", err)
	}
	snap = c.Snapshot()
	if snap.Phrase.Romaji != "ki" || snap.Buffer != "" || snap.Phrases != 1 {
		t.Fatalf("unexpected snapshot after refresh: %+v", snap)
	}
	if len(src.requests) != 2 {
		t.Fatalf("expected 2 phrase requests, got %d", len(src.requests))
	}

	want := []Signal{SignalRejected, SignalAccepted, SignalCompleted}
	if len(sink.signals) != len(want) {
		t.Fatalf("signals = %v, want %v", sink.signals, want)
	}
	for i := range want {
		if sink.signals[i] != want[i] {
			t.Fatalf("signals = %v, want %v", sink.signals, want)
		}
	}
}

func TestRepeatedCandidateIsNeutral(t *testing.T) {
	c, _ := startController(t, &fakeSource{queue: []model.Phrase{{Romaji: "neko"}}}, model.Easy)
	c.Keystroke("n")
	out := c.Keystroke("n")
	snap := c.Snapshot()
	if out.Verdict != matcher.Neutral || snap.Successes != 1 || snap.Errors != 0 {
		t.Fatalf("repeat should be neutral: verdict=%v snap=%+v", out.Verdict, snap)
	}
}

func TestShrinkingInputKeepsBuffer(t *testing.T) {
	c, _ := startController(t, &fakeSource{queue: []model.Phrase{{Romaji: "neko"}}}, model.Easy)
	c.Keystroke("n")
	c.Keystroke("ne")
	out := c.Keystroke("n")
	if out.Verdict != matcher.Neutral || out.Buffer != "ne" {
		t.Fatalf("shrink: verdict=%v buffer=%q", out.Verdict, out.Buffer)
	}
}

func TestErrorsDoNotBlockCompletion(t *testing.T) {
	c, _ := startController(t, &fakeSource{queue: []model.Phrase{{Romaji: "sushi"}, {Romaji: "ramen"}}}, model.Medium)
	buffer := ""
	for _, r := range "sushi" {
		out := c.Keystroke(buffer + "q")
		if out.Verdict != matcher.Rejected {
			t.Fatalf("expected rejection, got %v", out.Verdict)
		}
		if out.Buffer != buffer {
			t.Fatalf("rejected keystroke should revert to %q, got %q", buffer, out.Buffer)
		}
		out = c.Keystroke(buffer + string(r))
		buffer = out.Buffer
		if out.Verdict == matcher.Completed {
			break
		}
	}
	snap := c.Snapshot()
	if snap.Phrases != 1 || snap.Errors != 5 || snap.Successes != 5 {
		t.Fatalf("unexpected counters %+v", snap)
	}
}

func TestSanitizedInputIgnoresForeignCharacters(t *testing.T) {
	c, _ := startController(t, &fakeSource{queue: []model.Phrase{{Romaji: "ai"}}}, model.Easy)
	out := c.Keystroke("あ")
	if out.Verdict != matcher.Neutral {
		t.Fatalf("non-ascii input should be dropped, got %v", out.Verdict)
	}
	if snap := c.Snapshot(); snap.Errors != 0 || snap.Successes != 0 {
		t.Fatalf("counters changed: %+v", snap)
	}
}

func TestBudgetPerDifficulty(t *testing.T) {
	tests := map[model.Difficulty]time.Duration{
		model.Easy:   120 * time.Second,
		model.Medium: 240 * time.Second,
		model.Hard:   380 * time.Second,
	}
	for d, want := range tests {
		c, _ := startController(t, &fakeSource{queue: []model.Phrase{{Romaji: "a"}}}, d)
		if got := c.SessionState().Budget; got != want {
			t.Fatalf("%s budget = %v, want %v", d, got, want)
		}
		if got := c.Snapshot().Tick.Remaining; got != want {
			t.Fatalf("%s initial remaining = %v, want %v", d, got, want)
		}
	}
}

func TestTickWarningThenExpiry(t *testing.T) {
	c, sink := startController(t, &fakeSource{queue: []model.Phrase{{Romaji: "ka"}}}, model.Easy)
	c.Keystroke("k")

	out := c.Tick(epoch.Add(119900 * time.Millisecond))
	if out.Ended || !out.Tick.Warning || out.Tick.Display() != "0.1s" {
		t.Fatalf("unexpected tick at 119.9s: %+v", out)
	}
	c.Tick(epoch.Add(119950 * time.Millisecond))

	out = c.Tick(epoch.Add(120 * time.Second))
	if !out.Ended || !out.Tick.Expired {
		t.Fatalf("expected session end at 120.0s: %+v", out)
	}
	if c.State() != Ended {
		t.Fatalf("expected ended state, got %v", c.State())
	}
	if out.Result.ElapsedSeconds != 120.0 || out.Result.Successes != 1 || out.Result.Difficulty != model.Easy {
		t.Fatalf("unexpected result %+v", out.Result)
	}

	warnings := 0
	ended := 0
	for _, s := range sink.signals {
		switch s {
		case SignalTimeWarning:
			warnings++
		case SignalSessionEnded:
			ended++
		}
	}
	if warnings != 1 || ended != 1 {
		t.Fatalf("expected one warning and one end signal, got %v", sink.signals)
	}
}

func TestEndedSessionIgnoresEvents(t *testing.T) {
	c, _ := startController(t, &fakeSource{queue: []model.Phrase{{Romaji: "ka"}}}, model.Easy)
	rec, err := c.End(epoch.Add(3 * time.Second))
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if rec.ElapsedSeconds != 3.0 {
		t.Fatalf("unexpected elapsed %v", rec.ElapsedSeconds)
	}
	if out := c.Keystroke("k"); out.Verdict != matcher.Neutral {
		t.Fatalf("input after end should be ignored, got %v", out.Verdict)
	}
	if out := c.Tick(epoch.Add(time.Hour)); out.Ended {
		t.Fatalf("tick after end must not end again")
	}
	if _, err := c.End(epoch); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if _, err := c.RequestPhrase(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	got, ok := c.Result()
	if !ok || got != rec {
		t.Fatalf("Result() = %+v, %v", got, ok)
	}
}

func TestRestartAfterEnd(t *testing.T) {
	src := &fakeSource{queue: []model.Phrase{{Romaji: "ka"}, {Romaji: "ki"}}}
	c, _ := startController(t, src, model.Easy)
	c.Keystroke("x")
	if _, err := c.End(epoch.Add(time.Second)); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := c.Start(context.Background(), model.Hard, epoch.Add(time.Minute)); err != nil {
		t.Fatalf("restart: %v", err)
	}
	snap := c.Snapshot()
	if snap.State != Active || snap.Errors != 0 || snap.Successes != 0 || snap.Difficulty != model.Hard {
		t.Fatalf("restart did not reset: %+v", snap)
	}
}

func TestFetchFailureSurfaces(t *testing.T) {
	boom := errors.New("backend down")
	c := New(&fakeSource{err: boom}, nil)
	err := c.Start(context.Background(), model.Easy, epoch)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	snap := c.Snapshot()
	if snap.State != Active || snap.HasPhrase || snap.Pending {
		t.Fatalf("session should stay active without phrase: %+v", snap)
	}
	if out := c.Keystroke("a"); out.Verdict != matcher.Neutral {
		t.Fatalf("input without phrase should be ignored, got %v", out.Verdict)
	}
	if out := c.Tick(epoch.Add(time.Second)); out.Ended {
		t.Fatalf("ticks continue while phrase is absent")
	}
}

func TestStalePhraseIsDiscarded(t *testing.T) {
	c := New(&fakeSource{}, nil)
	req, err := c.Begin(model.Easy, epoch)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := c.End(epoch.Add(time.Second)); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := c.InstallPhrase(req, model.Phrase{Romaji: "ka"}); !errors.Is(err, ErrStalePhrase) {
		t.Fatalf("expected ErrStalePhrase after end, got %v", err)
	}

	old, _ := c.Begin(model.Easy, epoch)
	fresh, _ := c.Begin(model.Medium, epoch)
	if err := c.InstallPhrase(old, model.Phrase{Romaji: "ka"}); !errors.Is(err, ErrStalePhrase) {
		t.Fatalf("expected ErrStalePhrase for older session, got %v", err)
	}
	if err := c.InstallPhrase(fresh, model.Phrase{Romaji: "ka"}); err != nil {
		t.Fatalf("install fresh: %v", err)
	}
}

func TestEmptyRomajiIsRejected(t *testing.T) {
	c := New(&fakeSource{queue: []model.Phrase{{Text: "No phrase available.", Romaji: ""}}}, nil)
	err := c.Start(context.Background(), model.Easy, epoch)
	if !errors.Is(err, phrases.ErrNoPhrases) {
		t.Fatalf("expected ErrNoPhrases, got %v", err)
	}
}

func TestBeginRejectsUnknownDifficulty(t *testing.T) {
	c := New(&fakeSource{}, nil)
	if _, err := c.Begin(model.Difficulty("expert"), epoch); err == nil {
		t.Fatalf("expected error")
	}
	if c.State() != Idle {
		t.Fatalf("controller should stay idle")
	}
}
