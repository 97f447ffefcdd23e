// Package session runs the typing session state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/romatype/internal/clock"
	"github.com/verte-zerg/romatype/internal/matcher"
	"github.com/verte-zerg/romatype/internal/model"
	"github.com/verte-zerg/romatype/internal/phrases"
	"github.com/verte-zerg/romatype/internal/result"
)

// State is the lifecycle state of a controller.
type State int

// Controller states.
const (
	Idle State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return "idle"
	}
}

var (
	// ErrNotActive is returned for operations that need an active session.
	ErrNotActive = errors.New("session is not active")
	// ErrStalePhrase is returned when a phrase resolves for a request that is no longer current.
	ErrStalePhrase = errors.New("phrase request is stale")
)

// PhraseRequest identifies one outstanding phrase fetch.
type PhraseRequest struct {
	Epoch      uint64
	Difficulty model.Difficulty
}

// Outcome describes the effect of one keystroke.
type Outcome struct {
	Verdict matcher.Verdict
	Buffer  string
	// NeedPhrase is set when the phrase was completed; Request must be resolved
	// through Fetch and InstallPhrase before input is accepted again.
	NeedPhrase bool
	Request    PhraseRequest
}

// TickOutcome is the result of one clock tick.
type TickOutcome struct {
	Tick   model.Tick
	Ended  bool
	Result model.ResultRecord
}

// Snapshot is a read-only view of the controller for rendering.
type Snapshot struct {
	State      State
	Epoch      uint64
	Difficulty model.Difficulty
	Phrase     model.Phrase
	HasPhrase  bool
	Pending    bool
	Buffer     string
	Errors     int
	Successes  int
	Phrases    int
	Tick       model.Tick
}

// Controller owns one session at a time: counters, buffer, phrase and clock.
// All methods are safe for concurrent use; keystrokes are applied one at a time.
type Controller struct {
	mu     sync.Mutex
	source phrases.Source
	sink   Sink

	state     State
	epoch     uint64
	clock     clock.Clock
	session   model.SessionState
	phrase    model.Phrase
	hasPhrase bool
	pending   bool
	warned    bool
	lastTick  model.Tick
	result    model.ResultRecord
}

// New returns an idle controller. A nil sink discards signals.
func New(source phrases.Source, sink Sink) *Controller {
	if sink == nil {
		sink = discardSink{}
	}
	return &Controller{source: source, sink: sink}
}

// Start begins a session and loads its first phrase synchronously.
// On fetch failure the session stays active without a phrase and the error is returned.
func (c *Controller) Start(ctx context.Context, difficulty model.Difficulty, now time.Time) error {
	req, err := c.Begin(difficulty, now)
	if err != nil {
		return err
	}
	return c.resolve(ctx, req)
}

// Begin resets counters, starts the clock and marks the first phrase as pending.
// The caller resolves the returned request.
func (c *Controller) Begin(difficulty model.Difficulty, now time.Time) (PhraseRequest, error) {
	if !difficulty.Valid() {
		return PhraseRequest{}, fmt.Errorf("invalid difficulty %q", difficulty)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.state = Active
	c.clock.Start(difficulty.Budget(), now)
	c.session = model.SessionState{
		Difficulty: difficulty,
		StartedAt:  now,
		Budget:     difficulty.Budget(),
		Active:     true,
	}
	c.phrase = model.Phrase{}
	c.hasPhrase = false
	c.pending = true
	c.warned = false
	c.lastTick = c.clock.Tick(now)
	c.result = model.ResultRecord{}
	return c.requestLocked(), nil
}

// RequestPhrase drops the current phrase and returns a request for a new one.
func (c *Controller) RequestPhrase() (PhraseRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active {
		return PhraseRequest{}, ErrNotActive
	}
	c.phrase = model.Phrase{}
	c.hasPhrase = false
	c.pending = true
	c.session.Buffer = ""
	return c.requestLocked(), nil
}

func (c *Controller) requestLocked() PhraseRequest {
	return PhraseRequest{Epoch: c.epoch, Difficulty: c.session.Difficulty}
}

// Fetch asks the phrase source for the request. It does not touch controller state
// and may run on another goroutine.
func (c *Controller) Fetch(ctx context.Context, req PhraseRequest) (model.Phrase, error) {
	if c.source == nil {
		return model.Phrase{}, phrases.ErrNoPhrases
	}
	return c.source.Fetch(ctx, req.Difficulty)
}

// InstallPhrase makes phrase current and clears the buffer.
func (c *Controller) InstallPhrase(req PhraseRequest, phrase model.Phrase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active || req.Epoch != c.epoch || !c.pending {
		return ErrStalePhrase
	}
	c.pending = false
	phrase.Romaji = matcher.Sanitize(phrase.Romaji)
	if phrase.Romaji == "" {
		return phrases.ErrNoPhrases
	}
	c.phrase = phrase
	c.hasPhrase = true
	c.session.Buffer = ""
	return nil
}

// AbandonPhrase records that the request failed. The session stays active with no
// phrase; the caller decides whether to request again or end the session.
func (c *Controller) AbandonPhrase(req PhraseRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req.Epoch == c.epoch {
		c.pending = false
	}
}

// LoadPhrase requests, fetches and installs a new phrase synchronously.
func (c *Controller) LoadPhrase(ctx context.Context) error {
	req, err := c.RequestPhrase()
	if err != nil {
		return err
	}
	return c.resolve(ctx, req)
}

func (c *Controller) resolve(ctx context.Context, req PhraseRequest) error {
	phrase, err := c.Fetch(ctx, req)
	if err != nil {
		c.AbandonPhrase(req)
		return fmt.Errorf("failed to fetch phrase: %w", err)
	}
	return c.InstallPhrase(req, phrase)
}

// Keystroke evaluates candidate, the full input value after a keystroke.
// Input is ignored unless the session is active and a phrase is present.
func (c *Controller) Keystroke(candidate string) Outcome {
	c.mu.Lock()
	var signals []Signal
	defer func() {
		c.mu.Unlock()
		c.emit(signals)
	}()

	current := c.session.Buffer
	if c.state != Active || !c.hasPhrase {
		return Outcome{Verdict: matcher.Neutral, Buffer: current}
	}
	target := c.phrase.Romaji
	verdict := matcher.Evaluate(current, candidate, target)
	out := Outcome{Verdict: verdict}
	switch verdict {
	case matcher.Rejected:
		c.session.Errors++
		c.session.Buffer = matcher.Revert(current, candidate, target)
		signals = append(signals, SignalRejected)
	case matcher.Accepted:
		c.session.Successes++
		c.session.Buffer = matcher.Sanitize(candidate)
		signals = append(signals, SignalAccepted)
	case matcher.Completed:
		if matcher.Extends(current, candidate) {
			c.session.Successes++
		}
		c.session.Phrases++
		c.session.Buffer = ""
		c.phrase = model.Phrase{}
		c.hasPhrase = false
		c.pending = true
		out.NeedPhrase = true
		out.Request = c.requestLocked()
		signals = append(signals, SignalCompleted)
	}
	out.Buffer = c.session.Buffer
	return out
}

// Tick advances the clock to now and ends the session when the budget is spent.
func (c *Controller) Tick(now time.Time) TickOutcome {
	c.mu.Lock()
	var signals []Signal
	defer func() {
		c.mu.Unlock()
		c.emit(signals)
	}()

	if c.state != Active {
		return TickOutcome{Tick: c.lastTick}
	}
	tick := c.clock.Tick(now)
	c.lastTick = tick
	if tick.Warning && !c.warned {
		c.warned = true
		signals = append(signals, SignalTimeWarning)
	}
	if !tick.Expired {
		return TickOutcome{Tick: tick}
	}
	rec := c.endLocked(now)
	signals = append(signals, SignalSessionEnded)
	return TickOutcome{Tick: tick, Ended: true, Result: rec}
}

// End forces the active session to end and returns its record.
func (c *Controller) End(now time.Time) (model.ResultRecord, error) {
	c.mu.Lock()
	if c.state != Active {
		c.mu.Unlock()
		return model.ResultRecord{}, ErrNotActive
	}
	rec := c.endLocked(now)
	c.mu.Unlock()
	c.emit([]Signal{SignalSessionEnded})
	return rec, nil
}

func (c *Controller) endLocked(now time.Time) model.ResultRecord {
	c.state = Ended
	c.session.Active = false
	c.hasPhrase = false
	c.pending = false
	c.lastTick = c.clock.Tick(now)
	c.result = result.Report(c.session, now)
	return c.result
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the record of the last ended session.
func (c *Controller) Result() (model.ResultRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.state == Ended
}

// SessionState returns a copy of the session state.
func (c *Controller) SessionState() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Snapshot returns the current view state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:      c.state,
		Epoch:      c.epoch,
		Difficulty: c.session.Difficulty,
		Phrase:     c.phrase,
		HasPhrase:  c.hasPhrase,
		Pending:    c.pending,
		Buffer:     c.session.Buffer,
		Errors:     c.session.Errors,
		Successes:  c.session.Successes,
		Phrases:    c.session.Phrases,
		Tick:       c.lastTick,
	}
}

func (c *Controller) emit(signals []Signal) {
	for _, s := range signals {
		c.sink.Signal(s)
	}
}
