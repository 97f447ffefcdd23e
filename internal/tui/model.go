// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/romatype/internal/clock"
	"github.com/verte-zerg/romatype/internal/matcher"
	"github.com/verte-zerg/romatype/internal/model"
	"github.com/verte-zerg/romatype/internal/phrases"
	"github.com/verte-zerg/romatype/internal/session"
	"github.com/verte-zerg/romatype/internal/store"
)

const fetchTimeout = 10 * time.Second

type screen int

const (
	screenStart screen = iota
	screenGame
	screenResult
)

// ResultStore persists finished sessions and the audio preference.
type ResultStore interface {
	InsertResult(ctx context.Context, rec model.ResultRecord) (int64, error)
	SetBool(ctx context.Context, key string, value bool) error
}

// Options configures a Model.
type Options struct {
	Difficulty model.Difficulty
	Audio      bool
	Store      ResultStore
	Logger     zerolog.Logger
	// Bell receives a BEL byte for audible signals when audio is on.
	Bell io.Writer
	Now  func() time.Time
}

type tickMsg struct {
	epoch uint64
	at    time.Time
}

type phraseMsg struct {
	req    session.PhraseRequest
	phrase model.Phrase
	err    error
}

type savedMsg struct {
	id  int64
	err error
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	ctrl     *session.Controller
	store    ResultStore
	logger   zerolog.Logger
	feedback *feedback
	now      func() time.Time

	screen     screen
	difficulty model.Difficulty
	width      int
	height     int

	bar  progress.Model
	help help.Model
	keys keyMap

	rejected bool
	fetchErr error
	result   model.ResultRecord
	expired  bool
	savedID  int64
	saveErr  error
}

// NewModel constructs a typing TUI model over a phrase source.
func NewModel(source phrases.Source, opts Options) *Model {
	if !opts.Difficulty.Valid() {
		opts.Difficulty = model.Easy
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	fb := &feedback{enabled: opts.Audio, out: opts.Bell}
	m := &Model{
		store:      opts.Store,
		logger:     opts.Logger,
		feedback:   fb,
		now:        opts.Now,
		difficulty: opts.Difficulty,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:       help.New(),
		keys:       newKeyMap(),
	}
	m.ctrl = session.New(source, fb)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, m.contentWidth())
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg)
	case phraseMsg:
		m.handlePhrase(msg)
		return m, nil
	case savedMsg:
		m.savedID = msg.id
		m.saveErr = msg.err
		if msg.err != nil {
			m.logger.Error().Err(msg.err).Msg("failed to save result")
		}
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Audio) {
			return m, m.toggleAudio()
		}
		switch m.screen {
		case screenStart:
			return m, m.updateStart(msg)
		case screenGame:
			return m, m.updateGame(msg)
		case screenResult:
			return m, m.updateResult(msg)
		}
	}
	return m, nil
}

func (m *Model) updateStart(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Start):
		return m.startSession()
	case key.Matches(msg, m.keys.Back):
		return tea.Quit
	case key.Matches(msg, m.keys.Prev):
		m.difficulty = shiftDifficulty(m.difficulty, -1)
	case key.Matches(msg, m.keys.Next):
		m.difficulty = shiftDifficulty(m.difficulty, 1)
	case msg.Type == tea.KeyRunes && len(msg.Runes) == 1:
		levels := model.Difficulties()
		if idx := int(msg.Runes[0] - '1'); idx >= 0 && idx < len(levels) {
			m.difficulty = levels[idx]
		}
	}
	return nil
}

func (m *Model) updateGame(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back):
		rec, err := m.ctrl.End(m.now())
		if err != nil {
			return nil
		}
		return m.finish(rec, false)
	case key.Matches(msg, m.keys.Retry):
		return m.retryPhrase()
	}
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete:
		// Deletion is not allowed; a rejected key already rolled back.
		return nil
	case tea.KeySpace:
		return m.handleRunes([]rune{' '})
	case tea.KeyRunes:
		return m.handleRunes(msg.Runes)
	}
	return nil
}

func (m *Model) updateResult(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Start):
		m.screen = screenStart
		return nil
	case key.Matches(msg, m.keys.Back):
		return tea.Quit
	}
	return nil
}

func (m *Model) startSession() tea.Cmd {
	now := m.now()
	req, err := m.ctrl.Begin(m.difficulty, now)
	if err != nil {
		m.fetchErr = err
		return nil
	}
	m.screen = screenGame
	m.rejected = false
	m.fetchErr = nil
	m.result = model.ResultRecord{}
	m.savedID = 0
	m.saveErr = nil
	m.logger.Info().Str("difficulty", m.difficulty.String()).Msg("session started")
	return tea.Batch(tickCmd(req.Epoch), m.fetchCmd(req))
}

// handleRunes feeds each rune as its own keystroke so evaluation stays serialized.
func (m *Model) handleRunes(runes []rune) tea.Cmd {
	var cmds []tea.Cmd
	for _, r := range runes {
		snap := m.ctrl.Snapshot()
		if snap.State != session.Active || !snap.HasPhrase {
			break
		}
		out := m.ctrl.Keystroke(snap.Buffer + string(r))
		switch {
		case out.NeedPhrase:
			m.rejected = false
			cmds = append(cmds, m.fetchCmd(out.Request))
		case out.Verdict == matcher.Rejected:
			m.rejected = true
		case out.Verdict == matcher.Accepted:
			m.rejected = false
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) retryPhrase() tea.Cmd {
	snap := m.ctrl.Snapshot()
	if snap.State != session.Active || snap.HasPhrase || snap.Pending {
		return nil
	}
	req, err := m.ctrl.RequestPhrase()
	if err != nil {
		return nil
	}
	m.fetchErr = nil
	return m.fetchCmd(req)
}

func (m *Model) fetchCmd(req session.PhraseRequest) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		phrase, err := ctrl.Fetch(ctx, req)
		return phraseMsg{req: req, phrase: phrase, err: err}
	}
}

func (m *Model) handlePhrase(msg phraseMsg) {
	if msg.err != nil {
		m.ctrl.AbandonPhrase(msg.req)
		if msg.req.Epoch == m.ctrl.Snapshot().Epoch {
			m.fetchErr = msg.err
		}
		m.logger.Warn().Err(msg.err).Str("difficulty", msg.req.Difficulty.String()).Msg("phrase fetch failed")
		return
	}
	err := m.ctrl.InstallPhrase(msg.req, msg.phrase)
	switch {
	case err == nil:
		m.fetchErr = nil
	case errors.Is(err, session.ErrStalePhrase):
		m.logger.Debug().Msg("dropped stale phrase")
	default:
		m.fetchErr = err
		m.logger.Warn().Err(err).Msg("phrase rejected")
	}
}

func tickCmd(epoch uint64) tea.Cmd {
	return tea.Tick(clock.TickInterval, func(t time.Time) tea.Msg {
		return tickMsg{epoch: epoch, at: t}
	})
}

// handleTick schedules the next tick only while the session it belongs to is active.
func (m *Model) handleTick(msg tickMsg) tea.Cmd {
	snap := m.ctrl.Snapshot()
	if snap.State != session.Active || snap.Epoch != msg.epoch {
		return nil
	}
	out := m.ctrl.Tick(m.now())
	if out.Ended {
		return m.finish(out.Result, true)
	}
	return tickCmd(msg.epoch)
}

func (m *Model) finish(rec model.ResultRecord, expired bool) tea.Cmd {
	m.result = rec
	m.expired = expired
	m.screen = screenResult
	m.rejected = false
	m.logger.Info().
		Str("difficulty", rec.Difficulty.String()).
		Float64("elapsed", rec.ElapsedSeconds).
		Int("successes", rec.Successes).
		Int("errors", rec.Errors).
		Msg("session ended")
	if m.store == nil {
		return nil
	}
	st := m.store
	return func() tea.Msg {
		id, err := st.InsertResult(context.Background(), rec)
		return savedMsg{id: id, err: err}
	}
}

func (m *Model) toggleAudio() tea.Cmd {
	m.feedback.enabled = !m.feedback.enabled
	if m.store == nil {
		return nil
	}
	st := m.store
	value := m.feedback.enabled
	logger := m.logger
	return func() tea.Msg {
		if err := st.SetBool(context.Background(), store.PrefAudio, value); err != nil {
			logger.Error().Err(err).Msg("failed to save audio preference")
		}
		return nil
	}
}

func shiftDifficulty(d model.Difficulty, delta int) model.Difficulty {
	levels := model.Difficulties()
	idx := 0
	for i, l := range levels {
		if l == d {
			idx = i
		}
	}
	idx = (idx + delta + len(levels)) % len(levels)
	return levels[idx]
}

// feedback maps controller signals to the terminal bell.
type feedback struct {
	enabled bool
	out     io.Writer
	last    session.Signal
	count   int
}

func (f *feedback) Signal(s session.Signal) {
	f.last = s
	f.count++
	if !f.enabled || f.out == nil {
		return
	}
	switch s {
	case session.SignalRejected, session.SignalTimeWarning, session.SignalSessionEnded:
		_, _ = io.WriteString(f.out, "\a")
	}
}
