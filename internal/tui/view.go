package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/romatype/internal/model"
	"github.com/verte-zerg/romatype/internal/result"
	"github.com/verte-zerg/romatype/internal/session"
	"github.com/verte-zerg/romatype/internal/stats"
)

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cursorStyle      = pendingStyle.Underline(true)
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	warningStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true)
	translationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Italic(true)
)

type keyMap struct {
	Start key.Binding
	Back  key.Binding
	Prev  key.Binding
	Next  key.Binding
	Retry key.Binding
	Audio key.Binding
	Quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Start: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "end")),
		Prev:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "easier")),
		Next:  key.NewBinding(key.WithKeys("right", "tab"), key.WithHelp("→", "harder")),
		Retry: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		Audio: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "sound")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Retry, k.Audio, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Start, k.Prev, k.Next}, k.ShortHelp()}
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenGame:
		body = m.viewGame()
	case screenResult:
		body = m.viewResult()
	default:
		body = m.viewStart()
	}
	if m.width == 0 || m.height == 0 {
		return body
	}
	content := lipgloss.NewStyle().Width(m.contentWidth()).Render(body)
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	main := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return main + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) viewStart() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("romatype"))
	b.WriteString("\n\n")
	for i, d := range model.Difficulties() {
		label := fmt.Sprintf("%d %s (%ds)", i+1, d, int(d.Budget().Seconds()))
		if d == m.difficulty {
			b.WriteString(selectedStyle.Render("> " + label))
		} else {
			b.WriteString(pendingStyle.Render("  " + label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("enter to start, esc to quit"))
	return b.String()
}

func (m *Model) viewGame() string {
	snap := m.ctrl.Snapshot()
	width := m.contentWidth()

	timer := snap.Tick.Display()
	if snap.Tick.Warning {
		timer = warningStyle.Render(timer)
	}
	ratio := 0.0
	if budget := snap.Difficulty.Budget(); budget > 0 {
		ratio = float64(snap.Tick.Remaining) / float64(budget)
	}
	counters := fmt.Sprintf("%s  ok %d  miss %d  phrases %d", timer, snap.Successes, snap.Errors, snap.Phrases)

	var b strings.Builder
	b.WriteString(counters)
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(ratio))
	b.WriteString("\n\n")

	switch {
	case snap.HasPhrase:
		b.WriteString(titleStyle.Render(fitWidth(snap.Phrase.Text, width)))
		b.WriteString("\n")
		b.WriteString(translationStyle.Render(fitWidth(snap.Phrase.Translation, width)))
		b.WriteString("\n\n")
		runes := buildStyledRunes(snap.Phrase.Romaji, len(snap.Buffer), m.rejected)
		b.WriteString(wrapStyledRunes(runes, width))
	case m.fetchErr != nil:
		b.WriteString(incorrectStyle.Render(fitWidth("phrase unavailable: "+m.fetchErr.Error(), width)))
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("ctrl+r to retry, esc to end"))
	default:
		b.WriteString(pendingStyle.Render("loading…"))
	}
	return b.String()
}

func (m *Model) viewResult() string {
	rec := m.result
	kpm, acc := stats.RecordMetrics(rec)
	var b strings.Builder
	title := "Session over"
	if m.expired {
		title = "Time's up"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Difficulty  %s\n", rec.Difficulty)
	fmt.Fprintf(&b, "Time        %ss\n", rec.ElapsedDisplay())
	fmt.Fprintf(&b, "Successes   %d\n", rec.Successes)
	fmt.Fprintf(&b, "Errors      %d\n", rec.Errors)
	fmt.Fprintf(&b, "Phrases     %d\n", rec.Phrases)
	fmt.Fprintf(&b, "Accuracy    %.1f%%\n", acc*100)
	fmt.Fprintf(&b, "Keys/min    %.1f\n", kpm)
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("?" + result.Query(rec).Encode()))
	if m.saveErr != nil {
		b.WriteString("\n")
		b.WriteString(incorrectStyle.Render("result not saved: " + m.saveErr.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("enter for menu, esc to quit"))
	return b.String()
}

func (m *Model) renderFooter() string {
	sound := "sound off"
	if m.feedback.enabled {
		sound = "sound on"
	}
	segments := []string{sound}
	if m.screen == screenGame && m.ctrl.State() == session.Active {
		segments = append(segments, m.help.View(m.keys))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
