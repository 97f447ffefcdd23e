// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/romatype/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes keystrokes per minute and accuracy for a session.
func SessionMetrics(successes, errors int, elapsedSeconds float64) (kpm, accuracy float64) {
	den := float64(successes + errors)
	if den > 0 {
		accuracy = float64(successes) / den
	}
	if elapsedSeconds <= 0 {
		return 0, accuracy
	}
	kpm = float64(successes) / (elapsedSeconds / 60.0)
	return kpm, accuracy
}

// RecordMetrics is SessionMetrics for a result record.
func RecordMetrics(rec model.ResultRecord) (kpm, accuracy float64) {
	return SessionMetrics(rec.Successes, rec.Errors, rec.ElapsedSeconds)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints totals and averages for results.
func RenderSummary(w io.Writer, results []model.StoredResult, window int) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalKPM, totalAcc float64
	bestKPM := 0.0
	phrases := 0
	accs := make([]float64, len(results))
	for i, r := range results {
		kpm, acc := RecordMetrics(r.ResultRecord)
		totalKPM += kpm
		totalAcc += acc
		bestKPM = math.Max(bestKPM, kpm)
		phrases += r.Phrases
		accs[i] = acc * 100
	}
	count := float64(len(results))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(results)),
		fmt.Sprintf("Phrases completed: %d", phrases),
		fmt.Sprintf("Avg keys/min: %.1f", totalKPM/count),
		fmt.Sprintf("Best keys/min: %.1f", bestKPM),
		fmt.Sprintf("Avg accuracy: %.1f%%", (totalAcc/count)*100),
		fmt.Sprintf("Accuracy trend: [%s]", Sparkline(MovingAverage(accs, window))),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderResultsTable prints one row per stored result. Lines are cut to width
// terminal cells when width is positive.
func RenderResultsTable(w io.Writer, results []model.StoredResult, width int) error {
	if len(results) == 0 {
		return nil
	}
	cols := []column{
		{header: "Date"},
		{header: "Level"},
		{header: "Time (s)", right: true},
		{header: "Typed", right: true},
		{header: "Misses", right: true},
		{header: "Phrases", right: true},
		{header: "Keys/min", right: true},
		{header: "Accuracy", right: true},
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		kpm, acc := RecordMetrics(r.ResultRecord)
		rows = append(rows, []string{
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.Difficulty.String(),
			r.ElapsedDisplay(),
			fmt.Sprintf("%d", r.Successes),
			fmt.Sprintf("%d", r.Errors),
			fmt.Sprintf("%d", r.Phrases),
			fmt.Sprintf("%.1f", kpm),
			fmt.Sprintf("%.1f%%", acc*100),
		})
	}
	for _, line := range formatTable(cols, rows) {
		if width > 0 && displayWidth(line) > width {
			line = runewidth.Truncate(line, width, "")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves plots keys/min and accuracy per session, smoothed over window.
// totalWidth includes the axis labels; zero uses the default plot width.
func RenderCurves(w io.Writer, results []model.StoredResult, window, totalWidth int, useColor bool) error {
	if len(results) < 2 {
		return nil
	}
	kpms := make([]float64, len(results))
	accs := make([]float64, len(results))
	for i, r := range results {
		kpm, acc := RecordMetrics(r.ResultRecord)
		kpms[i] = kpm
		accs[i] = acc * 100
	}
	width := defaultPlotWidth
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeries(w, "Learning curves", []Series{
		{Name: "Keys/min", Values: MovingAverage(kpms, window)},
		{Name: "Accuracy %", Values: MovingAverage(accs, window)},
	}, width, defaultPlotHeight, useColor)
}
