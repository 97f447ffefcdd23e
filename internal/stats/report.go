// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/romatype/internal/model"
)

// ResultLister loads stored results.
type ResultLister interface {
	ListResults(ctx context.Context, filter model.HistoryFilter) ([]model.StoredResult, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Results     []model.StoredResult
	Window      int
	ByLevel     map[model.Difficulty]int
	TotalErrors int
	TotalTyped  int
	// Width limits plot and table lines; zero disables truncation.
	Width int
	Color bool
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st ResultLister, filter model.HistoryFilter, window int) (Report, error) {
	results, err := st.ListResults(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	report := Report{
		Results: results,
		Window:  window,
		ByLevel: map[model.Difficulty]int{},
	}
	for _, r := range results {
		report.ByLevel[r.Difficulty]++
		report.TotalErrors += r.Errors
		report.TotalTyped += r.Successes
	}
	return report, nil
}

// Render writes the summary, per-level totals, learning curves and the results table.
func (r Report) Render(w io.Writer) error {
	if err := RenderSummary(w, r.Results, r.Window); err != nil {
		return err
	}
	if len(r.Results) == 0 {
		return nil
	}
	if err := r.renderTotals(w); err != nil {
		return err
	}
	if err := RenderCurves(w, r.Results, r.Window, r.Width, r.Color); err != nil {
		return err
	}
	return RenderResultsTable(w, r.Results, r.Width)
}

func (r Report) renderTotals(w io.Writer) error {
	levels := make([]string, 0, len(model.Difficulties()))
	for _, d := range model.Difficulties() {
		levels = append(levels, fmt.Sprintf("%s %d", d, r.ByLevel[d]))
	}
	_, err := fmt.Fprintf(w, "By level: %s\nKeys typed: %d  Misses: %d\n\n",
		strings.Join(levels, ", "), r.TotalTyped, r.TotalErrors)
	return err
}
