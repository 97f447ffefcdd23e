// Package result builds the terminal record of a session and encodes it for the results view.
package result

import (
	"net/url"
	"strconv"
	"time"

	"github.com/verte-zerg/romatype/internal/model"
)

// Report snapshots the session state ended at endedAt.
func Report(state model.SessionState, endedAt time.Time) model.ResultRecord {
	elapsed := endedAt.Sub(state.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return model.ResultRecord{
		Difficulty:     state.Difficulty,
		StartedAt:      state.StartedAt,
		EndedAt:        endedAt,
		ElapsedSeconds: model.Round1(elapsed.Seconds()),
		Successes:      state.Successes,
		Errors:         state.Errors,
		Phrases:        state.Phrases,
	}
}

// Query encodes the record as results-page query parameters.
func Query(rec model.ResultRecord) url.Values {
	v := url.Values{}
	v.Set("difficulty", rec.Difficulty.String())
	v.Set("time", rec.ElapsedDisplay())
	v.Set("successes", strconv.Itoa(rec.Successes))
	v.Set("errors", strconv.Itoa(rec.Errors))
	return v
}
