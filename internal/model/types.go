// Package model defines shared data structures.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Difficulty selects the phrase pool and the session budget.
type Difficulty string

// Supported difficulty levels.
const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// WarningThreshold is the remaining time at or below which the clock warns.
const WarningThreshold = 10 * time.Second

var budgets = map[Difficulty]time.Duration{
	Easy:   120 * time.Second,
	Medium: 240 * time.Second,
	Hard:   380 * time.Second,
}

// Difficulties lists the levels in ascending order.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// ParseDifficulty validates a difficulty name.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := budgets[d]; !ok {
		return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
	}
	return d, nil
}

// Budget returns the session duration for the difficulty.
func (d Difficulty) Budget() time.Duration {
	return budgets[d]
}

// Valid reports whether d is a known level.
func (d Difficulty) Valid() bool {
	_, ok := budgets[d]
	return ok
}

func (d Difficulty) String() string {
	return string(d)
}

// Phrase is one prompt: Japanese text, its translation and the romaji to type.
type Phrase struct {
	Text        string     `json:"text"`
	Translation string     `json:"translation"`
	Romaji      string     `json:"romaji"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
}

// SessionState is the mutable state of one timed session.
type SessionState struct {
	Difficulty Difficulty
	StartedAt  time.Time
	Budget     time.Duration
	Errors     int
	Successes  int
	Phrases    int
	Buffer     string
	Active     bool
}

// Tick is the clock reading for a single tick.
type Tick struct {
	Remaining time.Duration
	Expired   bool
	Warning   bool
}

// RemainingSeconds returns the remaining time at full precision.
func (t Tick) RemainingSeconds() float64 {
	return t.Remaining.Seconds()
}

// Display formats the remaining time with one decimal, e.g. "12.3s".
func (t Tick) Display() string {
	return fmt.Sprintf("%.1fs", Round1(t.Remaining.Seconds()))
}

// ResultRecord is the terminal snapshot of a finished session.
type ResultRecord struct {
	Difficulty     Difficulty
	StartedAt      time.Time
	EndedAt        time.Time
	ElapsedSeconds float64
	Successes      int
	Errors         int
	Phrases        int
}

// ElapsedDisplay formats the elapsed time with one decimal.
func (r ResultRecord) ElapsedDisplay() string {
	return fmt.Sprintf("%.1f", r.ElapsedSeconds)
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// HistoryFilter selects stored results for reporting.
type HistoryFilter struct {
	Difficulty Difficulty
	Since      *time.Time
	Last       int
}

// StoredResult is a persisted ResultRecord with its row id.
type StoredResult struct {
	ID int64
	ResultRecord
}
