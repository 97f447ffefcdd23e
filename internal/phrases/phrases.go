// Package phrases provides phrase sources for typing sessions.
package phrases

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/verte-zerg/romatype/internal/matcher"
	"github.com/verte-zerg/romatype/internal/model"
)

// ErrNoPhrases is returned when no phrase is available for a difficulty.
var ErrNoPhrases = errors.New("no phrase available")

// Source returns a phrase for a difficulty.
type Source interface {
	Fetch(ctx context.Context, difficulty model.Difficulty) (model.Phrase, error)
}

//go:embed data/phrases.json
var defaultData []byte

// Default returns the embedded phrase set.
func Default() ([]model.Phrase, error) {
	return Parse(defaultData)
}

// LoadFile reads a JSON array of phrases from path.
func LoadFile(path string) ([]model.Phrase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	list, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Parse decodes and validates a JSON array of phrases.
// Phrases without a usable romaji or difficulty are dropped.
func Parse(data []byte) ([]model.Phrase, error) {
	var raw []model.Phrase
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode phrases: %w", err)
	}
	list := lo.FilterMap(raw, func(p model.Phrase, _ int) (model.Phrase, bool) {
		p.Romaji = strings.TrimSpace(p.Romaji)
		p.Difficulty = model.Difficulty(strings.ToLower(string(p.Difficulty)))
		if p.Romaji == "" || !p.Difficulty.Valid() {
			return p, false
		}
		return p, matcher.Sanitize(p.Romaji) == p.Romaji
	})
	if len(list) == 0 {
		return nil, fmt.Errorf("phrase list is empty")
	}
	return list, nil
}

// ForDifficulty returns the phrases tagged with difficulty.
func ForDifficulty(list []model.Phrase, difficulty model.Difficulty) []model.Phrase {
	return lo.Filter(list, func(p model.Phrase, _ int) bool {
		return p.Difficulty == difficulty
	})
}

// CountByDifficulty tallies phrases per level.
func CountByDifficulty(list []model.Phrase) map[model.Difficulty]int {
	return lo.CountValuesBy(list, func(p model.Phrase) model.Difficulty {
		return p.Difficulty
	})
}
