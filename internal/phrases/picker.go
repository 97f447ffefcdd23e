package phrases

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/verte-zerg/romatype/internal/model"
)

// Picker selects random phrases from an in-memory list. It is safe for concurrent use.
type Picker struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	byDiff map[model.Difficulty][]model.Phrase
	last   map[model.Difficulty]int
}

// NewPicker returns a Picker seeded with the current time.
func NewPicker(list []model.Phrase) *Picker {
	return NewPickerWithSeed(list, time.Now().UnixNano())
}

// NewPickerWithSeed returns a Picker with a fixed seed.
func NewPickerWithSeed(list []model.Phrase, seed int64) *Picker {
	byDiff := map[model.Difficulty][]model.Phrase{}
	for _, d := range model.Difficulties() {
		if pool := ForDifficulty(list, d); len(pool) > 0 {
			byDiff[d] = pool
		}
	}
	return &Picker{
		rnd:    rand.New(rand.NewSource(seed)),
		byDiff: byDiff,
		last:   map[model.Difficulty]int{},
	}
}

// Pick returns a random phrase for difficulty, avoiding an immediate repeat when
// the pool has more than one entry.
func (p *Picker) Pick(difficulty model.Difficulty) (model.Phrase, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pool := p.byDiff[difficulty]
	if len(pool) == 0 {
		return model.Phrase{}, false
	}
	idx := p.rnd.Intn(len(pool))
	if last, ok := p.last[difficulty]; ok && len(pool) > 1 && idx == last {
		idx = (idx + 1 + p.rnd.Intn(len(pool)-1)) % len(pool)
	}
	p.last[difficulty] = idx
	return pool[idx], true
}

// Fetch implements Source.
func (p *Picker) Fetch(ctx context.Context, difficulty model.Difficulty) (model.Phrase, error) {
	if err := ctx.Err(); err != nil {
		return model.Phrase{}, err
	}
	phrase, ok := p.Pick(difficulty)
	if !ok {
		return model.Phrase{}, ErrNoPhrases
	}
	return phrase, nil
}

// Size returns the number of phrases for difficulty.
func (p *Picker) Size(difficulty model.Difficulty) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byDiff[difficulty])
}
