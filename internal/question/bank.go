package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"

	"github.com/rs/zerolog"
)

// Bank is the static question catalog grouped by difficulty. It is loaded
// once at startup and never mutated afterwards.
type Bank struct {
	byTier map[Difficulty][]Question
}

// NewBank builds a bank from an in-memory catalog.
func NewBank(catalog map[Difficulty][]Question) *Bank {
	b := &Bank{byTier: make(map[Difficulty][]Question, len(Difficulties))}
	for d, qs := range catalog {
		b.byTier[d] = append([]Question(nil), qs...)
	}
	return b
}

// LoadBank reads a JSON catalog keyed by tier name. A missing file yields an
// empty bank so the process keeps running and every tier reports no questions.
func LoadBank(path string, logger zerolog.Logger) (*Bank, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("path", path).Msg("question catalog not found, starting with empty bank")
		return NewBank(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var raw map[string][]Question
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	catalog := make(map[Difficulty][]Question, len(raw))
	for name, qs := range raw {
		d, ok := ParseDifficulty(name)
		if !ok {
			logger.Warn().Str("tier", name).Msg("skipping unknown tier in catalog")
			continue
		}
		catalog[d] = qs
	}

	bank := NewBank(catalog)
	for _, d := range Difficulties {
		logger.Info().Str("tier", d.String()).Int("questions", len(bank.byTier[d])).Msg("catalog tier loaded")
	}
	return bank, nil
}

// Questions returns a copy of every question in the tier.
func (b *Bank) Questions(d Difficulty) []Question {
	return append([]Question(nil), b.byTier[d]...)
}

// Available returns the tier's questions whose ids are not in seen.
func (b *Bank) Available(d Difficulty, seen IDSet) []Question {
	var out []Question
	for _, q := range b.byTier[d] {
		if !seen.Has(q.ID) {
			out = append(out, q)
		}
	}
	return out
}

// Pick selects uniformly at random among the tier's questions not in seen.
// The second result is false when nothing is left.
func (b *Bank) Pick(d Difficulty, seen IDSet) (Question, bool) {
	candidates := b.Available(d, seen)
	if len(candidates) == 0 {
		return Question{}, false
	}
	return candidates[rand.Intn(len(candidates))], true
}
