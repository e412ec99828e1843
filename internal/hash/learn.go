package hash

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Learned is a result recorded by an earlier session.
type Learned struct {
	Fingerprint uint64
	Depth       int
	Kind        Kind
	Value       int16
	StaticEval  int16
	Move        Move
}

// LearnSource yields learned results, stopping at the first error fn returns.
type LearnSource interface {
	EachLearned(fn func(Learned) error) error
}

// LoadLearned stores every result from src as a sticky entry. Learned entries
// use age 0, so probes never refresh them and they keep their own generation.
func (t *Table) LoadLearned(src LearnSource) (int, error) {
	if t.Size() == 0 {
		return 0, nil
	}
	n := 0
	err := src.EachLearned(func(l Learned) error {
		t.Store(l.Fingerprint, l.Depth, 0, l.Kind, l.Value, l.StaticEval, FlagLearned, l.Move)
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("load learned entries: %w", err)
	}
	log.Info().Int("entries", n).Msg("learned entries loaded")
	return n, nil
}
