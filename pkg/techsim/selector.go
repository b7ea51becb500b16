package techsim

import (
	"fmt"
	"math/rand"
)

// IsNight reports whether the upcoming round is a night round.
func (s *Simulation) IsNight() bool {
	return s.Cycle%2 == 0
}

// SelectCycle picks the cycle type for the upcoming round. A scripted cycle
// for this exact round wins; otherwise a day or night cycle is drawn by the
// absolute value of its weight.
func (s *Simulation) SelectCycle(rng *rand.Rand) (*Cycle, error) {
	switch {
	case s.Cycle == CycleUnready:
		return nil, ErrNotReady
	case s.Cycle == CycleComplete:
		return nil, ErrComplete
	}
	night := s.IsNight()
	var pool []*Cycle
	var weights []int
	for _, c := range s.Cycles {
		if c.Scripted {
			if c.ScriptedAt == s.Cycle {
				return c, nil
			}
			continue
		}
		if c.MaxUse == 0 {
			continue
		}
		if (night && c.Weight < 0) || (!night && c.Weight > 0) {
			pool = append(pool, c)
			weights = append(weights, abs(c.Weight))
		}
	}
	i := weightedIndex(rng, weights)
	if i < 0 {
		kind := "day"
		if night {
			kind = "night"
		}
		return nil, &ConfigError{
			Path:    "cycles",
			Message: fmt.Sprintf("no %s cycle available for round %d", kind, s.Cycle),
			Err:     ErrNoCycle,
		}
	}
	return pool[i], nil
}
