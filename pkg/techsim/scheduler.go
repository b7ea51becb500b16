package techsim

import (
	"fmt"
	"math/rand"
	"slices"
)

// MaxResolveAttempts is how many times an anchor may draw an event that
// cannot be staffed before it sits out the rest of the round.
const MaxResolveAttempts = 3

// CycleReport is everything that happened in one round.
type CycleReport struct {
	Index int
	Cycle string
	Text  string
	Night bool

	Events []*EventOutcome
	// Idle lists anchors that sat out because no event could be staffed for them.
	Idle []TributeID

	Deaths *DeathReport

	Complete        bool
	Winners         []TributeID
	WinningDistrict DistrictID
}

// DeathReport summarizes the deaths since the previous report.
type DeathReport struct {
	Day    int
	Deaths []TributeID
	Text   string
}

// ComputeCycle runs one round: every living tribute is used once, either as
// an anchor or as a co-participant. On error the round counter is not
// advanced, but events resolved earlier in the round stay applied, so the
// simulation must be discarded and rebuilt by replay.
func (s *Simulation) ComputeCycle(rng *rand.Rand) (*CycleReport, error) {
	cycle, err := s.SelectCycle(rng)
	if err != nil {
		return nil, err
	}
	report := &CycleReport{
		Index:           s.Cycle,
		Cycle:           cycle.Name,
		Text:            cycle.Text,
		Night:           s.IsNight(),
		WinningDistrict: NoDistrict,
	}
	log := s.log.With().Int("round", s.Cycle).Str("cycle", cycle.Name).Logger()

	active := slices.Clone(s.Alive)
	failures := map[TributeID]int{}
	for len(active) > 0 {
		weights := make([]int, len(active))
		for i, id := range active {
			weights[i] = s.EffectivePower(id)
		}
		anchor := active[weightedIndex(rng, weights)]

		pool := s.eventPool(cycle, s.Cast[anchor])
		poolWeights := make([]int, len(pool))
		for i, e := range pool {
			poolWeights[i] = e.Weight
		}
		pick := weightedIndex(rng, poolWeights)
		if pick < 0 {
			log.Debug().Str("tribute", s.Cast[anchor].Name).Msg("no event available, skipping")
			report.Idle = append(report.Idle, anchor)
			active = without(active, anchor)
			continue
		}
		event := pool[pick]

		participants := ResolveParticipants(rng, s, event, anchor, active)
		if participants == nil {
			failures[anchor]++
			log.Debug().
				Str("tribute", s.Cast[anchor].Name).
				Str("event", event.Text.String()).
				Int("attempt", failures[anchor]).
				Msg("could not resolve participants")
			if failures[anchor] >= MaxResolveAttempts {
				report.Idle = append(report.Idle, anchor)
				active = without(active, anchor)
			}
			continue
		}

		outcome, err := s.ResolveEvent(rng, event, participants)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", s.Cycle, err)
		}
		report.Events = append(report.Events, outcome)
		for _, id := range participants {
			active = without(active, id)
		}
	}

	s.finishCycle(cycle, report)
	return report, nil
}

// eventPool gathers the events t may anchor this round.
func (s *Simulation) eventPool(cycle *Cycle, t *Tribute) []*Event {
	var pool []*Event
	for _, e := range cycle.Events {
		if s.Eligible(e, t, 0) {
			pool = append(pool, e)
		}
	}
	for _, it := range s.Items {
		if it.FoundIn(cycle.Name) && s.Eligible(it.BaseEvent, t, 0) {
			pool = append(pool, it.BaseEvent)
		}
	}
	for _, id := range s.heldItems(t) {
		it := s.Items[id]
		switch {
		case cycle.AllowItemEvents == ItemEventsAll:
		case cycle.AllowItemEvents == ItemEventsCycle && it.FoundIn(cycle.Name):
		default:
			continue
		}
		for _, e := range it.Events {
			if s.Eligible(e, t, 0) {
				pool = append(pool, e)
			}
		}
	}
	return pool
}

func (s *Simulation) finishCycle(cycle *Cycle, report *CycleReport) {
	if len(s.CycleDeaths) > 0 && s.Cycle%2 == 0 && s.Cycle != 0 {
		report.Deaths = &DeathReport{
			Day:    s.Cycle/2 + 1,
			Deaths: slices.Clone(s.CycleDeaths),
			Text:   cannonText(len(s.CycleDeaths)),
		}
		s.CycleDeaths = nil
	}
	s.Cycle++

	if cycle.MaxUse > 0 {
		cycle.MaxUse--
	}
	if cycle.MaxUse == 0 {
		s.Cycles = slices.DeleteFunc(s.Cycles, func(c *Cycle) bool { return c == cycle })
	}
	for _, c := range s.Cycles {
		resetEvents(c.Events)
	}
	for _, it := range s.Items {
		resetEvents([]*Event{it.BaseEvent})
		resetEvents(it.Events)
	}

	switch living := s.LivingDistricts(); len(living) {
	case 0:
		s.Cycle = CycleComplete
		report.Complete = true
	case 1:
		s.Cycle = CycleComplete
		report.Complete = true
		report.WinningDistrict = living[0]
		report.Winners = slices.Sorted(slices.Values(s.Alive))
	}
}

func resetEvents(events []*Event) {
	for _, e := range events {
		e.CycleUse = e.MaxCycle
	}
}

func cannonText(n int) string {
	if n == 1 {
		return "You hear 1 cannon shot in the distance."
	}
	return fmt.Sprintf("You hear %d cannon shots in the distance.", n)
}
