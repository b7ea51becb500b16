package techsim

import (
	"slices"
	"strconv"
	"testing"
)

func pairEvents(t *testing.T, reqs []RuleSpec, n int) EventsSpec {
	t.Helper()
	changes := make([]string, n)
	for i := range changes {
		changes[i] = `{}`
	}
	return EventsSpec{Cycles: []CycleSpec{{
		Name: "Day",
		Events: []EventSpec{{
			Text:                "$Tribute1 meets $Tribute2.",
			TributeChanges:      rules(t, changes...),
			TributeRequirements: reqs,
		}},
	}}}
}

func TestResolveParticipants_Single(t *testing.T) {
	sim := mustReady(t, castOf(2, 2), arenaEvents(t), "5")
	solo := sim.Cycles[0].Events[0]
	got := ResolveParticipants(NewRand("5"), sim, solo, 2, sim.Alive)
	if !slices.Equal(got, []TributeID{2}) {
		t.Fatalf("expected [2], got %v", got)
	}
}

func TestResolveParticipants_EnemiesOnly(t *testing.T) {
	events := pairEvents(t, rules(t, `{"relationship": {"2": "enemies"}}`, `{}`), 2)
	sim := mustReady(t, castOf(4, 1), events, "11")
	e := sim.Cycles[0].Events[0]
	sim.Cast[0].UpdateRelationship(Enemies, 2, true)
	sim.Cast[2].UpdateRelationship(Enemies, 0, true)

	for seed := range 50 {
		rng := NewRand(strconv.Itoa(seed))
		got := ResolveParticipants(rng, sim, e, 0, sim.Alive)
		if !slices.Equal(got, []TributeID{0, 2}) {
			t.Fatalf("seed %d: expected [0 2], got %v", seed, got)
		}
	}

	if got := ResolveParticipants(NewRand("1"), sim, e, 1, sim.Alive); got != nil {
		t.Fatalf("tribute without enemies should not resolve, got %v", got)
	}

	active := without(sim.Alive, 2)
	if got := ResolveParticipants(NewRand("1"), sim, e, 0, active); got != nil {
		t.Fatalf("an enemy already used this round should not be picked, got %v", got)
	}
}

func TestResolveParticipants_ChainedConstraints(t *testing.T) {
	// Position 2 must be an ally of the anchor, position 3 an enemy of both.
	reqs := rules(t,
		`{"relationship": {"2": "allies", "3": "enemies"}}`,
		`{"relationship": {"3": "enemies"}}`,
		`{}`,
	)
	sim := mustReady(t, castOf(3, 2), pairEvents(t, reqs, 3), "2")
	e := sim.Cycles[0].Events[0]
	// Districts: {0,1} {2,3} {4,5}.
	for _, pair := range [][2]TributeID{{0, 2}, {0, 4}, {1, 4}} {
		sim.Cast[pair[0]].UpdateRelationship(Enemies, pair[1], true)
		sim.Cast[pair[1]].UpdateRelationship(Enemies, pair[0], true)
	}

	for seed := range 50 {
		got := ResolveParticipants(NewRand(strconv.Itoa(seed)), sim, e, 0, sim.Alive)
		if !slices.Equal(got, []TributeID{0, 1, 4}) {
			t.Fatalf("seed %d: expected [0 1 4], got %v", seed, got)
		}
	}

	sim.Cast[1].UpdateRelationship(Enemies, 4, false)
	if got := ResolveParticipants(NewRand("3"), sim, e, 0, sim.Alive); got != nil {
		t.Fatalf("expected no assignment once tributes 1 and 4 are no longer enemies, got %v", got)
	}
}

func TestResolveParticipants_DeadSlot(t *testing.T) {
	reqs := rules(t, `{}`, `{"status": 1}`)
	sim := mustReady(t, castOf(3, 1), pairEvents(t, reqs, 2), "4")
	e := sim.Cycles[0].Events[0]

	if got := ResolveParticipants(NewRand("4"), sim, e, 0, sim.Alive); got != nil {
		t.Fatalf("no dead tribute exists yet, got %v", got)
	}
	sim.setStatus(sim.Cast[2], Dead)
	got := ResolveParticipants(NewRand("4"), sim, e, 0, sim.Alive)
	if !slices.Equal(got, []TributeID{0, 2}) {
		t.Fatalf("expected the dead tribute in position 2, got %v", got)
	}
}

func TestResolveParticipants_PrefersWeaker(t *testing.T) {
	sim := mustReady(t, castOf(3, 1), pairEvents(t, nil, 2), "8")
	e := sim.Cycles[0].Events[0]
	sim.Cast[1].Power = 1000
	sim.Cast[2].Power = 100

	counts := map[TributeID]int{}
	rng := NewRand("8")
	for range 500 {
		got := ResolveParticipants(rng, sim, e, 0, sim.Alive)
		if len(got) != 2 {
			t.Fatalf("expected a pair, got %v", got)
		}
		counts[got[1]]++
	}
	// Weights are 1001-1000 = 1 and 1001-100 = 901.
	if counts[2] < 450 {
		t.Fatalf("weaker tribute should dominate: %v", counts)
	}
}
