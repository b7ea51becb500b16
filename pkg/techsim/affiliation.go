package techsim

import (
	"math/rand"
	"slices"
)

// ResolveParticipants picks the co-participants of e around anchor. The
// result has the anchor at position 0, or is nil when no assignment
// satisfies the event. Candidates come from active (living tributes not yet
// used this round) and, where requirements allow, the dead. Weaker
// candidates are preferred.
func ResolveParticipants(rng *rand.Rand, sim *Simulation, e *Event, anchor TributeID, active []TributeID) []TributeID {
	n := e.Participants()
	if n == 1 {
		return []TributeID{anchor}
	}
	if !e.HasRelations() {
		return sampleParticipants(rng, sim, e, anchor, active)
	}
	return searchParticipants(rng, sim, e, anchor, active)
}

func without(ids []TributeID, id TributeID) []TributeID {
	out := make([]TributeID, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// sampleParticipants fills positions one by one from a shared pool. A
// candidate that fails a position is only dropped for that position.
func sampleParticipants(rng *rand.Rand, sim *Simulation, e *Event, anchor TributeID, active []TributeID) []TributeID {
	pool := without(active, anchor)
	if len(e.Requirements) > 0 {
		// Declared requirements may ask for dead tributes.
		pool = append(pool, sim.Dead...)
	}
	positional := slices.Clone(pool)
	chosen := []TributeID{anchor}
	for len(chosen) < e.Participants() {
		if len(pool) == 0 || len(positional) == 0 {
			return nil
		}
		weights := underdogWeights(sim, positional, powerCeiling(sim, positional))
		fit := positional[weightedIndex(rng, weights)]
		if sim.Eligible(e, sim.Cast[fit], len(chosen)) {
			chosen = append(chosen, fit)
			pool = without(pool, fit)
			positional = slices.Clone(pool)
		} else {
			positional = without(positional, fit)
		}
	}
	return chosen
}

func relationAt(e *Event, from, to int) Relation {
	if len(e.Requirements) == 0 {
		return RelAny
	}
	return e.Requirements[from].Relations[to]
}

type searchFrame struct {
	pos       int
	sets      [][]TributeID
	remaining []TributeID
	ceiling   int
}

func newFrame(sim *Simulation, pos int, sets [][]TributeID) searchFrame {
	return searchFrame{
		pos:       pos,
		sets:      sets,
		remaining: slices.Clone(sets[pos]),
		ceiling:   powerCeiling(sim, sets[pos]),
	}
}

// searchParticipants is a backtracking search over positions 1..n-1. Each
// frame holds the candidate sets in force when its position was entered and
// the candidates for that position not yet tried.
func searchParticipants(rng *rand.Rand, sim *Simulation, e *Event, anchor TributeID, active []TributeID) []TributeID {
	n := e.Participants()
	base := without(active, anchor)
	base = append(base, sim.Dead...)
	slices.Sort(base)

	a := sim.Cast[anchor]
	sets := make([][]TributeID, n)
	sets[0] = []TributeID{anchor}
	for p := 1; p < n; p++ {
		sets[p] = filterRelated(a, base, relationAt(e, 0, p))
	}
	for p := range sets {
		eligible := sets[p][:0:0]
		for _, id := range sets[p] {
			if sim.Eligible(e, sim.Cast[id], p) {
				eligible = append(eligible, id)
			}
		}
		if len(eligible) == 0 {
			return nil
		}
		sets[p] = eligible
	}

	trail := []TributeID{anchor}
	stack := []searchFrame{newFrame(sim, 1, sets)}
	for len(stack) > 0 {
		top := len(stack) - 1
		f := &stack[top]
		if len(f.remaining) == 0 {
			stack = stack[:top]
			trail = trail[:f.pos-1]
			continue
		}
		idx := weightedIndex(rng, underdogWeights(sim, f.remaining, f.ceiling))
		c := f.remaining[idx]
		f.remaining = slices.Delete(f.remaining, idx, idx+1)
		if !consistent(sim, e, trail, c) {
			continue
		}
		if f.pos == n-1 {
			return append(slices.Clone(trail), c)
		}
		next, ok := narrow(sim, e, f.sets, f.pos, c)
		if !ok {
			continue
		}
		pos := f.pos
		trail = append(trail, c)
		stack = append(stack, newFrame(sim, pos+1, next))
	}
	return nil
}

// consistent checks candidate c against every participant already chosen,
// both from the earlier participant's point of view and from c's own.
func consistent(sim *Simulation, e *Event, trail []TributeID, c TributeID) bool {
	if slices.Contains(trail, c) {
		return false
	}
	pos := len(trail)
	ct := sim.Cast[c]
	for j, prev := range trail {
		if !sim.Cast[prev].Relates(c, relationAt(e, j, pos)) {
			return false
		}
		if !ct.Relates(prev, relationAt(e, pos, j)) {
			return false
		}
	}
	return true
}

// narrow applies c's relationship requirements at pos to every later
// position. It fails if any later position is left without candidates.
func narrow(sim *Simulation, e *Event, sets [][]TributeID, pos int, c TributeID) ([][]TributeID, bool) {
	next := slices.Clone(sets)
	next[pos] = []TributeID{c}
	ct := sim.Cast[c]
	for q := pos + 1; q < len(sets); q++ {
		next[q] = without(filterRelated(ct, sets[q], relationAt(e, pos, q)), c)
		if len(next[q]) == 0 {
			return nil, false
		}
	}
	return next, true
}
