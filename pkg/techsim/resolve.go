package techsim

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
)

// EventOutcome is the narration and effect of one resolved event.
type EventOutcome struct {
	Event        *Event
	Participants []TributeID
	// Lines holds the event line first, then any item break lines.
	Lines  []string
	Deaths []TributeID
}

// Text joins the outcome's lines.
func (o *EventOutcome) Text() string {
	return strings.Join(o.Lines, "\n")
}

type transfer struct {
	item    ItemID
	charges int
}

// ResolveEvent applies e's changes to participants, which must be index
// aligned with the event's positions. Item losses are applied first so that
// item gains can draw from them. All rules are checked before anything is
// mutated; a rule that cannot apply yields an *InvariantError and leaves the
// simulation untouched.
func (s *Simulation) ResolveEvent(rng *rand.Rand, e *Event, participants []TributeID) (*EventOutcome, error) {
	if err := s.checkEvent(e, participants); err != nil {
		return nil, err
	}
	out := &EventOutcome{Event: e, Participants: slices.Clone(participants)}

	var pool []transfer
	lost := map[int][]ItemID{}
	gained := map[int][]ItemID{}

	for p, changes := range e.Changes {
		t := s.Cast[participants[p]]
		for _, c := range changes {
			if c.Kind != ChangeItemLoss {
				continue
			}
			if c.Amount == 0 {
				pool = append(pool, transfer{e.Item, t.Items[e.Item]})
				delete(t.Items, e.Item)
				lost[p] = append(lost[p], e.Item)
				continue
			}
			for k := c.Amount; k > 0 && len(t.Items) > 0; k-- {
				held := s.heldItems(t)
				item := held[rng.Intn(len(held))]
				pool = append(pool, transfer{item, t.Items[item]})
				delete(t.Items, item)
				lost[p] = append(lost[p], item)
			}
		}
	}

	var breaks []string
	for p, changes := range e.Changes {
		t := s.Cast[participants[p]]
		for _, c := range changes {
			switch c.Kind {
			case ChangePower:
				t.Power += c.Amount
			case ChangePowerBounded:
				t.Power = boundedPower(t.Power, c.Amount)
			case ChangeStatus:
				if s.setStatus(t, Status(c.Amount)) && t.Status == Dead {
					out.Deaths = append(out.Deaths, t.ID)
				}
			case ChangeItemUse:
				charges, ok := t.Items[e.Item]
				if !ok || charges < 0 {
					// Lost earlier in this event, or unlimited.
					continue
				}
				charges -= c.Amount
				if charges > 0 {
					t.Items[e.Item] = charges
					continue
				}
				delete(t.Items, e.Item)
				line := s.Items[e.Item].BreakText.Render(map[string]string{"Tribute1": t.Name})
				breaks = append(breaks, line)
				t.Log = append(t.Log, line)
			case ChangeItemGain:
				var items []transfer
				if c.Amount == 0 {
					items = []transfer{{e.Item, s.Items[e.Item].UseCount}}
				} else {
					rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
					k := min(c.Amount, len(pool))
					items, pool = pool[:k], pool[k:]
				}
				for _, tr := range items {
					t.Items[tr.item] = mergeCharges(t.Items, tr)
					gained[p] = append(gained[p], tr.item)
				}
			case ChangeKills:
				t.Kills += c.Amount
			case ChangeAllies, ChangeEnemies:
				kind := Allies
				if c.Kind == ChangeEnemies {
					kind = Enemies
				}
				for _, l := range c.Links {
					t.UpdateRelationship(kind, participants[l.Position], l.Add)
				}
			}
		}
	}

	line := e.Text.Render(s.placeholders(participants, lost, gained))
	for _, id := range participants {
		t := s.Cast[id]
		t.Log = append(t.Log, line)
	}
	out.Lines = append([]string{line}, breaks...)

	if e.MaxUse > 0 {
		e.MaxUse--
	}
	if e.CycleUse > 0 {
		e.CycleUse--
	}
	return out, nil
}

// checkEvent rejects rules that cannot apply to these participants.
func (s *Simulation) checkEvent(e *Event, participants []TributeID) error {
	name := e.Text.String()
	if len(participants) != e.Participants() {
		return &InvariantError{Event: name, Position: 0,
			Message: fmt.Sprintf("expected %d participants, got %d", e.Participants(), len(participants))}
	}
	for p, changes := range e.Changes {
		t := s.Cast[participants[p]]
		charges, held := t.Items[e.Item]
		dropsItem := false
		for _, c := range changes {
			if c.Kind == ChangeItemLoss && c.Amount == 0 {
				if !held {
					return &InvariantError{Event: name, Position: p, Message: t.Name + " does not hold the item to lose"}
				}
				dropsItem = true
			}
		}
		for _, c := range changes {
			if c.Kind != ChangeItemUse {
				continue
			}
			if !held || dropsItem {
				return &InvariantError{Event: name, Position: p, Message: t.Name + " does not hold the item to use"}
			}
			if charges >= 0 && charges < c.Amount {
				return &InvariantError{Event: name, Position: p,
					Message: fmt.Sprintf("%s has %d charges, event uses %d", t.Name, charges, c.Amount)}
			}
		}
	}
	return nil
}

// boundedPower adds delta but never moves power past BasePower, and never
// moves it away from BasePower.
func boundedPower(power, delta int) int {
	switch {
	case delta > 0:
		return max(power, min(power+delta, BasePower))
	case delta < 0:
		return min(power, max(power+delta, BasePower))
	}
	return power
}

func mergeCharges(items map[ItemID]int, tr transfer) int {
	have, ok := items[tr.item]
	if !ok {
		return tr.charges
	}
	if have < 0 || tr.charges < 0 {
		return -1
	}
	return have + tr.charges
}

// setStatus moves t between the alive and dead rosters. It reports whether
// the status changed.
func (s *Simulation) setStatus(t *Tribute, status Status) bool {
	if t.Status == status {
		return false
	}
	t.Status = status
	if status == Dead {
		s.Alive = without(s.Alive, t.ID)
		s.Dead = append(s.Dead, t.ID)
		s.CycleDeaths = append(s.CycleDeaths, t.ID)
		return true
	}
	s.Dead = without(s.Dead, t.ID)
	s.CycleDeaths = without(s.CycleDeaths, t.ID)
	s.Alive = append(s.Alive, t.ID)
	return true
}
