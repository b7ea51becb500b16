package techsim

import (
	"fmt"
	"math/rand"
	"slices"
)

// ReadyOptions configures ready-up.
type ReadyOptions struct {
	Seed             string
	ShuffleRoster    bool
	RecolorDistricts bool
}

// Ready assigns tributes to districts, allies district members with each
// other, and moves the simulation to round zero. rng should be derived from
// opts.Seed so that the run reproduces.
func (s *Simulation) Ready(rng *rand.Rand, opts ReadyOptions) error {
	if s.Cycle != CycleUnready {
		return ErrAlreadyReady
	}
	s.Seed = opts.Seed

	order := make([]TributeID, len(s.Cast))
	for i := range order {
		order[i] = TributeID(i)
	}
	if opts.ShuffleRoster {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	if opts.RecolorDistricts {
		step := 360 / len(s.Districts)
		offset := rng.Intn(step + 1)
		for i, d := range s.Districts {
			d.Color = hueColor(i*step + offset)
		}
	}

	per, extra := len(order)/len(s.Districts), len(order)%len(s.Districts)
	next := 0
	for i, d := range s.Districts {
		n := per
		if i < extra {
			n++
		}
		d.Members = slices.Clone(order[next : next+n])
		next += n
		for _, id := range d.Members {
			s.Cast[id].District = d.ID
		}
		for _, a := range d.Members {
			for _, b := range d.Members {
				s.Cast[a].UpdateRelationship(Allies, b, true)
			}
		}
	}

	s.Cycle = 0
	s.Alive = make([]TributeID, len(s.Cast))
	for i := range s.Cast {
		s.Alive[i] = TributeID(i)
	}
	s.Dead = nil
	s.CycleDeaths = nil
	return nil
}

// hueColor renders a fully saturated, full value hue as #rrggbb.
func hueColor(hue int) string {
	hue %= 360
	x := 255 * (60 - abs(hue%120-60)) / 60
	var r, g, b int
	switch {
	case hue < 60:
		r, g, b = 255, x, 0
	case hue < 120:
		r, g, b = x, 255, 0
	case hue < 180:
		r, g, b = 0, 255, x
	case hue < 240:
		r, g, b = 0, x, 255
	case hue < 300:
		r, g, b = x, 0, 255
	default:
		r, g, b = 255, 0, x
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// IsReady reports whether rounds can be computed.
func (s *Simulation) IsReady() bool {
	return s.Cycle >= 0
}

// IsComplete reports whether the simulation has reached its terminal state.
func (s *Simulation) IsComplete() bool {
	return s.Cycle == CycleComplete
}

// EffectivePower is base power plus held items' power, never below 1.
func (s *Simulation) EffectivePower(id TributeID) int {
	t := s.Cast[id]
	p := t.Power
	for item := range t.Items {
		p += s.Items[item].Power
	}
	return max(p, 1)
}

// Tribute returns the tribute with the given ID.
func (s *Simulation) Tribute(id TributeID) *Tribute {
	return s.Cast[id]
}

// TributeByName looks a tribute up by its unique name.
func (s *Simulation) TributeByName(name string) (*Tribute, bool) {
	for _, t := range s.Cast {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// District returns the district with the given ID.
func (s *Simulation) District(id DistrictID) *District {
	return s.Districts[id]
}

// DistrictName returns the name of the tribute's district, or "" before ready-up.
func (s *Simulation) DistrictName(id TributeID) string {
	d := s.Cast[id].District
	if d == NoDistrict {
		return ""
	}
	return s.Districts[d].Name
}

// LivingDistricts returns the IDs of districts with at least one living member.
func (s *Simulation) LivingDistricts() []DistrictID {
	seen := map[DistrictID]bool{}
	var out []DistrictID
	for _, id := range s.Alive {
		d := s.Cast[id].District
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}

// ItemNames returns the names of the tribute's held items in item order.
func (s *Simulation) ItemNames(id TributeID) []string {
	held := s.heldItems(s.Cast[id])
	out := make([]string, len(held))
	for i, item := range held {
		out[i] = s.Items[item].Name
	}
	return out
}

func (s *Simulation) heldItems(t *Tribute) []ItemID {
	held := make([]ItemID, 0, len(t.Items))
	for item := range t.Items {
		held = append(held, item)
	}
	slices.Sort(held)
	return held
}
