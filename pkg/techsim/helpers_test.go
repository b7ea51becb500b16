package techsim

import (
	"encoding/json"
	"fmt"
	"testing"
)

func intp(n int) *int { return &n }

// rules decodes one JSON object per position.
func rules(t *testing.T, docs ...string) []RuleSpec {
	t.Helper()
	out := make([]RuleSpec, len(docs))
	for i, d := range docs {
		if err := json.Unmarshal([]byte(d), &out[i]); err != nil {
			t.Fatalf("bad rule %q: %v", d, err)
		}
	}
	return out
}

// castOf builds districts*per tributes named D<d>T<n> in district order.
func castOf(districts, per int) CastSpec {
	cs := CastSpec{Name: "Test Games"}
	for d := 1; d <= districts; d++ {
		cs.Districts = append(cs.Districts, DistrictSpec{Name: fmt.Sprintf("District %d", d)})
		for n := 1; n <= per; n++ {
			cs.Cast = append(cs.Cast, TributeSpec{Name: fmt.Sprintf("D%dT%d", d, n), Gender: intp((d + n) % 5)})
		}
	}
	return cs
}

func scripted(n int) *CycleWeight { return &CycleWeight{Value: n, Scripted: true} }

func weight(n int) *CycleWeight { return &CycleWeight{Value: n} }

func mustNew(t *testing.T, cast CastSpec, events EventsSpec) *Simulation {
	t.Helper()
	sim, err := New(cast, events)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sim
}

func mustReady(t *testing.T, cast CastSpec, events EventsSpec, seed string) *Simulation {
	t.Helper()
	sim := mustNew(t, cast, events)
	if err := sim.Ready(NewRand(seed), ReadyOptions{Seed: seed}); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	return sim
}

// arenaEvents is a small but complete library: a scripted bloodbath, day and
// night pools, relationship events and an item.
func arenaEvents(t *testing.T) EventsSpec {
	t.Helper()
	return EventsSpec{
		Cycles: []CycleSpec{
			{
				Name:   "Bloodbath",
				Text:   "The tributes rise onto the platforms.",
				Weight: scripted(0),
				Events: []EventSpec{
					{Text: "$Tribute1 runs away from the cornucopia.", TributeChanges: rules(t, `{}`)},
					{
						Text:           "$Tribute1 kills $Tribute2 at the cornucopia.",
						Weight:         intp(2),
						TributeChanges: rules(t, `{"kills": 1}`, `{"status": 1}`),
					},
				},
			},
			{
				Name:            "Day",
				AllowItemEvents: "cycle",
				Weight:          weight(1),
				Events: []EventSpec{
					{Text: "$Tribute1 hunts for food.", TributeChanges: rules(t, `{"power": 10}`)},
					{
						Text:                "$Tribute1 and $Tribute2 form an alliance.",
						TributeChanges:      rules(t, `{"allies": [[2, 1]]}`, `{"allies": [[1, 1]]}`),
						TributeRequirements: rules(t, `{"relationship": {"2": "neutral"}}`, `{}`),
					},
					{
						Text:           "$Tribute1 ambushes $Tribute2.",
						Weight:         intp(3),
						TributeChanges: rules(t, `{"kills": 1, "enemies": [[2, 1]]}`, `{"status": 1}`),
					},
				},
			},
			{
				Name:   "Night",
				Weight: weight(-1),
				Events: []EventSpec{
					{Text: "$Tribute1 sleeps.", TributeChanges: rules(t, `{"powern": 20}`)},
					{
						Text:                "$Tribute1 betrays $Tribute2 in $PA1 sleep.",
						Weight:              intp(3),
						TributeChanges:      rules(t, `{"kills": 1}`, `{"status": 1}`),
						TributeRequirements: rules(t, `{"relationship": {"2": "allies"}}`, `{}`),
					},
					{
						Text:           "$Tribute1 strangles $Tribute2.",
						Weight:         intp(2),
						TributeChanges: rules(t, `{"kills": 1}`, `{"status": 1}`),
					},
				},
			},
		},
		Items: []ItemSpec{
			{
				Name:     "Spear",
				Power:    50,
				Cycles:   []string{"Day"},
				UseCount: intp(2),
				BaseEvent: &EventSpec{
					Text:           "$Tribute1 finds a spear.",
					TributeChanges: rules(t, `{"itemg": 0}`),
				},
				Events: []EventSpec{{
					Text:           "$Tribute1 throws a spear at $Tribute2.",
					TributeChanges: rules(t, `{"itemu": 1, "kills": 1}`, `{"status": 1}`),
				}},
			},
		},
	}
}
