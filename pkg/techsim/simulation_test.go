package techsim

import (
	"errors"
	"testing"
)

func TestReady_AssignsDistricts(t *testing.T) {
	cast := castOf(1, 8)
	cast.Districts = []DistrictSpec{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	sim := mustReady(t, cast, arenaEvents(t), "7")

	if sim.Cycle != 0 {
		t.Fatalf("expected round 0, got %d", sim.Cycle)
	}
	sizes := []int{3, 3, 2}
	for i, d := range sim.Districts {
		if len(d.Members) != sizes[i] {
			t.Errorf("district %s: expected %d members, got %d", d.Name, sizes[i], len(d.Members))
		}
		for _, a := range d.Members {
			ta := sim.Cast[a]
			if ta.District != d.ID {
				t.Errorf("%s: expected district %d, got %d", ta.Name, d.ID, ta.District)
			}
			if ta.Allies.Has(a) {
				t.Errorf("%s is its own ally", ta.Name)
			}
			for _, b := range d.Members {
				if a != b && !ta.Allies.Has(b) {
					t.Errorf("%s should be allied with %s", ta.Name, sim.Cast[b].Name)
				}
			}
			if len(ta.Allies) != len(d.Members)-1 {
				t.Errorf("%s: expected %d allies, got %d", ta.Name, len(d.Members)-1, len(ta.Allies))
			}
		}
	}
	if len(sim.Alive) != 8 || len(sim.Dead) != 0 {
		t.Fatalf("expected 8 alive and 0 dead, got %d/%d", len(sim.Alive), len(sim.Dead))
	}

	if err := sim.Ready(NewRand("7"), ReadyOptions{}); !errors.Is(err, ErrAlreadyReady) {
		t.Fatalf("expected ErrAlreadyReady, got %v", err)
	}
}

func TestReady_ShuffleKeepsArena(t *testing.T) {
	sim := mustNew(t, castOf(4, 3), arenaEvents(t))
	if err := sim.Ready(NewRand("99"), ReadyOptions{Seed: "99", ShuffleRoster: true, RecolorDistricts: true}); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	for i, tr := range sim.Cast {
		if tr.ID != TributeID(i) {
			t.Fatalf("arena reordered: index %d holds %d", i, tr.ID)
		}
	}
	seen := map[TributeID]bool{}
	colors := map[string]bool{}
	for _, d := range sim.Districts {
		for _, id := range d.Members {
			if seen[id] {
				t.Fatalf("tribute %d assigned twice", id)
			}
			seen[id] = true
		}
		if len(d.Color) != 7 || d.Color[0] != '#' {
			t.Errorf("district %s: unexpected color %q", d.Name, d.Color)
		}
		colors[d.Color] = true
	}
	if len(seen) != len(sim.Cast) {
		t.Fatalf("expected every tribute assigned, got %d", len(seen))
	}
	if len(colors) != len(sim.Districts) {
		t.Errorf("expected distinct colors, got %v", colors)
	}
	if sim.Seed != "99" {
		t.Errorf("expected seed to be recorded, got %q", sim.Seed)
	}
}

func TestHueColor(t *testing.T) {
	tests := map[int]string{0: "#ff0000", 60: "#ffff00", 120: "#00ff00", 240: "#0000ff", 360: "#ff0000"}
	for hue, want := range tests {
		if got := hueColor(hue); got != want {
			t.Errorf("hue %d: expected %s, got %s", hue, want, got)
		}
	}
}

func TestEffectivePower_Floor(t *testing.T) {
	events := arenaEvents(t)
	events.Items[0].Power = -300
	sim := mustReady(t, castOf(2, 1), events, "1")

	tr := sim.Cast[0]
	if got := sim.EffectivePower(tr.ID); got != BasePower {
		t.Fatalf("expected %d, got %d", BasePower, got)
	}
	tr.Items[0] = 1
	if got := sim.EffectivePower(tr.ID); got != BasePower-300 {
		t.Fatalf("expected item power applied, got %d", got)
	}
	tr.Power = -1000
	if got := sim.EffectivePower(tr.ID); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
}

func TestUpdateRelationship_Exclusive(t *testing.T) {
	a := &Tribute{ID: 0, Allies: TributeSet{}, Enemies: TributeSet{}}

	a.UpdateRelationship(Allies, 1, true)
	a.UpdateRelationship(Enemies, 1, true)
	if a.Allies.Has(1) || !a.Enemies.Has(1) {
		t.Fatalf("adding an enemy should remove the ally: allies=%v enemies=%v", a.Allies, a.Enemies)
	}
	a.UpdateRelationship(Allies, 1, true)
	if !a.Allies.Has(1) || a.Enemies.Has(1) {
		t.Fatalf("adding an ally should remove the enemy: allies=%v enemies=%v", a.Allies, a.Enemies)
	}
	a.UpdateRelationship(Allies, 1, false)
	if a.Allies.Has(1) || a.Enemies.Has(1) {
		t.Fatalf("removal should leave the pair neutral")
	}
	a.UpdateRelationship(Enemies, 0, true)
	if a.Enemies.Has(0) {
		t.Fatal("a tribute must never be its own enemy")
	}
}

func TestRelates(t *testing.T) {
	a := &Tribute{ID: 0, Allies: TributeSet{1: {}}, Enemies: TributeSet{2: {}}}
	tests := []struct {
		other TributeID
		rel   Relation
		want  bool
	}{
		{1, RelAllies, true},
		{2, RelAllies, false},
		{2, RelEnemies, true},
		{3, RelEnemies, false},
		{3, RelNeutral, true},
		{1, RelNeutral, false},
		{1, RelNotAllies, false},
		{2, RelNotAllies, true},
		{2, RelNotEnemies, false},
		{1, RelNotEnemies, true},
		{2, RelAny, true},
	}
	for _, tt := range tests {
		if got := a.Relates(tt.other, tt.rel); got != tt.want {
			t.Errorf("Relates(%d, %s) = %v, want %v", tt.other, tt.rel, got, tt.want)
		}
	}
}

func TestEligible(t *testing.T) {
	events := EventsSpec{
		Cycles: []CycleSpec{{Name: "Day", Events: []EventSpec{{Text: "x", TributeChanges: rules(t, `{}`)}}}},
		Items: []ItemSpec{{
			Name:      "Rope",
			BaseEvent: &EventSpec{Text: "x", TributeChanges: rules(t, `{"itemg": 0}`)},
			Events: []EventSpec{{
				Text:                "$Tribute1 and $Tribute2 climb.",
				TributeChanges:      rules(t, `{}`, `{}`),
				TributeRequirements: rules(t, `{"item_status": [">", 1], "power": ["<", 600]}`, `{"status": 1}`),
			}},
		}},
	}
	sim := mustReady(t, castOf(2, 1), events, "3")
	plain := sim.Cycles[0].Events[0]
	climb := sim.Items[0].Events[0]
	a, b := sim.Cast[0], sim.Cast[1]

	if !sim.Eligible(plain, a, 0) {
		t.Fatal("a living tribute should satisfy an event without requirements")
	}
	b.Status = Dead
	if sim.Eligible(plain, b, 0) {
		t.Fatal("a dead tribute should not satisfy an event without requirements")
	}
	if !sim.Eligible(climb, b, 1) {
		t.Fatal("position 2 requires a dead tribute")
	}

	if sim.Eligible(climb, a, 0) {
		t.Fatal("tribute without the item should fail item_status")
	}
	a.Items[0] = 1
	if sim.Eligible(climb, a, 0) {
		t.Fatal("1 charge should fail item_status > 1")
	}
	a.Items[0] = 2
	if !sim.Eligible(climb, a, 0) {
		t.Fatal("2 charges should satisfy item_status > 1")
	}
	a.Power = 600
	if sim.Eligible(climb, a, 0) {
		t.Fatal("power 600 should fail power < 600")
	}
	a.Power = BasePower

	climb.CycleUse = 0
	if sim.Eligible(climb, a, 0) {
		t.Fatal("an event with no uses left this round is never eligible")
	}
	climb.CycleUse = -1
	climb.MaxUse = 0
	if sim.Eligible(climb, a, 0) {
		t.Fatal("an exhausted event is never eligible")
	}
}

func TestSeedValue(t *testing.T) {
	if SeedValue("12345") != 12345 {
		t.Fatal("numeric seeds should be used directly")
	}
	if SeedValue("hunger") != SeedValue("hunger") {
		t.Fatal("string seeds should hash deterministically")
	}
	if SeedValue("hunger") == SeedValue("games") {
		t.Fatal("different seeds should differ")
	}
}
