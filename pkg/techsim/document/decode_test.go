package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/freeeve/techsim/pkg/techsim"
)

func TestLoadFiles_TOML(t *testing.T) {
	sim, err := LoadFiles(filepath.Join("testdata", "cast.toml"), filepath.Join("testdata", "events.toml"))
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if sim.Name != "The 74th Games" || len(sim.Cast) != 6 || len(sim.Districts) != 3 {
		t.Fatalf("unexpected simulation %q with %d tributes", sim.Name, len(sim.Cast))
	}
	if len(sim.Cycles) != 3 || len(sim.Items) != 1 {
		t.Fatalf("expected 3 cycles and 1 item, got %d/%d", len(sim.Cycles), len(sim.Items))
	}
	bb := sim.Cycles[0]
	if !bb.Scripted || bb.ScriptedAt != 0 {
		t.Fatalf("bloodbath should be scripted at round 0: %+v", bb)
	}
	if sim.Cycles[2].Weight != -1 {
		t.Fatalf("night weight: got %d", sim.Cycles[2].Weight)
	}
	stalk := sim.Cycles[1].Events[1]
	if stalk.Requirements[0].Power == nil || stalk.Requirements[0].Power.Op != techsim.OpGreater {
		t.Fatalf("power requirement not decoded: %+v", stalk.Requirements[0])
	}
	ally := sim.Cycles[1].Events[0]
	if ally.Requirements[0].Relations[1] != techsim.RelNeutral {
		t.Fatalf("relationship not decoded: %+v", ally.Requirements[0].Relations)
	}
	bow := sim.Items[0]
	if bow.Power != 100 || bow.UseCount != 3 || !bow.FoundIn("Day") {
		t.Fatalf("unexpected item %+v", bow)
	}

	rng := techsim.NewRand("74")
	if err := sim.Ready(rng, techsim.ReadyOptions{Seed: "74", ShuffleRoster: true}); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	for round := 0; !sim.IsComplete(); round++ {
		if round > 200 {
			t.Fatal("no winner after 200 rounds")
		}
		if _, err := sim.ComputeCycle(rng); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
}

func TestLoadFiles_YAMLAndJSON(t *testing.T) {
	sim, err := LoadFiles(filepath.Join("testdata", "cast.yaml"), filepath.Join("testdata", "events.yaml"))
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if got := sim.Cycles[0].Events[0].Requirements[0].Relations[1]; got != techsim.RelNotAllies {
		t.Fatalf("integer YAML keys should decode as positions, got %v", got)
	}

	es, err := DecodeEvents(mustRead(t, "events.json"), JSON)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if es.Cycles[0].MaxUse == nil || *es.Cycles[0].MaxUse != 2 {
		t.Fatalf("max_use not decoded: %+v", es.Cycles[0])
	}
	if es.Cycles[1].Weight == nil || es.Cycles[1].Weight.Value != -1 || es.Cycles[1].Weight.Scripted {
		t.Fatalf("weight not decoded: %+v", es.Cycles[1].Weight)
	}
}

func TestDecode_SchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		events   bool
		wantPath string
	}{
		{"missing cast", `name = "x"
[[districts]]
name = "a"`, false, ""},
		{"bad gender", `name = "x"
[[cast]]
name = "a"
gender = 9
[[districts]]
name = "a"`, false, "cast[0].gender"},
		{"unknown cast field", `name = "x"
colour = "red"
[[cast]]
name = "a"
gender = 1
[[districts]]
name = "a"`, false, ""},
		{"unknown change", `[[cycles]]
name = "Day"
[[cycles.events]]
text = "x"
tribute_changes = [{ explode = 1 }]`, true, "cycles[0].events[0].tribute_changes[0]"},
		{"bad relationship", `[[cycles]]
name = "Day"
[[cycles.events]]
text = "x"
tribute_changes = [{}, {}]
tribute_requirements = [{ relationship = { "2" = "frenemies" } }, {}]`, true, "cycles[0].events[0].tribute_requirements[0].relationship"},
		{"bad allow_item_events", `[[cycles]]
name = "Day"
allow_item_events = "sometimes"
[[cycles.events]]
text = "x"
tribute_changes = [{}]`, true, "cycles[0].allow_item_events"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.events {
				_, err = DecodeEvents([]byte(tt.doc), TOML)
			} else {
				_, err = DecodeCast([]byte(tt.doc), TOML)
			}
			var ce *techsim.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if !strings.HasPrefix(ce.Path, tt.wantPath) {
				t.Errorf("expected path under %q, got %q (%v)", tt.wantPath, ce.Path, err)
			}
		})
	}
}

func TestDecode_SemanticErrors(t *testing.T) {
	events := `[[cycles]]
name = "Day"
[[cycles.events]]
text = "x"
tribute_changes = [{ allies = [[1, 1]] }, {}]`
	cast := mustRead(t, "cast.toml")
	_, err := Load(cast, TOML, []byte(events), TOML)
	var ce *techsim.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if !strings.Contains(ce.Path, "allies") {
		t.Fatalf("expected the self link to be reported, got %v", err)
	}
}

func TestDecode_MalformedSyntax(t *testing.T) {
	for _, f := range []Format{TOML, YAML, JSON} {
		_, err := DecodeCast([]byte("name = [\n"), f)
		if err == nil {
			t.Errorf("%s: expected a syntax error", f)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"toml": TOML, ".yml": YAML, "YAML": YAML, ".json": JSON}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected an error for xml")
	}
}

func TestPointerPath(t *testing.T) {
	tests := map[string]string{
		"":                        "",
		"/cast/0/gender":          "cast[0].gender",
		"/cycles/1/events/0/text": "cycles[1].events[0].text",
		"/a~1b":                   "a/b",
	}
	for in, want := range tests {
		if got := pointerPath(in); got != want {
			t.Errorf("pointerPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func mustRead(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}
