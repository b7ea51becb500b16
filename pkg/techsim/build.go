package techsim

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
)

// CastSpec is the decoded cast document.
type CastSpec struct {
	Name      string         `json:"name"`
	Logo      string         `json:"logo,omitempty"`
	Cast      []TributeSpec  `json:"cast"`
	Districts []DistrictSpec `json:"districts"`
}

type TributeSpec struct {
	Name      string `json:"name"`
	Gender    *int   `json:"gender"`
	Image     string `json:"image,omitempty"`
	DeadImage string `json:"dead_image,omitempty"`
}

type DistrictSpec struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// EventsSpec is the decoded events document.
type EventsSpec struct {
	Cycles []CycleSpec `json:"cycles"`
	Items  []ItemSpec  `json:"items,omitempty"`
}

type CycleSpec struct {
	Name            string       `json:"name"`
	Text            string       `json:"text,omitempty"`
	AllowItemEvents string       `json:"allow_item_events,omitempty"`
	Weight          *CycleWeight `json:"weight,omitempty"`
	MaxUse          *int         `json:"max_use,omitempty"`
	Events          []EventSpec  `json:"events"`
}

// CycleWeight is either a day/night weight (a number) or, when given as a
// string, the exact round index of a scripted cycle.
type CycleWeight struct {
	Value    int
	Scripted bool
}

func (w *CycleWeight) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*w = CycleWeight{Value: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("weight must be an integer or a numeric string")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("scripted weight %q is not a round index", s)
	}
	*w = CycleWeight{Value: n, Scripted: true}
	return nil
}

func (w CycleWeight) MarshalJSON() ([]byte, error) {
	if w.Scripted {
		return json.Marshal(strconv.Itoa(w.Value))
	}
	return json.Marshal(w.Value)
}

type EventSpec struct {
	Text                string     `json:"text"`
	Weight              *int       `json:"weight,omitempty"`
	MaxUse              *int       `json:"max_use,omitempty"`
	MaxCycle            *int       `json:"max_cycle,omitempty"`
	TributeChanges      []RuleSpec `json:"tribute_changes"`
	TributeRequirements []RuleSpec `json:"tribute_requirements,omitempty"`
}

type ItemSpec struct {
	Name      string      `json:"name"`
	Text      string      `json:"text,omitempty"`
	Power     int         `json:"power,omitempty"`
	Cycles    []string    `json:"cycles,omitempty"`
	UseCount  *int        `json:"use_count,omitempty"`
	BaseEvent *EventSpec  `json:"base_event"`
	Events    []EventSpec `json:"events,omitempty"`
}

// New validates both documents and builds an unready simulation.
func New(cast CastSpec, events EventsSpec) (*Simulation, error) {
	sim := &Simulation{
		Name:  cast.Name,
		Logo:  cast.Logo,
		Cycle: CycleUnready,
		log:   zerolog.Nop(),
	}
	if cast.Name == "" {
		return nil, configErrorf("name", "required")
	}
	if len(cast.Cast) == 0 {
		return nil, configErrorf("cast", "at least one tribute is required")
	}
	if len(cast.Districts) == 0 {
		return nil, configErrorf("districts", "at least one district is required")
	}

	names := make(map[string]bool, len(cast.Cast))
	for i, ts := range cast.Cast {
		path := fmt.Sprintf("cast[%d]", i)
		if ts.Name == "" {
			return nil, configErrorf(path+".name", "required")
		}
		if names[ts.Name] {
			return nil, configErrorf(path+".name", "duplicate tribute %q", ts.Name)
		}
		names[ts.Name] = true
		if ts.Gender == nil {
			return nil, configErrorf(path+".gender", "required")
		}
		if *ts.Gender < int(Female) || *ts.Gender > int(NonBinary) {
			return nil, configErrorf(path+".gender", "must be between 0 and 4")
		}
		sim.Cast = append(sim.Cast, &Tribute{
			ID:        TributeID(i),
			Name:      ts.Name,
			Gender:    Gender(*ts.Gender),
			Image:     ts.Image,
			DeadImage: ts.DeadImage,
			Status:    Alive,
			Power:     BasePower,
			District:  NoDistrict,
			Allies:    TributeSet{},
			Enemies:   TributeSet{},
			Items:     map[ItemID]int{},
		})
	}

	for i, ds := range cast.Districts {
		if ds.Name == "" {
			return nil, configErrorf(fmt.Sprintf("districts[%d].name", i), "required")
		}
		sim.Districts = append(sim.Districts, &District{ID: DistrictID(i), Name: ds.Name, Color: ds.Color})
	}

	if len(events.Cycles) == 0 {
		return nil, configErrorf("cycles", "the cycle library is empty")
	}
	cycleNames := make(map[string]bool, len(events.Cycles))
	for i, cs := range events.Cycles {
		c, err := buildCycle(fmt.Sprintf("cycles[%d]", i), cs)
		if err != nil {
			return nil, err
		}
		if cycleNames[c.Name] {
			return nil, configErrorf(fmt.Sprintf("cycles[%d].name", i), "duplicate cycle %q", c.Name)
		}
		cycleNames[c.Name] = true
		sim.Cycles = append(sim.Cycles, c)
	}

	for i, is := range events.Items {
		path := fmt.Sprintf("items[%d]", i)
		it, err := buildItem(path, ItemID(i), is)
		if err != nil {
			return nil, err
		}
		for j, name := range it.Cycles {
			if !cycleNames[name] {
				return nil, configErrorf(fmt.Sprintf("%s.cycles[%d]", path, j), "unknown cycle %q", name)
			}
		}
		sim.Items = append(sim.Items, it)
	}
	return sim, nil
}

// SetLogger attaches a logger for skipped anchors and failed resolutions.
func (s *Simulation) SetLogger(l zerolog.Logger) {
	s.log = l
}

func buildCycle(path string, cs CycleSpec) (*Cycle, error) {
	if cs.Name == "" {
		return nil, configErrorf(path+".name", "required")
	}
	c := &Cycle{Name: cs.Name, Text: cs.Text, Weight: 1, MaxUse: -1}
	switch cs.AllowItemEvents {
	case "", "none":
		c.AllowItemEvents = ItemEventsNone
	case "cycle":
		c.AllowItemEvents = ItemEventsCycle
	case "all":
		c.AllowItemEvents = ItemEventsAll
	default:
		return nil, configErrorf(path+".allow_item_events", "must be one of none, cycle, all")
	}
	if cs.Weight != nil {
		if cs.Weight.Scripted {
			if cs.Weight.Value < 0 {
				return nil, configErrorf(path+".weight", "scripted round index must not be negative")
			}
			c.Scripted = true
			c.ScriptedAt = cs.Weight.Value
			c.Weight = 0
		} else {
			c.Weight = cs.Weight.Value
		}
	}
	if cs.MaxUse != nil {
		if *cs.MaxUse < -1 {
			return nil, configErrorf(path+".max_use", "must be -1 or greater")
		}
		c.MaxUse = *cs.MaxUse
	}
	if len(cs.Events) == 0 {
		return nil, configErrorf(path+".events", "at least one event is required")
	}
	for i, es := range cs.Events {
		ev, err := buildEvent(fmt.Sprintf("%s.events[%d]", path, i), es, cs.Name, NoItem)
		if err != nil {
			return nil, err
		}
		c.Events = append(c.Events, ev)
	}
	return c, nil
}

func buildItem(path string, id ItemID, is ItemSpec) (*Item, error) {
	if is.Name == "" {
		return nil, configErrorf(path+".name", "required")
	}
	it := &Item{ID: id, Name: is.Name, Power: is.Power, Cycles: is.Cycles, UseCount: -1}
	text := is.Text
	if text == "" {
		text = "$Tribute1's " + is.Name + " broke."
	}
	it.BreakText = ParseTemplate(text)
	if is.UseCount != nil {
		if *is.UseCount == 0 || *is.UseCount < -1 {
			return nil, configErrorf(path+".use_count", "must be -1 or positive")
		}
		it.UseCount = *is.UseCount
	}
	if is.BaseEvent == nil {
		return nil, configErrorf(path+".base_event", "required")
	}
	base, err := buildEvent(path+".base_event", *is.BaseEvent, "", id)
	if err != nil {
		return nil, err
	}
	it.BaseEvent = base
	for i, es := range is.Events {
		ev, err := buildEvent(fmt.Sprintf("%s.events[%d]", path, i), es, "", id)
		if err != nil {
			return nil, err
		}
		it.Events = append(it.Events, ev)
	}
	return it, nil
}

func buildEvent(path string, es EventSpec, cycle string, item ItemID) (*Event, error) {
	if es.Text == "" {
		return nil, configErrorf(path+".text", "required")
	}
	ev := &Event{
		Text:     ParseTemplate(es.Text),
		Cycle:    cycle,
		Item:     item,
		Weight:   1,
		MaxUse:   -1,
		MaxCycle: -1,
	}
	if es.Weight != nil {
		if *es.Weight < 0 {
			return nil, configErrorf(path+".weight", "must not be negative")
		}
		ev.Weight = *es.Weight
	}
	if es.MaxUse != nil {
		ev.MaxUse = *es.MaxUse
	}
	if es.MaxCycle != nil {
		ev.MaxCycle = *es.MaxCycle
	}
	ev.CycleUse = ev.MaxCycle

	n := len(es.TributeChanges)
	if n == 0 {
		return nil, configErrorf(path+".tribute_changes", "at least one position is required")
	}
	if len(es.TributeRequirements) != 0 && len(es.TributeRequirements) != n {
		return nil, configErrorf(path+".tribute_requirements", "expected %d entries, got %d", n, len(es.TributeRequirements))
	}
	hasItem := item != NoItem
	for i, spec := range es.TributeChanges {
		changes, err := decodeChanges(fmt.Sprintf("%s.tribute_changes[%d]", path, i), spec, i, n, hasItem)
		if err != nil {
			return nil, err
		}
		ev.Changes = append(ev.Changes, changes)
	}
	for i, spec := range es.TributeRequirements {
		req, err := decodeRequirement(fmt.Sprintf("%s.tribute_requirements[%d]", path, i), spec, i, n, hasItem)
		if err != nil {
			return nil, err
		}
		ev.Requirements = append(ev.Requirements, req)
	}
	return ev, nil
}
