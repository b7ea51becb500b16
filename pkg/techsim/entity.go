package techsim

import "github.com/rs/zerolog"

// BasePower is every tribute's starting power and the anchor that
// power-bounded changes clamp toward.
const BasePower = 500

// Cycle counter sentinels.
const (
	CycleUnready  = -2
	CycleComplete = -1
)

// TributeID indexes Simulation.Cast.
type TributeID int

// DistrictID indexes Simulation.Districts.
type DistrictID int

// ItemID indexes Simulation.Items.
type ItemID int

const (
	NoDistrict DistrictID = -1
	NoItem     ItemID     = -1
)

// Status is a tribute's life status.
type Status int

const (
	Alive Status = 0
	Dead  Status = 1
)

func (s Status) String() string {
	if s == Dead {
		return "dead"
	}
	return "alive"
}

// Gender selects a pronoun set.
type Gender int

const (
	Female Gender = iota
	Male
	Neuter
	Pair
	NonBinary
)

// ItemEventPolicy controls whether held items contribute their bonus events.
type ItemEventPolicy int

const (
	ItemEventsNone  ItemEventPolicy = iota // never
	ItemEventsCycle                        // only items findable in the running cycle type
	ItemEventsAll                          // always
)

func (p ItemEventPolicy) String() string {
	switch p {
	case ItemEventsCycle:
		return "cycle"
	case ItemEventsAll:
		return "all"
	default:
		return "none"
	}
}

// Simulation owns the whole entity graph of one run.
type Simulation struct {
	Name string
	Logo string
	Seed string

	// Cycle is CycleUnready, CycleComplete, or the index of the next round.
	Cycle int

	Cast      []*Tribute
	Districts []*District
	Cycles    []*Cycle
	Items     []*Item

	Alive       []TributeID
	Dead        []TributeID
	CycleDeaths []TributeID

	log zerolog.Logger
}

// District is a faction and the win-condition boundary.
type District struct {
	ID      DistrictID
	Name    string
	Color   string
	Members []TributeID
}

// Tribute is a single actor.
type Tribute struct {
	ID        TributeID
	Name      string
	Gender    Gender
	Image     string
	DeadImage string

	Status   Status
	Power    int
	District DistrictID
	Allies   TributeSet
	Enemies  TributeSet
	Items    map[ItemID]int // item -> remaining charges, -1 unlimited
	Kills    int
	Log      []string
}

// Cycle is a reusable round template.
type Cycle struct {
	Name            string
	Text            string
	AllowItemEvents ItemEventPolicy

	// Weight > 0 competes for day rounds, < 0 for night rounds. When Scripted
	// is set the cycle runs exactly at round ScriptedAt and Weight is unused.
	Weight     int
	Scripted   bool
	ScriptedAt int

	MaxUse int // -1 unlimited
	Events []*Event
}

// Event is one narrative rule set.
type Event struct {
	Text     *Template
	Cycle    string // owning cycle type; empty for item events
	Item     ItemID
	Weight   int
	MaxUse   int
	MaxCycle int
	CycleUse int

	Changes      [][]Change
	Requirements []Requirement
}

// Participants returns the number of tributes the event involves.
func (e *Event) Participants() int {
	return len(e.Changes)
}

// Item is a holdable object with a power bonus and its own events.
type Item struct {
	ID        ItemID
	Name      string
	BreakText *Template
	Power     int
	Cycles    []string // cycle type names the item can be found in
	UseCount  int      // -1 unlimited
	BaseEvent *Event
	Events    []*Event
}

// FoundIn reports whether the item can be found in the named cycle type.
func (it *Item) FoundIn(cycle string) bool {
	for _, c := range it.Cycles {
		if c == cycle {
			return true
		}
	}
	return false
}
