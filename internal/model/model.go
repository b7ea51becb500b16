package model

import (
	"encoding/json"
	"time"
)

// Run statuses.
const (
	RunCreated  = "created"  // documents loaded, not readied
	RunActive   = "active"   // readied, rounds being computed
	RunFinished = "finished" // a single district remains, or nobody does
	RunFailed   = "failed"   // a round hit a configuration defect
)

// Run is one simulation run and everything needed to replay it.
type Run struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CreatorID    string     `json:"creator_id"`
	Status       string     `json:"status"`
	Seed         string     `json:"seed,omitempty"`
	Shuffle      bool       `json:"shuffle"`
	Recolor      bool       `json:"recolor"`
	CastFormat   string     `json:"cast_format"`
	EventsFormat string     `json:"events_format"`
	CastDoc      string     `json:"-"`
	EventsDoc    string     `json:"-"`
	Cycle        int        `json:"cycle"`
	CyclesRun    int        `json:"cycles_run"`
	AutoInterval string     `json:"auto_interval,omitempty"`
	NextCycleAt  *time.Time `json:"next_cycle_at,omitempty"`
	Winner       string     `json:"winner,omitempty"`
	FailReason   string     `json:"fail_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ReadiedAt    *time.Time `json:"readied_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// CycleRecord is the stored narration of one computed round.
type CycleRecord struct {
	RunID     string          `json:"run_id"`
	Index     int             `json:"index"`
	CycleName string          `json:"cycle_name"`
	Narration json.RawMessage `json:"narration"`
	Deaths    int             `json:"deaths"`
	Complete  bool            `json:"complete"`
	CreatedAt time.Time       `json:"created_at"`
}

// Narration is the host-facing view of one round, with tributes by name.
type Narration struct {
	Index           int          `json:"index"`
	Cycle           string       `json:"cycle"`
	Text            string       `json:"text,omitempty"`
	Night           bool         `json:"night"`
	Events          []EventLine  `json:"events"`
	Idle            []string     `json:"idle,omitempty"`
	DeathReport     *DeathReport `json:"death_report,omitempty"`
	Complete        bool         `json:"complete"`
	Winners         []string     `json:"winners,omitempty"`
	WinningDistrict string       `json:"winning_district,omitempty"`
}

// EventLine is one resolved event.
type EventLine struct {
	Text         string   `json:"text"`
	Participants []string `json:"participants"`
	Deaths       []string `json:"deaths,omitempty"`
}

// DeathReport lists the fallen since the previous report.
type DeathReport struct {
	Day    int      `json:"day"`
	Text   string   `json:"text"`
	Fallen []string `json:"fallen"`
}
