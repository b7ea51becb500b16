package techsim

// Snapshot is a read-only view of a simulation for status displays.
type Snapshot struct {
	Name      string           `json:"name"`
	Logo      string           `json:"logo,omitempty"`
	Seed      string           `json:"seed,omitempty"`
	Cycle     int              `json:"cycle"`
	Complete  bool             `json:"complete"`
	Alive     int              `json:"alive"`
	Dead      int              `json:"dead"`
	Districts []DistrictStatus `json:"districts"`
}

type DistrictStatus struct {
	Name    string          `json:"name"`
	Color   string          `json:"color,omitempty"`
	Members []TributeStatus `json:"members"`
}

type TributeStatus struct {
	Name           string       `json:"name"`
	Status         string       `json:"status"`
	Kills          int          `json:"kills"`
	EffectivePower int          `json:"effective_power"`
	Image          string       `json:"image,omitempty"`
	Items          []ItemStatus `json:"items,omitempty"`
}

type ItemStatus struct {
	Name    string `json:"name"`
	Charges int    `json:"charges"`
}

// TributeDetail adds the tribute's log and relationships to its status.
type TributeDetail struct {
	TributeStatus
	District string   `json:"district"`
	Power    int      `json:"power"`
	Allies   []string `json:"allies"`
	Enemies  []string `json:"enemies"`
	Log      []string `json:"log"`
}

// Status snapshots every district and its members.
func (s *Simulation) Status() Snapshot {
	snap := Snapshot{
		Name:     s.Name,
		Logo:     s.Logo,
		Seed:     s.Seed,
		Cycle:    s.Cycle,
		Complete: s.IsComplete(),
		Alive:    len(s.Alive),
		Dead:     len(s.Dead),
	}
	for _, d := range s.Districts {
		ds := DistrictStatus{Name: d.Name, Color: d.Color, Members: make([]TributeStatus, 0, len(d.Members))}
		for _, id := range d.Members {
			ds.Members = append(ds.Members, s.tributeStatus(s.Cast[id]))
		}
		snap.Districts = append(snap.Districts, ds)
	}
	return snap
}

// Detail describes a single tribute.
func (s *Simulation) Detail(id TributeID) TributeDetail {
	t := s.Cast[id]
	return TributeDetail{
		TributeStatus: s.tributeStatus(t),
		District:      s.DistrictName(id),
		Power:         t.Power,
		Allies:        s.names(t.Allies.Sorted()),
		Enemies:       s.names(t.Enemies.Sorted()),
		Log:           append([]string(nil), t.Log...),
	}
}

func (s *Simulation) tributeStatus(t *Tribute) TributeStatus {
	ts := TributeStatus{
		Name:           t.Name,
		Status:         t.Status.String(),
		Kills:          t.Kills,
		EffectivePower: s.EffectivePower(t.ID),
		Image:          t.Image,
	}
	if t.Status == Dead && t.DeadImage != "" {
		ts.Image = t.DeadImage
	}
	for _, item := range s.heldItems(t) {
		ts.Items = append(ts.Items, ItemStatus{Name: s.Items[item].Name, Charges: t.Items[item]})
	}
	return ts
}

func (s *Simulation) names(ids []TributeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = s.Cast[id].Name
	}
	return out
}
