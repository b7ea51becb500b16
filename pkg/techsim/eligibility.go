package techsim

// Exhausted reports whether the event has no uses left, for its lifetime or
// for the running cycle.
func (e *Event) Exhausted() bool {
	return e.MaxUse == 0 || e.CycleUse == 0
}

// HasRelations reports whether any position constrains relationships.
func (e *Event) HasRelations() bool {
	for _, r := range e.Requirements {
		if r.HasRelations() {
			return true
		}
	}
	return false
}

// Eligible checks the non-relationship requirements of position pos against
// t. Relationship requirements are handled by affiliation resolution.
func (s *Simulation) Eligible(e *Event, t *Tribute, pos int) bool {
	if e.Exhausted() {
		return false
	}
	if len(e.Requirements) == 0 {
		return t.Status == Alive
	}
	req := e.Requirements[pos]
	if t.Status != req.Status {
		return false
	}
	if req.Power != nil && !req.Power.Holds(t.Power) {
		return false
	}
	if req.ItemStatus != nil {
		charges, ok := t.Items[e.Item]
		if !ok || !req.ItemStatus.Holds(charges) {
			return false
		}
	}
	return true
}
