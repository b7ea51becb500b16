package techsim

import (
	"fmt"
	"slices"
)

// TributeSet is an unordered set of tribute IDs.
type TributeSet map[TributeID]struct{}

func (s TributeSet) Has(id TributeID) bool {
	_, ok := s[id]
	return ok
}

func (s TributeSet) Add(id TributeID) { s[id] = struct{}{} }

func (s TributeSet) Remove(id TributeID) { delete(s, id) }

// Sorted returns the members in ID order.
func (s TributeSet) Sorted() []TributeID {
	out := make([]TributeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Relation is a relationship constraint keyword.
type Relation int

const (
	RelAny Relation = iota
	RelEnemies
	RelNotAllies
	RelNeutral
	RelNotEnemies
	RelAllies
)

var relationNames = map[string]Relation{
	"any":        RelAny,
	"enemies":    RelEnemies,
	"notallies":  RelNotAllies,
	"neutral":    RelNeutral,
	"notenemies": RelNotEnemies,
	"allies":     RelAllies,
}

// ParseRelation maps a document keyword to a Relation.
func ParseRelation(s string) (Relation, error) {
	r, ok := relationNames[s]
	if !ok {
		return RelAny, fmt.Errorf("unknown relationship %q", s)
	}
	return r, nil
}

func (r Relation) String() string {
	for name, v := range relationNames {
		if v == r {
			return name
		}
	}
	return "unknown"
}

// Relates reports whether other satisfies rel from t's point of view.
func (t *Tribute) Relates(other TributeID, rel Relation) bool {
	switch rel {
	case RelEnemies:
		return t.Enemies.Has(other)
	case RelNotAllies:
		return !t.Allies.Has(other)
	case RelNeutral:
		return !t.Allies.Has(other) && !t.Enemies.Has(other)
	case RelNotEnemies:
		return !t.Enemies.Has(other)
	case RelAllies:
		return t.Allies.Has(other)
	default:
		return true
	}
}

// RelationshipKind names which of a tribute's relationship sets a change targets.
type RelationshipKind int

const (
	Allies RelationshipKind = iota
	Enemies
)

// UpdateRelationship is the only mutation path for the relationship graph.
// Adding other to one set removes it from the opposite set; a tribute is
// never placed in its own sets.
func (t *Tribute) UpdateRelationship(kind RelationshipKind, other TributeID, add bool) {
	if other == t.ID {
		return
	}
	set, opposite := t.Allies, t.Enemies
	if kind == Enemies {
		set, opposite = t.Enemies, t.Allies
	}
	if !add {
		set.Remove(other)
		return
	}
	set.Add(other)
	opposite.Remove(other)
}

// filterRelated keeps the candidates that satisfy rel from t's point of view.
func filterRelated(t *Tribute, candidates []TributeID, rel Relation) []TributeID {
	if rel == RelAny {
		return slices.Clone(candidates)
	}
	out := make([]TributeID, 0, len(candidates))
	for _, id := range candidates {
		if t.Relates(id, rel) {
			out = append(out, id)
		}
	}
	return out
}
