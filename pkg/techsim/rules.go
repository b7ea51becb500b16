package techsim

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// ChangeKind enumerates the state changes an event can apply to a participant.
type ChangeKind int

const (
	ChangePower        ChangeKind = iota // additive
	ChangePowerBounded                   // additive, clamped toward BasePower
	ChangeStatus                         // set alive/dead
	ChangeItemUse                        // spend charges of the event item
	ChangeItemLoss                       // drop the event item (0) or n random items
	ChangeItemGain                       // gain the event item (0) or n items from the loss pool
	ChangeKills                          // additive
	ChangeAllies                         // add/remove allies among participants
	ChangeEnemies                        // add/remove enemies among participants
)

var changeKeys = map[string]ChangeKind{
	"power":   ChangePower,
	"powern":  ChangePowerBounded,
	"status":  ChangeStatus,
	"itemu":   ChangeItemUse,
	"iteml":   ChangeItemLoss,
	"itemg":   ChangeItemGain,
	"kills":   ChangeKills,
	"allies":  ChangeAllies,
	"enemies": ChangeEnemies,
}

func (k ChangeKind) String() string {
	for key, v := range changeKeys {
		if v == k {
			return key
		}
	}
	return "unknown"
}

// RelationLink adds (Add) or removes another participant, by position, from a
// relationship set.
type RelationLink struct {
	Position int
	Add      bool
}

// Change is one decoded entry of an event's tribute_changes.
type Change struct {
	Kind   ChangeKind
	Amount int
	Links  []RelationLink
}

// CompareOp is the operator of a power or item-charge requirement.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpLess
	OpGreater
)

// Comparison is an (operator, value) requirement.
type Comparison struct {
	Op    CompareOp
	Value int
}

// Holds reports whether v satisfies the comparison.
func (c Comparison) Holds(v int) bool {
	switch c.Op {
	case OpLess:
		return v < c.Value
	case OpGreater:
		return v > c.Value
	default:
		return v == c.Value
	}
}

// Requirement is one decoded entry of an event's tribute_requirements.
type Requirement struct {
	Status     Status
	Power      *Comparison
	ItemStatus *Comparison
	// Relations maps a participant position to the relationship the
	// requirement's own participant must hold toward it.
	Relations map[int]Relation
}

// HasRelations reports whether the requirement constrains relationships.
func (r Requirement) HasRelations() bool {
	return len(r.Relations) > 0
}

// RuleSpec is the raw keyed form of one position's changes or requirements.
type RuleSpec map[string]json.RawMessage

func decodeChanges(path string, spec RuleSpec, self, positions int, hasItem bool) ([]Change, error) {
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	changes := make([]Change, 0, len(spec))
	for _, key := range keys {
		raw := spec[key]
		kind, ok := changeKeys[key]
		if !ok {
			return nil, configErrorf(path, "unknown change %q", key)
		}
		keyPath := path + "." + key
		c := Change{Kind: kind}
		switch kind {
		case ChangeAllies, ChangeEnemies:
			links, err := decodeLinks(keyPath, raw, self, positions)
			if err != nil {
				return nil, err
			}
			c.Links = links
		default:
			if err := json.Unmarshal(raw, &c.Amount); err != nil {
				return nil, configErrorf(keyPath, "expected an integer")
			}
		}
		switch kind {
		case ChangeStatus:
			if c.Amount != int(Alive) && c.Amount != int(Dead) {
				return nil, configErrorf(keyPath, "status must be 0 or 1")
			}
		case ChangeItemUse:
			if c.Amount <= 0 {
				return nil, configErrorf(keyPath, "item use must be positive")
			}
			if !hasItem {
				return nil, configErrorf(keyPath, "event is not attached to an item")
			}
		case ChangeItemLoss, ChangeItemGain:
			if c.Amount < 0 {
				return nil, configErrorf(keyPath, "item count must not be negative")
			}
			if c.Amount == 0 && !hasItem {
				return nil, configErrorf(keyPath, "event is not attached to an item")
			}
		}
		changes = append(changes, c)
	}
	// Canonical order keeps the random stream independent of document key order.
	slices.SortStableFunc(changes, func(a, b Change) int { return int(a.Kind) - int(b.Kind) })
	return changes, nil
}

func decodeLinks(path string, raw json.RawMessage, self, positions int) ([]RelationLink, error) {
	var pairs [][]int
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, configErrorf(path, "expected a list of [position, change] pairs")
	}
	links := make([]RelationLink, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return nil, configErrorf(fmt.Sprintf("%s[%d]", path, i), "expected [position, change]")
		}
		pos, flag := p[0], p[1]
		if pos < 1 || pos > positions {
			return nil, configErrorf(fmt.Sprintf("%s[%d]", path, i), "position %d outside 1..%d", pos, positions)
		}
		if pos-1 == self {
			return nil, configErrorf(fmt.Sprintf("%s[%d]", path, i), "a tribute cannot relate to itself")
		}
		if flag != 0 && flag != 1 {
			return nil, configErrorf(fmt.Sprintf("%s[%d]", path, i), "change must be 0 or 1")
		}
		links = append(links, RelationLink{Position: pos - 1, Add: flag == 1})
	}
	return links, nil
}

func decodeRequirement(path string, spec RuleSpec, self, positions int, hasItem bool) (Requirement, error) {
	var req Requirement
	for key, raw := range spec {
		keyPath := path + "." + key
		switch key {
		case "status":
			var s int
			if err := json.Unmarshal(raw, &s); err != nil || (s != int(Alive) && s != int(Dead)) {
				return req, configErrorf(keyPath, "status must be 0 or 1")
			}
			if s == int(Dead) && self == 0 {
				return req, configErrorf(keyPath, "the first tribute cannot be required dead")
			}
			req.Status = Status(s)
		case "power":
			c, err := decodeComparison(keyPath, raw)
			if err != nil {
				return req, err
			}
			req.Power = &c
		case "item_status":
			if !hasItem {
				return req, configErrorf(keyPath, "event is not attached to an item")
			}
			c, err := decodeComparison(keyPath, raw)
			if err != nil {
				return req, err
			}
			req.ItemStatus = &c
		case "relationship":
			var rels map[string]string
			if err := json.Unmarshal(raw, &rels); err != nil {
				return req, configErrorf(keyPath, "expected a table of position = relationship")
			}
			req.Relations = make(map[int]Relation, len(rels))
			for k, v := range rels {
				pos, err := strconv.Atoi(k)
				if err != nil || pos < 1 || pos > positions {
					return req, configErrorf(keyPath, "position %q outside 1..%d", k, positions)
				}
				if pos-1 == self {
					return req, configErrorf(keyPath, "a tribute cannot relate to itself")
				}
				rel, err := ParseRelation(v)
				if err != nil {
					return req, configErrorf(keyPath+"."+k, "%v", err)
				}
				if rel != RelAny {
					req.Relations[pos-1] = rel
				}
			}
		default:
			return req, configErrorf(path, "unknown requirement %q", key)
		}
	}
	return req, nil
}

func decodeComparison(path string, raw json.RawMessage) (Comparison, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
		return Comparison{}, configErrorf(path, "expected [operation, value]")
	}
	var op string
	if err := json.Unmarshal(parts[0], &op); err != nil {
		return Comparison{}, configErrorf(path, "operation must be one of = < >")
	}
	var c Comparison
	switch op {
	case "=":
		c.Op = OpEqual
	case "<":
		c.Op = OpLess
	case ">":
		c.Op = OpGreater
	default:
		return Comparison{}, configErrorf(path, "operation must be one of = < >")
	}
	if err := json.Unmarshal(parts[1], &c.Value); err != nil {
		return Comparison{}, configErrorf(path, "value must be an integer")
	}
	return c, nil
}
