package classification

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marking is the immutable classification marking of a resource: overall
// level, compartment set, and portion markings. Construct via NewMarking or
// JSON decoding; fields are unexported so a marking cannot be altered after
// construction.
type Marking struct {
	level        Level
	compartments []Compartment
	portions     []string
}

// markingWire is the JSON shape of a Marking.
type markingWire struct {
	Classification  string   `json:"classification"`
	Compartments    []string `json:"compartments"`
	PortionMarkings []string `json:"portion_markings"`
}

// NewMarking builds a marking. An invalid level resolves to TS//SCI: data
// whose sensitivity cannot be established is treated as maximally
// sensitive, never as unclassified.
func NewMarking(level Level, compartments []Compartment, portionMarkings []string) Marking {
	if !level.Valid() {
		level = TSSCI
	}
	return Marking{
		level:        level,
		compartments: dedupCompartments(compartments),
		portions:     dedupStrings(portionMarkings),
	}
}

// MostRestrictiveMarking is the fallback for missing markings.
func MostRestrictiveMarking() Marking {
	return NewMarking(TSSCI, nil, nil)
}

// Level returns the overall classification level.
func (m Marking) Level() Level {
	if !m.level.Valid() {
		// Zero-value Marking: treat as most restrictive.
		return TSSCI
	}
	return m.level
}

// Compartments returns a copy of the compartment set in canonical order.
func (m Marking) Compartments() []Compartment {
	out := make([]Compartment, len(m.compartments))
	copy(out, m.compartments)
	return out
}

// PortionMarkings returns a copy of the portion-marking set in canonical order.
func (m Marking) PortionMarkings() []string {
	out := make([]string, len(m.portions))
	copy(out, m.portions)
	return out
}

// AccessibleBy reports whether a subject with the given clearance and held
// compartments satisfies both the rank and the compartment-superset checks.
func (m Marking) AccessibleBy(clearance Level, held []Compartment) bool {
	if !clearance.Dominates(m.Level()) {
		return false
	}
	return Superset(held, m.compartments)
}

// MarshalJSON emits the canonical wire form with sorted sets.
func (m Marking) MarshalJSON() ([]byte, error) {
	comps := make([]string, len(m.compartments))
	for i, c := range m.compartments {
		comps[i] = string(c)
	}
	portions := m.portions
	if portions == nil {
		portions = []string{}
	}
	return json.Marshal(markingWire{
		Classification:  string(m.Level()),
		Compartments:    comps,
		PortionMarkings: portions,
	})
}

// UnmarshalJSON decodes a marking. A missing or unparseable level resolves
// to TS//SCI; unknown fields are rejected.
func (m *Marking) UnmarshalJSON(data []byte) error {
	var wire markingWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return fmt.Errorf("classification: decode marking: %w", err)
	}

	comps := make([]Compartment, len(wire.Compartments))
	for i, c := range wire.Compartments {
		comps[i] = Compartment(c)
	}
	*m = NewMarking(LevelOrMostRestrictive(wire.Classification), comps, wire.PortionMarkings)
	return nil
}
