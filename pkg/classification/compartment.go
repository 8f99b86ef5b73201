package classification

import "sort"

// Compartment is an opaque access-restriction label requiring explicit
// grant, independent of classification rank. Compartments are compared by
// set membership, never by order.
type Compartment string

// Well-known compartment categories. Compartments are often program
// specific; this list stays minimal.
const (
	Noforn        Compartment = "NOFORN"
	Nocontract    Compartment = "NOCONTRACT"
	Humint        Compartment = "HUMINT"
	Sigint        Compartment = "SIGINT"
	Imint         Compartment = "IMINT"
	TalentKeyhole Compartment = "TK"
	Ruff          Compartment = "RUFF"
)

// Superset reports whether every compartment in need is present in have.
// An empty need is always covered.
func Superset(have, need []Compartment) bool {
	if len(need) == 0 {
		return true
	}
	held := make(map[Compartment]struct{}, len(have))
	for _, c := range have {
		held[c] = struct{}{}
	}
	for _, c := range need {
		if _, ok := held[c]; !ok {
			return false
		}
	}
	return true
}

// SortCompartments returns a sorted copy, the canonical wire order for
// compartment lists. The input is never mutated.
func SortCompartments(in []Compartment) []Compartment {
	out := make([]Compartment, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// dedupCompartments returns a sorted, duplicate-free copy. Every call
// allocates a fresh slice so instances never share backing storage.
func dedupCompartments(in []Compartment) []Compartment {
	seen := make(map[Compartment]struct{}, len(in))
	out := make([]Compartment, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// dedupStrings is dedupCompartments for portion-marking labels.
func dedupStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
