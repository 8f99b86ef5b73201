// Package aggregate computes the classification summary of a set of
// visible entities: the highest level, the union of portion markings, and
// the union of compartments. The summary backs response banners and may be
// HMAC-signed as defense in depth; the signature never replaces re-running
// the access decision.
package aggregate

import (
	"crypto/hmac"
	"log/slog"
	"sort"
	"time"

	"github.com/aegis-labs/aegis-core/pkg/canonical"
	"github.com/aegis-labs/aegis-core/pkg/classification"
)

// SignatureAlgorithm identifies the only signing scheme in use.
const SignatureAlgorithm = "hmac-sha256"

// HasMarking is satisfied by any entity carrying a classification marking.
type HasMarking interface {
	Marking() classification.Marking
}

// Result is the aggregation over a set of entities. Signature is nil when
// no signing key was supplied or signing failed; an empty string is never
// emitted, so absence is distinguishable from an invalid value.
type Result struct {
	HighestClassification classification.Level         `json:"highest_classification"`
	AllPortionMarkings    []string                     `json:"all_portion_markings"`
	AllCompartments       []classification.Compartment `json:"all_compartments"`
	EntityCount           int                          `json:"entity_count"`
	ComputedAt            time.Time                    `json:"computed_at"`
	Signature             *string                      `json:"signature"`
	SignatureAlgorithm    string                       `json:"signature_algorithm,omitempty"`
}

// signedFields is the exact byte surface the signature covers. Counts and
// timestamps stay outside it so re-aggregating the same entities later
// verifies against the same signature.
type signedFields struct {
	HighestClassification classification.Level         `json:"highest_classification"`
	AllPortionMarkings    []string                     `json:"all_portion_markings"`
	AllCompartments       []classification.Compartment `json:"all_compartments"`
}

// Aggregator computes signed classification summaries.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator. logger may be nil.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// Aggregate reduces the entity markings with max and set union, so the
// result is independent of input order. An empty input yields UNCLASSIFIED
// with empty sets. signingKey may be nil for an unsigned result; a signing
// failure is logged and leaves Signature nil rather than failing the
// aggregation.
func (a *Aggregator) Aggregate(entities []HasMarking, signingKey []byte) Result {
	highest := classification.Unclassified
	portionSet := map[string]struct{}{}
	compartmentSet := map[classification.Compartment]struct{}{}

	for _, e := range entities {
		m := e.Marking()
		highest = classification.Max(highest, m.Level())
		for _, p := range m.PortionMarkings() {
			portionSet[p] = struct{}{}
		}
		for _, c := range m.Compartments() {
			compartmentSet[c] = struct{}{}
		}
	}

	portions := make([]string, 0, len(portionSet))
	for p := range portionSet {
		portions = append(portions, p)
	}
	sort.Strings(portions)

	compartments := make([]classification.Compartment, 0, len(compartmentSet))
	for c := range compartmentSet {
		compartments = append(compartments, c)
	}
	compartments = classification.SortCompartments(compartments)

	result := Result{
		HighestClassification: highest,
		AllPortionMarkings:    portions,
		AllCompartments:       compartments,
		EntityCount:           len(entities),
		ComputedAt:            canonical.UTCNow(),
	}

	if len(signingKey) > 0 {
		sig, err := canonical.HMAC(signingKey, signedFields{
			HighestClassification: result.HighestClassification,
			AllPortionMarkings:    result.AllPortionMarkings,
			AllCompartments:       result.AllCompartments,
		})
		if err != nil {
			a.logger.Warn("aggregation signing failed, returning unsigned result",
				"error", err)
		} else {
			result.Signature = &sig
			result.SignatureAlgorithm = SignatureAlgorithm
		}
	}

	return result
}

// Verify recomputes the signature over the result's data fields and compares
// it in constant time. Unsigned results never verify.
func Verify(result Result, key []byte) bool {
	if result.Signature == nil || *result.Signature == "" {
		return false
	}
	want, err := canonical.HMAC(key, signedFields{
		HighestClassification: result.HighestClassification,
		AllPortionMarkings:    result.AllPortionMarkings,
		AllCompartments:       result.AllCompartments,
	})
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(want), []byte(*result.Signature))
}
