// Package policy defines the fixed redaction-rule vocabulary and the
// immutable ClassificationPolicy shared read-only across concurrent
// evaluations. This is deliberately not a general rules engine: the rule
// types are a closed set.
package policy

import (
	"fmt"

	"github.com/aegis-labs/aegis-core/pkg/classification"
)

// Strategy determines what an applied redaction rule does to a value.
type Strategy string

const (
	StrategyRemove        Strategy = "remove"
	StrategyMask          Strategy = "mask"
	StrategyMaskAsterisks Strategy = "mask_asterisks"
	StrategyTruncate      Strategy = "truncate"
)

// MaskSentinel replaces masked values. Fixed so redaction is idempotent and
// downstream consumers can detect masked fields.
const MaskSentinel = "[REDACTED]"

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRemove, StrategyMask, StrategyMaskAsterisks, StrategyTruncate:
		return true
	}
	return false
}

// FieldRedactionRule redacts a single field addressed by a dot/bracket
// path. The rule applies to a subject that lacks the required clearance or
// does not hold the full bypass-compartment set.
type FieldRedactionRule struct {
	FieldPath          string                       `json:"field_path" yaml:"field_path"`
	Strategy           Strategy                     `json:"strategy" yaml:"strategy"`
	RequiredClearance  *classification.Level        `json:"required_clearance,omitempty" yaml:"required_clearance,omitempty"`
	BypassCompartments []classification.Compartment `json:"bypass_compartments,omitempty" yaml:"bypass_compartments,omitempty"`
	Description        string                       `json:"description,omitempty" yaml:"description,omitempty"`
}

// Applies reports whether this rule must be applied for a subject with the
// given clearance and held compartments.
func (r FieldRedactionRule) Applies(clearance classification.Level, held []classification.Compartment) bool {
	if r.RequiredClearance != nil && !clearance.Dominates(*r.RequiredClearance) {
		return true
	}
	if len(r.BypassCompartments) > 0 && !classification.Superset(held, r.BypassCompartments) {
		return true
	}
	return false
}

func (r FieldRedactionRule) validate() error {
	if _, err := ParsePath(r.FieldPath); err != nil {
		return err
	}
	if !r.Strategy.Valid() {
		return fmt.Errorf("policy: field rule %q has unknown strategy %q", r.FieldPath, r.Strategy)
	}
	if r.RequiredClearance != nil && !r.RequiredClearance.Valid() {
		return fmt.Errorf("policy: field rule %q has invalid clearance %q", r.FieldPath, *r.RequiredClearance)
	}
	return nil
}

// PortionRedactionRule redacts a named logical section wherever it appears
// in a payload, independent of field path.
type PortionRedactionRule struct {
	PortionName        string                       `json:"portion_name" yaml:"portion_name"`
	PortionMarking     string                       `json:"portion_marking,omitempty" yaml:"portion_marking,omitempty"`
	MinimumClearance   classification.Level         `json:"minimum_clearance" yaml:"minimum_clearance"`
	BypassCompartments []classification.Compartment `json:"bypass_compartments,omitempty" yaml:"bypass_compartments,omitempty"`
	Strategy           Strategy                     `json:"strategy" yaml:"strategy"`
	Description        string                       `json:"description,omitempty" yaml:"description,omitempty"`
}

// Applies reports whether this portion rule must be applied for a subject.
func (r PortionRedactionRule) Applies(clearance classification.Level, held []classification.Compartment) bool {
	if !clearance.Dominates(r.MinimumClearance) {
		return true
	}
	if len(r.BypassCompartments) > 0 && !classification.Superset(held, r.BypassCompartments) {
		return true
	}
	return false
}

func (r PortionRedactionRule) validate() error {
	if r.PortionName == "" {
		return fmt.Errorf("policy: portion rule with empty name")
	}
	if !r.MinimumClearance.Valid() {
		return fmt.Errorf("policy: portion rule %q has invalid clearance %q", r.PortionName, r.MinimumClearance)
	}
	if !r.Strategy.Valid() {
		return fmt.Errorf("policy: portion rule %q has unknown strategy %q", r.PortionName, r.Strategy)
	}
	return nil
}
