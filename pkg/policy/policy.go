package policy

import (
	"fmt"

	"github.com/aegis-labs/aegis-core/pkg/canonical"
)

// Policy is an immutable, content-addressed collection of redaction rules.
// A single instance is safe to share read-only across any number of
// concurrent decision and redaction evaluations.
type Policy struct {
	name         string
	description  string
	version      string
	fieldRules   []FieldRedactionRule
	portionRules []PortionRedactionRule
	hash         string
}

// New validates every rule atomically and returns an unmodifiable policy.
// Rule order is preserved: redaction applies rules in policy order.
func New(name, version string, fieldRules []FieldRedactionRule, portionRules []PortionRedactionRule) (*Policy, error) {
	if name == "" {
		return nil, fmt.Errorf("policy: name is required")
	}

	for _, r := range fieldRules {
		if err := r.validate(); err != nil {
			return nil, err
		}
	}
	for _, r := range portionRules {
		if err := r.validate(); err != nil {
			return nil, err
		}
	}

	fr := make([]FieldRedactionRule, len(fieldRules))
	copy(fr, fieldRules)
	pr := make([]PortionRedactionRule, len(portionRules))
	copy(pr, portionRules)

	hash, err := canonical.Hash(map[string]any{
		"name":          name,
		"version":       version,
		"field_rules":   fr,
		"portion_rules": pr,
	})
	if err != nil {
		return nil, fmt.Errorf("policy: content hash: %w", err)
	}

	return &Policy{
		name:         name,
		version:      version,
		fieldRules:   fr,
		portionRules: pr,
		hash:         hash,
	}, nil
}

// Name returns the policy name.
func (p *Policy) Name() string { return p.name }

// Version returns the bundle version.
func (p *Policy) Version() string { return p.version }

// Hash returns the content-addressed hash of the policy.
func (p *Policy) Hash() string { return p.hash }

// FieldRules returns the field rules in policy order. The returned slice is
// a copy; callers cannot mutate the policy through it.
func (p *Policy) FieldRules() []FieldRedactionRule {
	out := make([]FieldRedactionRule, len(p.fieldRules))
	copy(out, p.fieldRules)
	return out
}

// PortionRules returns the portion rules in policy order, copied.
func (p *Policy) PortionRules() []PortionRedactionRule {
	out := make([]PortionRedactionRule, len(p.portionRules))
	copy(out, p.portionRules)
	return out
}
