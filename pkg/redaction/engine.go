// Package redaction applies policy redaction rules to a response payload
// after an allow decision. It operates on decoded JSON (the tagged
// map/slice/scalar shape), never on concrete object graphs, and always
// returns a fresh payload: the input may be shared across concurrent
// requests with different principals.
package redaction

import (
	"errors"

	"github.com/aegis-labs/aegis-core/pkg/access"
	"github.com/aegis-labs/aegis-core/pkg/classification"
	"github.com/aegis-labs/aegis-core/pkg/policy"
)

// ErrDecisionNotAllowed reports a caller-contract violation: redaction is
// only defined after an allow decision.
var ErrDecisionNotAllowed = errors.New("redaction: decision did not allow access")

// Redact applies every applicable rule in policy order and returns a new
// payload; the input is never mutated. Rules are idempotent: redacting an
// already-redacted payload yields an identical result.
func Redact(payload map[string]any, decision access.Decision, pol *policy.Policy, held []classification.Compartment) (map[string]any, error) {
	if !decision.Allowed {
		return nil, ErrDecisionNotAllowed
	}

	out, ok := deepCopy(payload).(map[string]any)
	if !ok {
		out = map[string]any{}
	}
	if pol == nil {
		return out, nil
	}

	clearance := decision.SubjectClearance
	for _, rule := range pol.FieldRules() {
		if !rule.Applies(clearance, held) {
			continue
		}
		segments, err := policy.ParsePath(rule.FieldPath)
		if err != nil {
			// Paths are validated at policy construction; a failure here
			// means the rule bypassed the constructor.
			return nil, err
		}
		applyField(out, segments, rule.Strategy)
	}

	for _, rule := range pol.PortionRules() {
		if !rule.Applies(clearance, held) {
			continue
		}
		applyPortion(out, rule.PortionName, rule.Strategy)
	}

	return out, nil
}

// applyField walks one path segment at a time. A wildcard segment applies
// the remainder independently to every element of the sequence at that
// position, including zero or one elements. Missing keys and shape
// mismatches are no-ops: a rule that finds nothing redacts nothing.
func applyField(node any, segments []policy.Segment, strategy policy.Strategy) {
	if len(segments) == 0 {
		return
	}

	seg := segments[0]
	rest := segments[1:]

	m, ok := node.(map[string]any)
	if !ok {
		return
	}
	value, present := m[seg.Key]
	if !present {
		return
	}

	switch {
	case seg.Wildcard:
		list, ok := value.([]any)
		if !ok {
			return
		}
		if len(rest) == 0 {
			// Terminal wildcard: redact every element in place.
			for i := range list {
				list[i] = redactValue(list[i], strategy)
			}
			if strategy == policy.StrategyRemove {
				m[seg.Key] = []any{}
			}
			return
		}
		for _, elem := range list {
			applyField(elem, rest, strategy)
		}

	case seg.HasIndex:
		list, ok := value.([]any)
		if !ok || seg.Index >= len(list) {
			return
		}
		if len(rest) == 0 {
			list[seg.Index] = redactValue(list[seg.Index], strategy)
			return
		}
		applyField(list[seg.Index], rest, strategy)

	default:
		if len(rest) == 0 {
			if strategy == policy.StrategyRemove {
				delete(m, seg.Key)
				return
			}
			m[seg.Key] = redactValue(value, strategy)
			return
		}
		applyField(value, rest, strategy)
	}
}

// applyPortion redacts every map entry named portion, at any depth.
func applyPortion(node any, portion string, strategy policy.Strategy) {
	switch t := node.(type) {
	case map[string]any:
		if _, present := t[portion]; present {
			if strategy == policy.StrategyRemove {
				delete(t, portion)
			} else {
				t[portion] = redactValue(t[portion], strategy)
			}
		}
		for _, v := range t {
			applyPortion(v, portion, strategy)
		}
	case []any:
		for _, v := range t {
			applyPortion(v, portion, strategy)
		}
	}
}

// redactValue produces the replacement for a masked value. Remove at a
// non-deletable position (a sequence element) degrades to the sentinel so
// sequence shapes stay intact.
func redactValue(v any, strategy policy.Strategy) any {
	switch strategy {
	case policy.StrategyMaskAsterisks:
		return "****"
	case policy.StrategyTruncate:
		s, ok := v.(string)
		if !ok || s == policy.MaskSentinel {
			return policy.MaskSentinel
		}
		if len(s) > 6 {
			return s[:3] + "..." + s[len(s)-3:]
		}
		return policy.MaskSentinel
	default:
		return policy.MaskSentinel
	}
}

// deepCopy clones decoded JSON. Scalars are immutable and shared.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
