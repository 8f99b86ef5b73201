package access

import (
	"fmt"
	"log/slog"

	"github.com/aegis-labs/aegis-core/pkg/classification"
	"github.com/aegis-labs/aegis-core/pkg/policy"
)

// Engine evaluates access decisions. It holds no mutable decision state and
// performs no I/O; the only internal state is a compiled-predicate cache,
// so a single Engine is safe for unlimited parallel Decide calls.
type Engine struct {
	predicates *predicateEvaluator
	logger     *slog.Logger
}

// NewEngine creates a decision engine.
func NewEngine(logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	eval, err := newPredicateEvaluator()
	if err != nil {
		return nil, fmt.Errorf("access: predicate evaluator: %w", err)
	}
	return &Engine{predicates: eval, logger: logger}, nil
}

// Decide runs the five ordered gates, short-circuiting on the first
// failure. A denial carries that gate's reason and no obligations. An allow
// carries the obligations computed from the resource classification and the
// policy's redaction rules. pol may be nil when no redaction policy is
// configured.
func (e *Engine) Decide(p Principal, r Resource, pol *policy.Policy) Decision {
	// Gate 1: account standing.
	if p.AccountStatus != AccountActive {
		return deny(p, DenialAccountSuspended)
	}

	// Gate 2: session liveness.
	if p.SessionStatus != SessionActive {
		return deny(p, DenialSessionExpired)
	}

	// Gate 3: clearance rank.
	clearance := p.EffectiveClearance()
	if !clearance.Dominates(r.Marking.Level()) {
		return deny(p, DenialInsufficientClearance)
	}

	// Gate 4: compartment superset.
	if !classification.Superset(p.Compartments, r.Marking.Compartments()) {
		return deny(p, DenialMissingCompartments)
	}

	// Gate 5: need-to-know, only when the resource declares a predicate.
	// Any evaluation error denies: fail-secure over fail-open.
	if r.RequiredAttributes != nil {
		ok, err := e.predicates.satisfied(p, *r.RequiredAttributes)
		if err != nil {
			e.logger.Warn("need-to-know predicate error, denying",
				"resource_id", r.ID.String(),
				"error", err)
			return deny(p, DenialNeedToKnow)
		}
		if !ok {
			return deny(p, DenialNeedToKnow)
		}
	}

	return allow(p, e.computeObligations(p, r, pol))
}

// computeObligations runs only after every gate has passed.
func (e *Engine) computeObligations(p Principal, r Resource, pol *policy.Policy) []Obligation {
	var obligations []Obligation
	level := r.Marking.Level()

	if level.Rank() >= classification.Secret.Rank() && (!p.DeviceTrusted || !p.MFAVerified) {
		obligations = append(obligations, Obligation{
			Type:   ObligationRequireMFAStepUp,
			Params: map[string]string{"reason": "secret-or-above requires step-up authentication"},
		})
	}

	if level.Rank() >= classification.CUI.Rank() {
		obligations = append(obligations, Obligation{
			Type:   ObligationAuditAccess,
			Params: map[string]string{"classification": string(level)},
		})
	}

	// One obligation per matching redaction rule, in policy order. The
	// engine flags; the redaction engine applies.
	if pol != nil {
		clearance := p.EffectiveClearance()
		for _, rule := range pol.FieldRules() {
			if rule.Applies(clearance, p.Compartments) {
				obligations = append(obligations, Obligation{
					Type: ObligationMaskField,
					Params: map[string]string{
						"field_path": rule.FieldPath,
						"strategy":   string(rule.Strategy),
					},
				})
			}
		}
		for _, rule := range pol.PortionRules() {
			if rule.Applies(clearance, p.Compartments) {
				obligations = append(obligations, Obligation{
					Type: ObligationRedactPortion,
					Params: map[string]string{
						"portion_name": rule.PortionName,
						"strategy":     string(rule.Strategy),
					},
				})
			}
		}
	}

	return obligations
}
