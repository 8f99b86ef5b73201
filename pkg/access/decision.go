package access

import (
	"time"

	"github.com/google/uuid"

	"github.com/aegis-labs/aegis-core/pkg/classification"
)

// DenialReason enumerates the single reason attached to a denial, one per
// gate. The reason names the category of failure only; it never carries the
// resource's classification or compartment values, which a denied principal
// is not cleared to see.
type DenialReason string

const (
	DenialAccountSuspended      DenialReason = "account_suspended"
	DenialSessionExpired        DenialReason = "session_expired"
	DenialInsufficientClearance DenialReason = "insufficient_clearance"
	DenialMissingCompartments   DenialReason = "missing_compartments"
	DenialNeedToKnow            DenialReason = "need_to_know_denied"
)

// denialDetails are the fixed, non-leaking human-readable forms.
var denialDetails = map[DenialReason]string{
	DenialAccountSuspended:      "account is not active",
	DenialSessionExpired:        "session is not active",
	DenialInsufficientClearance: "insufficient clearance",
	DenialMissingCompartments:   "required compartments not held",
	DenialNeedToKnow:            "need-to-know denied",
}

// ObligationType enumerates the fixed obligation vocabulary.
type ObligationType string

const (
	ObligationRequireMFAStepUp ObligationType = "require_mfa_step_up"
	ObligationAuditAccess      ObligationType = "audit_access"
	ObligationMaskField        ObligationType = "mask_field"
	ObligationRedactPortion    ObligationType = "redact_portion"
)

// Obligation is a required follow-up action attached to an allow decision.
type Obligation struct {
	Type   ObligationType    `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Decision is the immutable outcome of one Decide call.
type Decision struct {
	DecisionID   uuid.UUID    `json:"decision_id"`
	Allowed      bool         `json:"allowed"`
	DenialReason DenialReason `json:"denial_reason,omitempty"`
	Detail       string       `json:"detail,omitempty"`
	Obligations  []Obligation `json:"obligations"`

	// Subject context carried for the redaction engine, which applies rules
	// against the deciding principal's clearance.
	SubjectClearance classification.Level `json:"subject_clearance"`

	DecidedAt time.Time `json:"decided_at"`
	DecidedBy string    `json:"decided_by"`
}

const decidedBy = "access-control-engine"

func deny(p Principal, reason DenialReason) Decision {
	return Decision{
		DecisionID:       uuid.New(),
		Allowed:          false,
		DenialReason:     reason,
		Detail:           denialDetails[reason],
		Obligations:      []Obligation{},
		SubjectClearance: p.EffectiveClearance(),
		DecidedAt:        time.Now().UTC(),
		DecidedBy:        decidedBy,
	}
}

func allow(p Principal, obligations []Obligation) Decision {
	if obligations == nil {
		obligations = []Obligation{}
	}
	return Decision{
		DecisionID:       uuid.New(),
		Allowed:          true,
		Obligations:      obligations,
		SubjectClearance: p.EffectiveClearance(),
		DecidedAt:        time.Now().UTC(),
		DecidedBy:        decidedBy,
	}
}
