// Package access implements the fail-secure access-decision engine: five
// ordered gates with short-circuit denial, followed by obligation
// computation on allow. Decide is a pure function of its inputs; any number
// of evaluations may run concurrently against a shared read-only policy.
package access

import (
	"github.com/google/uuid"

	"github.com/aegis-labs/aegis-core/pkg/classification"
)

// AccountStatus is the directory standing of a principal's account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountLocked    AccountStatus = "locked"
	AccountRevoked   AccountStatus = "revoked"
)

// SessionStatus is the state of the principal's current session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionExpired SessionStatus = "expired"
)

// Principal is the immutable user context a decision is evaluated against.
// The zero value is maximally untrusted: no clearance, no compartments,
// inactive session.
type Principal struct {
	ID            uuid.UUID                    `json:"id"`
	Clearance     classification.Level         `json:"clearance"`
	Compartments  []classification.Compartment `json:"compartments,omitempty"`
	Roles         []string                     `json:"roles,omitempty"`
	Attributes    map[string]any               `json:"attributes,omitempty"`
	AccountStatus AccountStatus                `json:"account_status"`
	SessionStatus SessionStatus                `json:"session_status"`
	MFAVerified   bool                         `json:"mfa_verified"`
	DeviceTrusted bool                         `json:"device_trusted"`
}

// EffectiveClearance resolves a missing or corrupt clearance to
// Unclassified. Least privilege: an unknown clearance grants nothing.
func (p Principal) EffectiveClearance() classification.Level {
	return classification.LevelOrLeastPrivilege(string(p.Clearance))
}

// NeedToKnow is an attribute-based predicate a resource may declare beyond
// clearance and compartment checks. RequiredRoles is satisfied by any
// listed role; Expression is a CEL predicate over the bound "principal"
// map. When both are set, both must hold.
type NeedToKnow struct {
	RequiredRoles []string `json:"required_roles,omitempty"`
	Expression    string   `json:"expression,omitempty"`
}

// Resource is the object of a decision: its marking and an optional
// need-to-know predicate.
type Resource struct {
	ID                 uuid.UUID              `json:"id"`
	Marking            classification.Marking `json:"marking"`
	RequiredAttributes *NeedToKnow            `json:"required_attributes,omitempty"`
}
