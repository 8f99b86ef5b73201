// Package auditchain records access decisions as hash-chained event
// envelopes. Each envelope's self hash covers its full content including
// the previous envelope's hash, so mutating any past envelope without
// recomputing every subsequent hash is detectable by replaying the chain
// from genesis. Which decisions get chained is the caller's policy; the
// chain itself is decision-agnostic.
package auditchain

import (
	"time"

	"github.com/google/uuid"

	"github.com/aegis-labs/aegis-core/pkg/access"
	"github.com/aegis-labs/aegis-core/pkg/canonical"
	"github.com/aegis-labs/aegis-core/pkg/classification"
)

// SchemaVersion is stamped into every envelope so stored chains can be
// migrated if the envelope shape ever changes.
const SchemaVersion = "1.0.0"

// Record is the caller-supplied content of one chain entry.
type Record struct {
	EventType      string               `json:"event_type"`
	Producer       string               `json:"producer"`
	PrincipalID    uuid.UUID            `json:"principal_id"`
	ResourceID     uuid.UUID            `json:"resource_id"`
	Classification classification.Level `json:"classification"`
	Decision       access.Decision      `json:"decision"`
}

// Envelope is one tamper-evident chain entry. SelfHash is the canonical
// hash of the envelope with SelfHash itself empty; HashChainPrev is the
// preceding envelope's SelfHash, or Genesis for the first entry.
type Envelope struct {
	EventID        uuid.UUID            `json:"event_id"`
	EventType      string               `json:"event_type"`
	OccurredAt     time.Time            `json:"occurred_at"`
	Producer       string               `json:"producer"`
	SchemaVersion  string               `json:"schema_version"`
	PrincipalID    uuid.UUID            `json:"principal_id"`
	ResourceID     uuid.UUID            `json:"resource_id"`
	Classification classification.Level `json:"classification"`
	Decision       access.Decision      `json:"decision"`
	HashChainPrev  string               `json:"hash_chain_prev"`
	SelfHash       string               `json:"self_hash,omitempty"`
}

// ComputeHash returns the canonical hash of the envelope with the SelfHash
// field zeroed. It never mutates the receiver.
func (e Envelope) ComputeHash() (string, error) {
	e.SelfHash = ""
	return canonical.Hash(e)
}
