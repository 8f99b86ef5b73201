package auditchain

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Genesis is the HashChainPrev of the first envelope in every chain.
const Genesis = "genesis"

// Clock supplies envelope timestamps. Tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Chain is an append-only, in-order sequence of envelopes. Appends are
// serialized under a single mutex: each entry's hash depends on the
// previous entry's hash, so unsynchronized concurrent appends would
// produce divergent chains.
type Chain struct {
	mu        sync.Mutex
	envelopes []Envelope
	clock     Clock
	logger    *slog.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock substitutes the timestamp source.
func WithClock(c Clock) Option {
	return func(ch *Chain) {
		if c != nil {
			ch.clock = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(ch *Chain) {
		if l != nil {
			ch.logger = l
		}
	}
}

// NewChain creates an empty chain.
func NewChain(opts ...Option) *Chain {
	ch := &Chain{
		envelopes: make([]Envelope, 0),
		clock:     wallClock{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Append seals a record into a new envelope linked to the current head and
// returns the appended envelope. The chain is unchanged on error.
func (c *Chain) Append(rec Record) (Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := Genesis
	if n := len(c.envelopes); n > 0 {
		prev = c.envelopes[n-1].SelfHash
	}

	env := Envelope{
		EventID:        uuid.New(),
		EventType:      rec.EventType,
		OccurredAt:     c.clock.Now().UTC(),
		Producer:       rec.Producer,
		SchemaVersion:  SchemaVersion,
		PrincipalID:    rec.PrincipalID,
		ResourceID:     rec.ResourceID,
		Classification: rec.Classification,
		Decision:       rec.Decision,
		HashChainPrev:  prev,
	}

	hash, err := env.ComputeHash()
	if err != nil {
		c.logger.Error("envelope hash failed, record not chained",
			"event_type", rec.EventType,
			"error", err)
		return Envelope{}, fmt.Errorf("auditchain: compute envelope hash: %w", err)
	}
	env.SelfHash = hash

	c.envelopes = append(c.envelopes, env)
	return env, nil
}

// Head returns the most recent envelope, or false for an empty chain.
func (c *Chain) Head() (Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.envelopes) == 0 {
		return Envelope{}, false
	}
	return c.envelopes[len(c.envelopes)-1], true
}

// Length returns the number of chained envelopes.
func (c *Chain) Length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.envelopes)
}

// Get returns the envelope at index i.
func (c *Chain) Get(i int) (Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.envelopes) {
		return Envelope{}, false
	}
	return c.envelopes[i], true
}

// Envelopes returns a copy of the full chain in append order.
func (c *Chain) Envelopes() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Envelope, len(c.envelopes))
	copy(out, c.envelopes)
	return out
}

// Verify replays the chain from genesis. It returns false with the index
// and nature of the first break: a prev-link that does not match the
// preceding envelope's stored hash, or a stored hash that no longer
// matches the envelope's content.
func (c *Chain) Verify() (bool, string) {
	return VerifyEnvelopes(c.Envelopes())
}

// VerifyEnvelopes checks an envelope sequence loaded from any store.
func VerifyEnvelopes(envelopes []Envelope) (bool, string) {
	prev := Genesis
	for i, env := range envelopes {
		if env.HashChainPrev != prev {
			return false, fmt.Sprintf("chain broken at index %d: prev-link mismatch", i)
		}
		computed, err := env.ComputeHash()
		if err != nil {
			return false, fmt.Sprintf("hash recompute failed at index %d: %v", i, err)
		}
		if computed != env.SelfHash {
			return false, fmt.Sprintf("content tampered at index %d: stored hash does not match content", i)
		}
		prev = env.SelfHash
	}
	return true, ""
}
