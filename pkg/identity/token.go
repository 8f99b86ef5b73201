// Package identity maps session tokens to decision principals. Token
// verification is fail-secure: anything wrong with a token produces a
// principal the gate engine will deny, never an error path the caller
// might translate into an implicit allow.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aegis-labs/aegis-core/pkg/access"
	"github.com/aegis-labs/aegis-core/pkg/classification"
)

// Claims is the session-token claim set. Subject carries the principal ID.
type Claims struct {
	jwt.RegisteredClaims

	Clearance     string   `json:"clearance,omitempty"`
	Compartments  []string `json:"compartments,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	AccountStatus string   `json:"account_status,omitempty"`
	MFAVerified   bool     `json:"mfa_verified,omitempty"`
	DeviceTrusted bool     `json:"device_trusted,omitempty"`
}

// untrustedPrincipal is what any unverifiable token resolves to: inactive
// session, no clearance, nothing held. Every gate denies it.
func untrustedPrincipal() access.Principal {
	return access.Principal{
		Clearance:     classification.Unclassified,
		AccountStatus: access.AccountSuspended,
		SessionStatus: access.SessionExpired,
	}
}

// PrincipalFromToken verifies an HS256 session token and builds the
// principal for the decision engine. An expired, malformed, or
// wrong-signature token yields the untrusted principal; an unknown
// clearance claim resolves to UNCLASSIFIED.
func PrincipalFromToken(tokenString string, key []byte) access.Principal {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return untrustedPrincipal()
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return untrustedPrincipal()
	}

	compartments := make([]classification.Compartment, len(claims.Compartments))
	for i, c := range claims.Compartments {
		compartments[i] = classification.Compartment(c)
	}

	status := access.AccountStatus(claims.AccountStatus)
	switch status {
	case access.AccountActive, access.AccountSuspended, access.AccountLocked, access.AccountRevoked:
	default:
		// Unknown standing is not active standing.
		status = access.AccountSuspended
	}

	return access.Principal{
		ID:            id,
		Clearance:     classification.LevelOrLeastPrivilege(claims.Clearance),
		Compartments:  compartments,
		Roles:         claims.Roles,
		AccountStatus: status,
		SessionStatus: access.SessionActive,
		MFAVerified:   claims.MFAVerified,
		DeviceTrusted: claims.DeviceTrusted,
	}
}

// IssueToken signs a session token for the principal, expiring after ttl.
func IssueToken(p access.Principal, key []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	compartments := make([]string, len(p.Compartments))
	for i, c := range p.Compartments {
		compartments[i] = string(c)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Clearance:     string(p.Clearance),
		Compartments:  compartments,
		Roles:         p.Roles,
		AccountStatus: string(p.AccountStatus),
		MFAVerified:   p.MFAVerified,
		DeviceTrusted: p.DeviceTrusted,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return signed, nil
}
