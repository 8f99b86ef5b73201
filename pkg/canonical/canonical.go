// Package canonical provides RFC 8785 (JSON Canonicalization Scheme) compliant
// serialization and SHA-256 hashing for Aegis entities.
//
// Two digests exist for every entity:
//   - Fingerprint: content identity, volatile fields (timestamps) excluded
//   - Hash: exact state, full field set, used for audit chaining
package canonical

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/gowebpki/jcs"
)

// HashPrefix is prepended to every hex digest so stored hashes are
// self-describing.
const HashPrefix = "sha256:"

// volatileFields are excluded from every fingerprint regardless of caller
// supplied exclusions.
var volatileFields = []string{"created_at", "updated_at"}

// Marshal returns the RFC 8785 canonical JSON form of v: keys sorted
// lexicographically by UTF-8 bytes, no insignificant whitespace, no HTML
// escaping. Values that have no canonical JSON form (NaN, Inf, channels,
// functions) fail loudly; a placeholder is never substituted.
func Marshal(v any) ([]byte, error) {
	if err := checkCanonicalizable(reflect.ValueOf(v)); err != nil {
		return nil, err
	}

	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: pre-marshal failed: %w", err)
	}

	out, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("canonical: jcs transform failed: %w", err)
	}
	return out, nil
}

// MarshalString returns the canonical form as a string.
func MarshalString(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Hash returns the SHA-256 digest of the canonical form of v, formatted as
// "sha256:" followed by 64 lowercase hex characters.
func Hash(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// Fingerprint hashes v with the named top-level fields removed, in addition
// to the always-excluded volatile fields. Two entities that differ only in
// excluded fields produce identical fingerprints.
func Fingerprint(v any, exclude ...string) (string, error) {
	if err := checkCanonicalizable(reflect.ValueOf(v)); err != nil {
		return "", err
	}

	intermediate, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonical: pre-marshal failed: %w", err)
	}

	var generic map[string]any
	dec := json.NewDecoder(bytes.NewReader(intermediate))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("canonical: fingerprint requires an object form: %w", err)
	}

	for _, f := range volatileFields {
		delete(generic, f)
	}
	for _, f := range exclude {
		delete(generic, f)
	}

	return Hash(generic)
}

// HMAC computes the HMAC-SHA-256 of the canonical form of v under key,
// returned as a lowercase hex string (no prefix; signatures and content
// hashes are distinct namespaces).
func HMAC(key []byte, v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(b)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// UTCNow returns the current time normalized to UTC so that timestamps
// serialize with a literal trailing "Z".
func UTCNow() time.Time {
	return time.Now().UTC()
}

// checkCanonicalizable rejects values containing NaN or Infinity before
// marshaling. encoding/json reports these too, but with a message that does
// not identify the canonicalization contract.
func checkCanonicalizable(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("canonical: value contains NaN or Infinity")
		}
	case reflect.Map:
		for _, key := range v.MapKeys() {
			if err := checkCanonicalizable(v.MapIndex(key)); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := checkCanonicalizable(v.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err := checkCanonicalizable(v.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			return checkCanonicalizable(v.Elem())
		}
	}
	return nil
}
