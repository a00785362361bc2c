// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Identity Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Identity is an authenticated caller reference - the unit of ownership and
// authorization for every ledger entity. On-chain this would be an address;
// here it is an opaque, non-empty account handle.
type Identity string

// IsValid checks that the identity is non-empty and contains no whitespace.
func (i Identity) IsValid() bool {
	s := string(i)
	return len(s) > 0 && len(s) <= 128 && !strings.ContainsAny(s, " \t\n\r")
}

// IsZero checks if the identity is empty.
func (i Identity) IsZero() bool {
	return i == ""
}

// String returns the string representation.
func (i Identity) String() string {
	return string(i)
}

// NewIdentity creates a new Identity with validation.
func NewIdentity(s string) (Identity, error) {
	id := Identity(strings.TrimSpace(s))
	if !id.IsValid() {
		return "", NewDomainError("shared", "NewIdentity", ErrInvalidID, "invalid identity")
	}
	return id, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Entity ID Value Object
// ═══════════════════════════════════════════════════════════════════════════

// EntityID represents a unique entity identifier (UUID format).
type EntityID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the entity ID is a valid UUID.
func (e EntityID) IsValid() bool {
	return uuidRegex.MatchString(string(e))
}

// IsEmpty checks if the ID is empty.
func (e EntityID) IsEmpty() bool {
	return e == ""
}

// String returns the string representation.
func (e EntityID) String() string {
	return string(e)
}

// NewEntityID creates a new EntityID with validation.
func NewEntityID(id string) (EntityID, error) {
	eid := EntityID(strings.ToLower(strings.TrimSpace(id)))
	if !eid.IsValid() {
		return "", NewDomainError("shared", "NewEntityID", ErrInvalidID, "invalid entity ID format")
	}
	return eid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Clock
// ═══════════════════════════════════════════════════════════════════════════

// Clock supplies wall-clock timestamps for created_at/minted_at fields.
// The ledger never reads time.Now directly so tests can pin timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().UTC() })
}
