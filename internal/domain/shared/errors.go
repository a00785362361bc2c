// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every DomainError carries one of these as its Kind, so
// callers branch with errors.Is instead of matching concrete errors.
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError is a sentinel plus the domain and operation it occurred in.
type DomainError struct {
	Domain  string // "profile", "request", "match", ...
	Op      string // failing operation, "CreateOffer", "ClaimReward", ...
	Kind    error  // sentinel matched by errors.Is
	Message string // human-readable message
	Err     error  // underlying cause, optional
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap exposes the cause when there is one, the Kind otherwise.
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against both the Kind and the cause chain.
func (e *DomainError) Is(target error) bool {
	return (e.Kind != nil && errors.Is(e.Kind, target)) ||
		(e.Err != nil && errors.Is(e.Err, target))
}

// NewDomainError builds a DomainError without an underlying cause.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError builds a DomainError around an underlying cause.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Profile domain errors
var (
	ErrProfileNotFound      = NewDomainError("profile", "Find", ErrNotFound, "profile not found")
	ErrProfileAlreadyExists = NewDomainError("profile", "Create", ErrAlreadyExists, "profile already exists for this identity")
	ErrProfileRequired      = NewDomainError("profile", "Check", ErrNotFound, "a profile is required before this operation")
)

// Request lifecycle errors
var (
	ErrRequestNotFound   = NewDomainError("request", "Find", ErrNotFound, "help request not found")
	ErrRequestNotOpen    = NewDomainError("request", "CheckStatus", ErrInvalidState, "help request is not open")
	ErrInvalidVote       = NewDomainError("request", "VoteDifficulty", ErrValueOutOfRange, "difficulty vote must be between 1 and 5")
	ErrSelfVoteForbidden = NewDomainError("request", "VoteDifficulty", ErrForbidden, "requester cannot vote on own request")
	ErrAlreadyVoted      = NewDomainError("request", "VoteDifficulty", ErrAlreadyProcessed, "voter already voted on this request")
)

// Offer errors
var (
	ErrOfferNotFound      = NewDomainError("offer", "Find", ErrNotFound, "help offer not found")
	ErrSelfOfferForbidden = NewDomainError("offer", "Create", ErrForbidden, "cannot offer help on own request")
	ErrDuplicateOffer     = NewDomainError("offer", "Create", ErrAlreadyExists, "mentor already made an offer on this request")
	ErrOfferNotPending    = NewDomainError("offer", "Accept", ErrInvalidState, "offer is not pending")
)

// Match and completion errors
var (
	ErrMatchNotFound     = NewDomainError("match", "Find", ErrNotFound, "match record not found")
	ErrNotRequestOwner   = NewDomainError("match", "AcceptOffer", ErrUnauthorized, "caller does not own the request")
	ErrNotMentee         = NewDomainError("match", "Complete", ErrUnauthorized, "caller is not the mentee of this match")
	ErrRequestNotMatched = NewDomainError("match", "Complete", ErrInvalidState, "request is not in matched state")
	ErrAlreadyCompleted  = NewDomainError("match", "Complete", ErrAlreadyProcessed, "match already completed")
)

// Reward errors
var (
	ErrNotMentor          = NewDomainError("reward", "Claim", ErrUnauthorized, "caller is not the mentor of this match")
	ErrAlreadyClaimed     = NewDomainError("reward", "Claim", ErrAlreadyProcessed, "reward already claimed for this request")
	ErrMatchNotCompleted  = NewDomainError("reward", "Claim", ErrInvalidState, "match is not completed")
	ErrMenteeNotConfirmed = NewDomainError("reward", "Claim", ErrInvalidState, "mentee did not confirm completion")
)

// External service errors
var (
	ErrIntraAPIUnavailable = NewDomainError("intra", "Request", ErrServiceUnavailable, "42 Intra API is unavailable")
	ErrIntraAPIRateLimited = NewDomainError("intra", "Request", ErrRateLimited, "42 Intra API rate limit exceeded")
	ErrIntraAPITimeout     = NewDomainError("intra", "Request", ErrTimeout, "42 Intra API request timeout")
)

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is an already-exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation reports whether err is any validation error.
func IsValidation(err error) bool {
	for _, kind := range []error{ErrValidation, ErrInvalidID, ErrInvalidInput, ErrEmptyValue, ErrValueOutOfRange} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// IsPrecondition reports whether err is a precondition violation: the call
// was understood but the current state or caller did not satisfy its
// requirements. Precondition failures leave all state unchanged and are safe
// to surface to a retrying client as-is.
func IsPrecondition(err error) bool {
	for _, kind := range []error{ErrInvalidState, ErrStateTransition, ErrAlreadyProcessed, ErrUnauthorized, ErrForbidden, ErrAlreadyExists} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// IsExternalService reports whether err came from an external dependency.
func IsExternalService(err error) bool {
	for _, kind := range []error{ErrExternalService, ErrServiceUnavailable, ErrTimeout, ErrRateLimited} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
