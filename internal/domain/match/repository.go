package match

import (
	"context"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the projection store for match records.
type Repository interface {
	// Save creates or updates a match projection.
	Save(ctx context.Context, m *MatchRecord) error

	// GetByID returns the match by its identifier.
	// Returns shared.ErrMatchNotFound if no match exists.
	GetByID(ctx context.Context, id shared.EntityID) (*MatchRecord, error)

	// GetByRequest returns the match created for a request, if any.
	GetByRequest(ctx context.Context, requestID shared.EntityID) (*MatchRecord, error)

	// GetByMentor returns matches where the identity is the mentor.
	GetByMentor(ctx context.Context, mentor shared.Identity) ([]*MatchRecord, error)

	// GetByMentee returns matches where the identity is the mentee.
	GetByMentee(ctx context.Context, mentee shared.Identity) ([]*MatchRecord, error)

	// CountCompleted returns the number of completed matches, split by the
	// mentee's verdict.
	CountCompleted(ctx context.Context) (confirmed int, rejected int, err error)
}
