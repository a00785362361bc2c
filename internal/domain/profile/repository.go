package profile

import (
	"context"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the contract for the read-side projection stores.
// The authoritative state lives in the ledger; implementations under
// infrastructure/persistence keep queryable copies in sync from events.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the projection store for student profiles.
type Repository interface {
	// Save creates or updates a profile projection.
	Save(ctx context.Context, p *StudentProfile) error

	// GetByOwner returns the profile owned by the identity.
	// Returns shared.ErrProfileNotFound if no profile exists.
	GetByOwner(ctx context.Context, owner shared.Identity) (*StudentProfile, error)

	// GetAll returns all profiles with pagination.
	GetAll(ctx context.Context, opts ListOptions) ([]*StudentProfile, error)

	// GetTopByXP returns the top profiles ordered by total XP.
	GetTopByXP(ctx context.Context, limit int) ([]*StudentProfile, error)

	// GetByTier returns profiles holding the given tier.
	GetByTier(ctx context.Context, tier Tier, opts ListOptions) ([]*StudentProfile, error)

	// Count returns the total number of profiles.
	Count(ctx context.Context) (int, error)

	// Exists checks whether the identity already owns a profile.
	Exists(ctx context.Context, owner shared.Identity) (bool, error)
}

// BadgeRepository defines the projection store for tier badges.
type BadgeRepository interface {
	// Save persists a minted badge.
	Save(ctx context.Context, b *TierBadge) error

	// GetByOwner returns all badges held by the identity, oldest first.
	GetByOwner(ctx context.Context, owner shared.Identity) ([]*TierBadge, error)

	// CountByTier returns how many badges of each tier were minted.
	CountByTier(ctx context.Context) (map[Tier]int, error)
}

// Cache defines short-lived caching of hot profiles.
type Cache interface {
	// Get fetches a cached profile. Returns shared.ErrNotFound on miss.
	Get(ctx context.Context, owner shared.Identity) (*StudentProfile, error)

	// Set stores a profile with a TTL.
	Set(ctx context.Context, p *StudentProfile, ttl time.Duration) error

	// Invalidate drops the cached entry for the identity.
	Invalidate(ctx context.Context, owner shared.Identity) error
}

// ListOptions contains pagination and sorting parameters.
type ListOptions struct {
	// Offset - skip count for pagination.
	Offset int

	// Limit - maximum number of records.
	Limit int

	// SortBy - field to sort by.
	SortBy string

	// SortDesc - sort descending.
	SortDesc bool
}

// DefaultListOptions returns the default parameters.
func DefaultListOptions() ListOptions {
	return ListOptions{
		Offset:   0,
		Limit:    50,
		SortBy:   "total_xp",
		SortDesc: true,
	}
}

// WithOffset sets the offset.
func (o ListOptions) WithOffset(offset int) ListOptions {
	o.Offset = offset
	return o
}

// WithLimit sets the limit.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}

// WithSort sets the sort field and direction.
func (o ListOptions) WithSort(field string, desc bool) ListOptions {
	o.SortBy = field
	o.SortDesc = desc
	return o
}
