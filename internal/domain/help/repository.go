package help

import (
	"context"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Projection stores for requests and offers. The ledger is authoritative;
// implementations under infrastructure/persistence rebuild these from events.
// ══════════════════════════════════════════════════════════════════════════════

// RequestRepository defines the projection store for help requests.
type RequestRepository interface {
	// Save creates or updates a request projection.
	Save(ctx context.Context, r *HelpRequest) error

	// GetByID returns the request by its identifier.
	// Returns shared.ErrRequestNotFound if no request exists.
	GetByID(ctx context.Context, id shared.EntityID) (*HelpRequest, error)

	// GetOpen returns open requests, newest first.
	GetOpen(ctx context.Context, limit int) ([]*HelpRequest, error)

	// GetByTopic returns requests tagged with the topic.
	GetByTopic(ctx context.Context, topic Topic, limit int) ([]*HelpRequest, error)

	// GetByRequester returns requests created by the identity.
	GetByRequester(ctx context.Context, requester shared.Identity) ([]*HelpRequest, error)

	// CountByStatus returns request counts per status.
	CountByStatus(ctx context.Context) (map[RequestStatus]int, error)
}

// OfferRepository defines the projection store for help offers.
type OfferRepository interface {
	// Save creates or updates an offer projection.
	Save(ctx context.Context, o *HelpOffer) error

	// GetByID returns the offer by its identifier.
	// Returns shared.ErrOfferNotFound if no offer exists.
	GetByID(ctx context.Context, id shared.EntityID) (*HelpOffer, error)

	// GetByRequest returns all offers on a request, oldest first.
	GetByRequest(ctx context.Context, requestID shared.EntityID) ([]*HelpOffer, error)

	// GetByMentor returns all offers made by the identity.
	GetByMentor(ctx context.Context, mentor shared.Identity) ([]*HelpOffer, error)
}
