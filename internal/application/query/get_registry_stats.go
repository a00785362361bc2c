package query

import (
	"context"

	"github.com/suilotion/peerhelp-hub/internal/ledger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET REGISTRY STATS QUERY
// Process-wide marketplace counters plus a few derived rates for dashboards.
// ══════════════════════════════════════════════════════════════════════════════

// RegistryStatsDTO is the read model for the registry counters.
type RegistryStatsDTO struct {
	// TotalRequests counts all requests ever created.
	TotalRequests int `json:"total_requests"`

	// TotalMatches counts all offer acceptances.
	TotalMatches int `json:"total_matches"`

	// TotalCompletions counts all terminal verdicts.
	TotalCompletions int `json:"total_completions"`

	// OpenRequests is the current number of requests accepting offers.
	OpenRequests int `json:"open_requests"`

	// MatchRate is matches over requests, in percent (0 when no requests).
	MatchRate int `json:"match_rate"`

	// CompletionRate is completions over matches, in percent (0 when no matches).
	CompletionRate int `json:"completion_rate"`
}

// GetRegistryStatsHandler handles the registry stats query.
type GetRegistryStatsHandler struct {
	ledger *ledger.Ledger
}

// NewGetRegistryStatsHandler creates a new GetRegistryStatsHandler.
func NewGetRegistryStatsHandler(l *ledger.Ledger) *GetRegistryStatsHandler {
	return &GetRegistryStatsHandler{ledger: l}
}

// Handle executes the stats snapshot.
func (h *GetRegistryStatsHandler) Handle(ctx context.Context) (*RegistryStatsDTO, error) {
	reg := h.ledger.Registry()

	dto := &RegistryStatsDTO{
		TotalRequests:    reg.TotalRequests,
		TotalMatches:     reg.TotalMatches,
		TotalCompletions: reg.TotalCompletions,
		OpenRequests:     len(h.ledger.OpenRequests()),
	}

	if reg.TotalRequests > 0 {
		dto.MatchRate = reg.TotalMatches * 100 / reg.TotalRequests
	}
	if reg.TotalMatches > 0 {
		dto.CompletionRate = reg.TotalCompletions * 100 / reg.TotalMatches
	}

	return dto, nil
}
