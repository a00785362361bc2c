package ledger

import (
	"sort"

	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/domain/match"
	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// READ ACCESSORS
// Pure, side-effect-free snapshots. Every return value is a clone; callers
// can never mutate ledger state through a view.
// ══════════════════════════════════════════════════════════════════════════════

// Registry returns a snapshot of the aggregate counters.
func (l *Ledger) Registry() Registry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry
}

// GetProfile returns the profile owned by the identity.
func (l *Ledger) GetProfile(owner shared.Identity) (*profile.StudentProfile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.profiles[owner]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p.Clone(), nil
}

// GetRequest returns the request by id.
func (l *Ledger) GetRequest(id shared.EntityID) (*help.HelpRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.requests[id]
	if !ok {
		return nil, shared.ErrRequestNotFound
	}
	return r.Clone(), nil
}

// GetOffer returns the offer by id.
func (l *Ledger) GetOffer(id shared.EntityID) (*help.HelpOffer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	o, ok := l.offers[id]
	if !ok {
		return nil, shared.ErrOfferNotFound
	}
	return o.Clone(), nil
}

// GetMatch returns the match by id.
func (l *Ledger) GetMatch(id shared.EntityID) (*match.MatchRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.matches[id]
	if !ok {
		return nil, shared.ErrMatchNotFound
	}
	return m.Clone(), nil
}

// GetMatchByRequest returns the match created for a request, if any.
func (l *Ledger) GetMatchByRequest(requestID shared.EntityID) (*match.MatchRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	matchID, ok := l.matchByRequest[requestID]
	if !ok {
		return nil, shared.ErrMatchNotFound
	}
	return l.matches[matchID].Clone(), nil
}

// BadgesByOwner enumerates the badges held by the identity, oldest first.
// Returns an empty slice when the identity holds none.
func (l *Ledger) BadgesByOwner(owner shared.Identity) []*profile.TierBadge {
	l.mu.RLock()
	defer l.mu.RUnlock()

	badges := make([]*profile.TierBadge, 0, len(l.badges[owner]))
	for _, b := range l.badges[owner] {
		badges = append(badges, b.Clone())
	}
	return badges
}

// OpenRequests returns all open requests, newest first.
func (l *Ledger) OpenRequests() []*help.HelpRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()

	open := make([]*help.HelpRequest, 0)
	for _, r := range l.requests {
		if r.IsOpen() {
			open = append(open, r.Clone())
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	return open
}

// OffersByRequest returns all offers on a request in creation order.
func (l *Ledger) OffersByRequest(requestID shared.EntityID) ([]*help.HelpOffer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.requests[requestID]
	if !ok {
		return nil, shared.ErrRequestNotFound
	}

	offers := make([]*help.HelpOffer, 0, len(r.Offers))
	for _, id := range r.Offers {
		if o := l.offers[id]; o != nil {
			offers = append(offers, o.Clone())
		}
	}
	return offers, nil
}

// MatchesByParticipant returns every match the identity took part in, as
// mentor or mentee, oldest first.
func (l *Ledger) MatchesByParticipant(id shared.Identity) []*match.MatchRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	matches := make([]*match.MatchRecord, 0)
	for _, m := range l.matches {
		if m.Mentor == id || m.Mentee == id {
			matches = append(matches, m.Clone())
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches
}

// HasVoted reports whether the identity already voted on the request.
func (l *Ledger) HasVoted(requestID shared.EntityID, voter shared.Identity) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.voters[requestID][voter]
	return ok
}
