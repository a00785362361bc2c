package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RequestRepository implements help.RequestRepository for PostgreSQL.
type RequestRepository struct {
	conn *Connection
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(conn *Connection) *RequestRepository {
	return &RequestRepository{conn: conn}
}

// Save creates or updates a request projection.
func (r *RequestRepository) Save(ctx context.Context, req *help.HelpRequest) error {
	query := `
		INSERT INTO help_requests (
			id, requester, topic, title, description, status,
			difficulty_vote_count, community_difficulty, match_id,
			reward_claimed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT(id) DO UPDATE SET
			status = EXCLUDED.status,
			difficulty_vote_count = EXCLUDED.difficulty_vote_count,
			community_difficulty = EXCLUDED.community_difficulty,
			match_id = EXCLUDED.match_id,
			reward_claimed = EXCLUDED.reward_claimed,
			updated_at = EXCLUDED.updated_at
	`

	var matchID *string
	if !req.MatchID.IsEmpty() {
		id := req.MatchID.String()
		matchID = &id
	}

	_, err := r.conn.Exec(ctx, query,
		req.ID.String(),
		req.Requester.String(),
		int(req.Topic),
		req.Title,
		req.Description,
		int(req.Status),
		req.DifficultyVoteCount,
		req.CommunityDifficulty.Int(),
		matchID,
		req.RewardClaimed,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}

	return nil
}

// GetByID returns the request by its identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id shared.EntityID) (*help.HelpRequest, error) {
	query := requestSelectColumns + ` WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id.String())
	req, err := r.scanRequest(row)
	if err != nil {
		return nil, err
	}

	if err := r.attachOfferRefs(ctx, []*help.HelpRequest{req}); err != nil {
		return nil, err
	}

	return req, nil
}

// GetOpen returns open requests, newest first.
func (r *RequestRepository) GetOpen(ctx context.Context, limit int) ([]*help.HelpRequest, error) {
	query := requestSelectColumns + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.conn.Query(ctx, query, int(help.RequestStatusOpen), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query open requests: %w", err)
	}
	defer rows.Close()

	return r.scanRequestsWithRefs(ctx, rows)
}

// GetByTopic returns requests tagged with the topic.
func (r *RequestRepository) GetByTopic(ctx context.Context, topic help.Topic, limit int) ([]*help.HelpRequest, error) {
	query := requestSelectColumns + ` WHERE topic = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.conn.Query(ctx, query, int(topic), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests by topic: %w", err)
	}
	defer rows.Close()

	return r.scanRequestsWithRefs(ctx, rows)
}

// GetByRequester returns requests created by the identity.
func (r *RequestRepository) GetByRequester(ctx context.Context, requester shared.Identity) ([]*help.HelpRequest, error) {
	query := requestSelectColumns + ` WHERE requester = $1 ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, requester.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query requests by requester: %w", err)
	}
	defer rows.Close()

	return r.scanRequestsWithRefs(ctx, rows)
}

// CountByStatus returns request counts per status.
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[help.RequestStatus]int, error) {
	rows, err := r.conn.Query(ctx, "SELECT status, COUNT(*) FROM help_requests GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[help.RequestStatus]int)
	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan request count: %w", err)
		}
		counts[help.RequestStatus(status)] = count
	}

	return counts, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

const requestSelectColumns = `
	SELECT id, requester, topic, title, description, status,
		   difficulty_vote_count, community_difficulty, match_id,
		   reward_claimed, created_at, updated_at
	FROM help_requests
`

// scanRequest scans a single request from a row.
func (r *RequestRepository) scanRequest(row pgx.Row) (*help.HelpRequest, error) {
	var req help.HelpRequest
	var id, requester string
	var topic, status, difficulty int
	var matchID *string

	err := row.Scan(
		&id,
		&requester,
		&topic,
		&req.Title,
		&req.Description,
		&status,
		&req.DifficultyVoteCount,
		&difficulty,
		&matchID,
		&req.RewardClaimed,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	req.ID = shared.EntityID(id)
	req.Requester = shared.Identity(requester)
	req.Topic = help.Topic(topic)
	req.Status = help.RequestStatus(status)
	req.CommunityDifficulty = help.Difficulty(difficulty)
	if matchID != nil {
		req.MatchID = shared.EntityID(*matchID)
	}
	req.Offers = make([]shared.EntityID, 0)
	req.MentorAddresses = make(map[shared.Identity]struct{})

	return &req, nil
}

// scanRequestsWithRefs scans multiple requests and attaches their offer refs.
func (r *RequestRepository) scanRequestsWithRefs(ctx context.Context, rows pgx.Rows) ([]*help.HelpRequest, error) {
	var requests []*help.HelpRequest

	for rows.Next() {
		var req help.HelpRequest
		var id, requester string
		var topic, status, difficulty int
		var matchID *string

		err := rows.Scan(
			&id,
			&requester,
			&topic,
			&req.Title,
			&req.Description,
			&status,
			&req.DifficultyVoteCount,
			&difficulty,
			&matchID,
			&req.RewardClaimed,
			&req.CreatedAt,
			&req.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		req.ID = shared.EntityID(id)
		req.Requester = shared.Identity(requester)
		req.Topic = help.Topic(topic)
		req.Status = help.RequestStatus(status)
		req.CommunityDifficulty = help.Difficulty(difficulty)
		if matchID != nil {
			req.MatchID = shared.EntityID(*matchID)
		}
		req.Offers = make([]shared.EntityID, 0)
		req.MentorAddresses = make(map[shared.Identity]struct{})

		requests = append(requests, &req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if err := r.attachOfferRefs(ctx, requests); err != nil {
		return nil, err
	}

	return requests, nil
}

// attachOfferRefs fills Offers and MentorAddresses from the offers table in
// one batch query.
func (r *RequestRepository) attachOfferRefs(ctx context.Context, requests []*help.HelpRequest) error {
	if len(requests) == 0 {
		return nil
	}

	ids := make([]string, len(requests))
	byID := make(map[shared.EntityID]*help.HelpRequest, len(requests))
	for i, req := range requests {
		ids[i] = req.ID.String()
		byID[req.ID] = req
	}

	query := `
		SELECT id, request_id, mentor
		FROM help_offers
		WHERE request_id = ANY($1)
		ORDER BY created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query offer refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var offerID, requestID, mentor string
		if err := rows.Scan(&offerID, &requestID, &mentor); err != nil {
			return fmt.Errorf("failed to scan offer ref: %w", err)
		}

		req, ok := byID[shared.EntityID(requestID)]
		if !ok {
			continue
		}
		req.Offers = append(req.Offers, shared.EntityID(offerID))
		req.MentorAddresses[shared.Identity(mentor)] = struct{}{}
	}

	return rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// OFFER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// OfferRepository implements help.OfferRepository for PostgreSQL.
type OfferRepository struct {
	conn *Connection
}

// NewOfferRepository creates a new OfferRepository.
func NewOfferRepository(conn *Connection) *OfferRepository {
	return &OfferRepository{conn: conn}
}

// Save creates or updates an offer projection.
func (r *OfferRepository) Save(ctx context.Context, o *help.HelpOffer) error {
	query := `
		INSERT INTO help_offers (
			id, request_id, mentor, message, competency_level,
			past_helps_on_topic, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT(id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		o.ID.String(),
		o.RequestID.String(),
		o.Mentor.String(),
		o.Message,
		int(o.CompetencyLevel),
		o.PastHelpsOnTopic,
		int(o.Status),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateOffer
		}
		return fmt.Errorf("failed to save offer: %w", err)
	}

	return nil
}

// GetByID returns the offer by its identifier.
func (r *OfferRepository) GetByID(ctx context.Context, id shared.EntityID) (*help.HelpOffer, error) {
	query := offerSelectColumns + ` WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id.String())
	return r.scanOffer(row)
}

// GetByRequest returns all offers on a request, oldest first.
func (r *OfferRepository) GetByRequest(ctx context.Context, requestID shared.EntityID) ([]*help.HelpOffer, error) {
	query := offerSelectColumns + ` WHERE request_id = $1 ORDER BY created_at ASC`

	rows, err := r.conn.Query(ctx, query, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query offers by request: %w", err)
	}
	defer rows.Close()

	return r.scanOffers(rows)
}

// GetByMentor returns all offers made by the identity.
func (r *OfferRepository) GetByMentor(ctx context.Context, mentor shared.Identity) ([]*help.HelpOffer, error) {
	query := offerSelectColumns + ` WHERE mentor = $1 ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, mentor.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query offers by mentor: %w", err)
	}
	defer rows.Close()

	return r.scanOffers(rows)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

const offerSelectColumns = `
	SELECT id, request_id, mentor, message, competency_level,
		   past_helps_on_topic, status, created_at, updated_at
	FROM help_offers
`

// scanOffer scans a single offer from a row.
func (r *OfferRepository) scanOffer(row pgx.Row) (*help.HelpOffer, error) {
	var o help.HelpOffer
	var id, requestID, mentor string
	var competency, status int

	err := row.Scan(
		&id,
		&requestID,
		&mentor,
		&o.Message,
		&competency,
		&o.PastHelpsOnTopic,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan offer: %w", err)
	}

	o.ID = shared.EntityID(id)
	o.RequestID = shared.EntityID(requestID)
	o.Mentor = shared.Identity(mentor)
	o.CompetencyLevel = help.CompetencyLevel(competency)
	o.Status = help.OfferStatus(status)

	return &o, nil
}

// scanOffers scans multiple offers from rows.
func (r *OfferRepository) scanOffers(rows pgx.Rows) ([]*help.HelpOffer, error) {
	var offers []*help.HelpOffer

	for rows.Next() {
		var o help.HelpOffer
		var id, requestID, mentor string
		var competency, status int

		err := rows.Scan(
			&id,
			&requestID,
			&mentor,
			&o.Message,
			&competency,
			&o.PastHelpsOnTopic,
			&status,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}

		o.ID = shared.EntityID(id)
		o.RequestID = shared.EntityID(requestID)
		o.Mentor = shared.Identity(mentor)
		o.CompetencyLevel = help.CompetencyLevel(competency)
		o.Status = help.OfferStatus(status)

		offers = append(offers, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return offers, nil
}
