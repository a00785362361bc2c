package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/suilotion/peerhelp-hub/internal/domain/match"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// MatchRepository implements match.Repository for PostgreSQL.
type MatchRepository struct {
	conn *Connection
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(conn *Connection) *MatchRepository {
	return &MatchRepository{conn: conn}
}

// Save creates or updates a match projection.
func (r *MatchRepository) Save(ctx context.Context, m *match.MatchRecord) error {
	query := `
		INSERT INTO match_records (
			id, request_id, offer_id, mentee, mentor, status,
			mentee_confirmed, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT(id) DO UPDATE SET
			status = EXCLUDED.status,
			mentee_confirmed = EXCLUDED.mentee_confirmed,
			completed_at = EXCLUDED.completed_at
	`

	var completedAt interface{}
	if !m.CompletedAt.IsZero() {
		completedAt = m.CompletedAt
	}

	_, err := r.conn.Exec(ctx, query,
		m.ID.String(),
		m.RequestID.String(),
		m.OfferID.String(),
		m.Mentee.String(),
		m.Mentor.String(),
		int(m.Status),
		m.MenteeConfirmed,
		m.CreatedAt,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save match: %w", err)
	}

	return nil
}

// GetByID returns the match by its identifier.
func (r *MatchRepository) GetByID(ctx context.Context, id shared.EntityID) (*match.MatchRecord, error) {
	query := matchSelectColumns + ` WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id.String())
	return r.scanMatch(row)
}

// GetByRequest returns the match created for a request, if any.
func (r *MatchRepository) GetByRequest(ctx context.Context, requestID shared.EntityID) (*match.MatchRecord, error) {
	query := matchSelectColumns + ` WHERE request_id = $1`

	row := r.conn.QueryRow(ctx, query, requestID.String())
	return r.scanMatch(row)
}

// GetByMentor returns matches where the identity is the mentor.
func (r *MatchRepository) GetByMentor(ctx context.Context, mentor shared.Identity) ([]*match.MatchRecord, error) {
	query := matchSelectColumns + ` WHERE mentor = $1 ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, mentor.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query matches by mentor: %w", err)
	}
	defer rows.Close()

	return r.scanMatches(rows)
}

// GetByMentee returns matches where the identity is the mentee.
func (r *MatchRepository) GetByMentee(ctx context.Context, mentee shared.Identity) ([]*match.MatchRecord, error) {
	query := matchSelectColumns + ` WHERE mentee = $1 ORDER BY created_at DESC`

	rows, err := r.conn.Query(ctx, query, mentee.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query matches by mentee: %w", err)
	}
	defer rows.Close()

	return r.scanMatches(rows)
}

// CountCompleted returns the number of completed matches, split by verdict.
func (r *MatchRepository) CountCompleted(ctx context.Context) (confirmed int, rejected int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE mentee_confirmed),
			COUNT(*) FILTER (WHERE NOT mentee_confirmed)
		FROM match_records
		WHERE status = $1
	`

	err = r.conn.QueryRow(ctx, query, int(match.MatchStatusCompleted)).Scan(&confirmed, &rejected)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count completed matches: %w", err)
	}

	return confirmed, rejected, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

const matchSelectColumns = `
	SELECT id, request_id, offer_id, mentee, mentor, status,
		   mentee_confirmed, created_at, completed_at
	FROM match_records
`

// scanMatch scans a single match from a row.
func (r *MatchRepository) scanMatch(row pgx.Row) (*match.MatchRecord, error) {
	m, err := scanMatchFields(row)
	if IsNoRows(err) {
		return nil, shared.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	return m, nil
}

// scanMatches scans multiple matches from rows.
func (r *MatchRepository) scanMatches(rows pgx.Rows) ([]*match.MatchRecord, error) {
	var matches []*match.MatchRecord

	for rows.Next() {
		m, err := scanMatchFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return matches, nil
}

// scanMatchFields scans match columns from any row source.
func scanMatchFields(row pgx.Row) (*match.MatchRecord, error) {
	var m match.MatchRecord
	var id, requestID, offerID, mentee, mentor string
	var status int
	var completedAt *time.Time

	err := row.Scan(
		&id,
		&requestID,
		&offerID,
		&mentee,
		&mentor,
		&status,
		&m.MenteeConfirmed,
		&m.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	m.ID = shared.EntityID(id)
	m.RequestID = shared.EntityID(requestID)
	m.OfferID = shared.EntityID(offerID)
	m.Mentee = shared.Identity(mentee)
	m.Mentor = shared.Identity(mentor)
	m.Status = match.MatchStatus(status)
	if completedAt != nil {
		m.CompletedAt = *completedAt
	}

	return &m, nil
}
