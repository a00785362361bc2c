package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_profiles",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_requests_offers",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_matches",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
		{
			Version: 4,
			Name:    "create_events",
			UpSQL:   migration004Up,
			DownSQL: migration004Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS profiles (
	owner TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	external_login TEXT NOT NULL,
	helps_given INTEGER NOT NULL DEFAULT 0,
	helps_received INTEGER NOT NULL DEFAULT 0,
	failed_helps INTEGER NOT NULL DEFAULT 0,
	total_xp INTEGER NOT NULL DEFAULT 0,
	tier SMALLINT NOT NULL DEFAULT 0,
	avg_feedback_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	feedback_count INTEGER NOT NULL DEFAULT 0,
	total_rewards_earned INTEGER NOT NULL DEFAULT 0,
	success_ratio INTEGER NOT NULL DEFAULT 100,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_profiles_external_login ON profiles(external_login);
CREATE INDEX IF NOT EXISTS idx_profiles_total_xp ON profiles(total_xp DESC);
CREATE INDEX IF NOT EXISTS idx_profiles_tier ON profiles(tier);

CREATE TABLE IF NOT EXISTS tier_badges (
	id UUID PRIMARY KEY,
	owner TEXT NOT NULL REFERENCES profiles(owner),
	tier SMALLINT NOT NULL,
	tier_name TEXT NOT NULL,
	helps_given_at_mint INTEGER NOT NULL,
	minted_at TIMESTAMP WITH TIME ZONE NOT NULL,
	UNIQUE(owner, tier)
);

CREATE INDEX IF NOT EXISTS idx_tier_badges_owner ON tier_badges(owner);
`

const migration001Down = `
DROP TABLE IF EXISTS tier_badges;
DROP TABLE IF EXISTS profiles;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS help_requests (
	id UUID PRIMARY KEY,
	requester TEXT NOT NULL,
	topic SMALLINT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	status SMALLINT NOT NULL DEFAULT 0,
	difficulty_vote_count INTEGER NOT NULL DEFAULT 0,
	community_difficulty SMALLINT NOT NULL,
	match_id UUID,
	reward_claimed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_help_requests_status ON help_requests(status);
CREATE INDEX IF NOT EXISTS idx_help_requests_topic ON help_requests(topic);
CREATE INDEX IF NOT EXISTS idx_help_requests_requester ON help_requests(requester);
CREATE INDEX IF NOT EXISTS idx_help_requests_created_at ON help_requests(created_at DESC);

CREATE TABLE IF NOT EXISTS help_offers (
	id UUID PRIMARY KEY,
	request_id UUID NOT NULL REFERENCES help_requests(id),
	mentor TEXT NOT NULL,
	message TEXT NOT NULL,
	competency_level SMALLINT NOT NULL,
	past_helps_on_topic INTEGER NOT NULL DEFAULT 0,
	status SMALLINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
	UNIQUE(request_id, mentor)
);

CREATE INDEX IF NOT EXISTS idx_help_offers_request ON help_offers(request_id);
CREATE INDEX IF NOT EXISTS idx_help_offers_mentor ON help_offers(mentor);
`

const migration002Down = `
DROP TABLE IF EXISTS help_offers;
DROP TABLE IF EXISTS help_requests;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS match_records (
	id UUID PRIMARY KEY,
	request_id UUID NOT NULL REFERENCES help_requests(id),
	offer_id UUID NOT NULL REFERENCES help_offers(id),
	mentee TEXT NOT NULL,
	mentor TEXT NOT NULL,
	status SMALLINT NOT NULL DEFAULT 0,
	mentee_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	completed_at TIMESTAMP WITH TIME ZONE,
	UNIQUE(request_id)
);

CREATE INDEX IF NOT EXISTS idx_match_records_mentor ON match_records(mentor);
CREATE INDEX IF NOT EXISTS idx_match_records_mentee ON match_records(mentee);
`

const migration003Down = `
DROP TABLE IF EXISTS match_records;
`

const migration004Up = `
CREATE TABLE IF NOT EXISTS events (
	sequence BIGSERIAL PRIMARY KEY,
	id UUID NOT NULL,
	event_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	correlation_id TEXT,
	payload JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
CREATE INDEX IF NOT EXISTS idx_events_aggregate ON events(aggregate_id);
CREATE INDEX IF NOT EXISTS idx_events_occurred_at ON events(occurred_at);
`

const migration004Down = `
DROP TABLE IF EXISTS events;
`
