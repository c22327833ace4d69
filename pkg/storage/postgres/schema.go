package postgres

// schemaDDL creates the record tables. Statements are idempotent so the
// driver can run them on every open; schema changes are append-only.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS turns (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role            TEXT NOT NULL,
	text            TEXT NOT NULL,
	model           TEXT NOT NULL DEFAULT '',
	token_estimate  INTEGER NOT NULL DEFAULT 0,
	importance      DOUBLE PRECISION NOT NULL,
	summarized      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns (conversation_id, created_at);
CREATE INDEX IF NOT EXISTS idx_turns_unsummarized ON turns (conversation_id, summarized);

CREATE TABLE IF NOT EXISTS summaries (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	text            TEXT NOT NULL,
	turn_count      INTEGER NOT NULL,
	first_turn_id   TEXT NOT NULL DEFAULT '',
	last_turn_id    TEXT NOT NULL DEFAULT '',
	importance      DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_summaries_conversation ON summaries (conversation_id, created_at);

CREATE TABLE IF NOT EXISTS pins (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	subject_id      TEXT NOT NULL DEFAULT '',
	text            TEXT NOT NULL,
	source_turn_id  TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT '',
	urgency         INTEGER NOT NULL DEFAULT 0,
	importance      DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pins_conversation ON pins (conversation_id, importance);
`
