// Package sqlite provides a SQLite-backed record store using the
// github.com/mattn/go-sqlite3 driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quillhealthco/keepsake/pkg/memory"
)

// Driver implements storage.RecordStore on a SQLite database.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed record store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite-specific pragmas
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// SaveTurn appends a turn to its conversation.
func (d *Driver) SaveTurn(ctx context.Context, turn *memory.Turn) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, role, text, model, token_estimate, importance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.ConversationID, string(turn.Role), turn.Text,
		turn.Model, turn.TokenEstimate, turn.Importance, turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

// RecentTurns returns the last limit turns in chronological order.
func (d *Driver) RecentTurns(ctx context.Context, conversationID string, limit int) ([]memory.Turn, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, text, model, token_estimate, importance, created_at
		FROM (
			SELECT *, rowid AS seq FROM turns
			WHERE conversation_id = ?
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, seq ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// CountTurns returns the number of turns in a conversation.
func (d *Driver) CountTurns(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE conversation_id = ?`, conversationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return count, nil
}

// UnsummarizedTurns returns, oldest first, up to limit turns not yet covered
// by a summary.
func (d *Driver) UnsummarizedTurns(ctx context.Context, conversationID string, limit int) ([]memory.Turn, error) {
	query := `
		SELECT id, conversation_id, role, text, model, token_estimate, importance, created_at
		FROM turns
		WHERE conversation_id = ? AND summarized = 0
		ORDER BY created_at ASC, rowid ASC`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unsummarized turns: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// CountUnsummarized returns the number of turns not yet covered by a summary.
func (d *Driver) CountUnsummarized(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE conversation_id = ? AND summarized = 0`, conversationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unsummarized: %w", err)
	}
	return count, nil
}

// MarkSummarized records that the given turns are covered by a summary.
func (d *Driver) MarkSummarized(ctx context.Context, conversationID string, turnIDs []string) error {
	if len(turnIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(turnIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(turnIDs)+1)
	args = append(args, conversationID)
	for _, id := range turnIDs {
		args = append(args, id)
	}

	_, err := d.db.ExecContext(ctx,
		`UPDATE turns SET summarized = 1 WHERE conversation_id = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark summarized: %w", err)
	}
	return nil
}

// SaveSummary appends a summary to its conversation.
func (d *Driver) SaveSummary(ctx context.Context, summary *memory.Summary) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO summaries (id, conversation_id, text, turn_count, first_turn_id, last_turn_id, importance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.ConversationID, summary.Text, summary.TurnCount,
		summary.FirstTurnID, summary.LastTurnID, summary.Importance, summary.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// RecentSummaries returns the last limit summaries in chronological order.
func (d *Driver) RecentSummaries(ctx context.Context, conversationID string, limit int) ([]memory.Summary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, conversation_id, text, turn_count, first_turn_id, last_turn_id, importance, created_at
		FROM (
			SELECT *, rowid AS seq FROM summaries
			WHERE conversation_id = ?
			ORDER BY created_at DESC, seq DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, seq ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent summaries: %w", err)
	}
	defer rows.Close()

	var summaries []memory.Summary
	for rows.Next() {
		var s memory.Summary
		if err := rows.Scan(&s.ID, &s.ConversationID, &s.Text, &s.TurnCount,
			&s.FirstTurnID, &s.LastTurnID, &s.Importance, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// SavePin appends a pin to its conversation.
func (d *Driver) SavePin(ctx context.Context, pin *memory.Pin) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO pins (id, conversation_id, subject_id, text, source_turn_id, category, urgency, importance, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pin.ID, pin.ConversationID, pin.SubjectID, pin.Text, pin.SourceTurnID,
		pin.Category, int(pin.Urgency), pin.Importance, pin.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save pin: %w", err)
	}
	return nil
}

// TopPins returns up to limit pins ranked by importance descending, then
// urgency descending, then recency descending.
func (d *Driver) TopPins(ctx context.Context, conversationID string, limit int) ([]memory.Pin, error) {
	query := `
		SELECT id, conversation_id, subject_id, text, source_turn_id, category, urgency, importance, created_at
		FROM pins
		WHERE conversation_id = ?
		ORDER BY importance DESC, urgency DESC, created_at DESC, rowid DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("top pins: %w", err)
	}
	defer rows.Close()

	var pins []memory.Pin
	for rows.Next() {
		var p memory.Pin
		var urgency int
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.SubjectID, &p.Text,
			&p.SourceTurnID, &p.Category, &urgency, &p.Importance, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pin: %w", err)
		}
		p.Urgency = memory.Urgency(urgency)
		pins = append(pins, p)
	}
	return pins, rows.Err()
}

// DeleteConversation removes all records for a conversation.
func (d *Driver) DeleteConversation(ctx context.Context, conversationID string) error {
	for _, table := range []string{"turns", "summaries", "pins"} {
		if _, err := d.db.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE conversation_id = ?`, conversationID,
		); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func scanTurns(rows *sql.Rows) ([]memory.Turn, error) {
	var turns []memory.Turn
	for rows.Next() {
		var t memory.Turn
		var role string
		if err := rows.Scan(&t.ID, &t.ConversationID, &role, &t.Text,
			&t.Model, &t.TokenEstimate, &t.Importance, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = memory.Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
