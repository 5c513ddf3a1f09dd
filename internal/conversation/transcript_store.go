package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TranscriptEntry is one stored message of a conversation's long-term history.
// Sessions expire from Redis; transcripts are the durable record.
type TranscriptEntry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // "user" or "assistant"
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// PostgresTranscriptStore persists transcripts to PostgreSQL.
type PostgresTranscriptStore struct {
	db *sql.DB
}

var _ TranscriptStore = (*PostgresTranscriptStore)(nil)

// NewPostgresTranscriptStore builds a transcript store.
func NewPostgresTranscriptStore(db *sql.DB) *PostgresTranscriptStore {
	if db == nil {
		panic("conversation: transcript db cannot be nil")
	}
	return &PostgresTranscriptStore{db: db}
}

// Append stores one message.
func (s *PostgresTranscriptStore) Append(ctx context.Context, conversationID, role, content string) error {
	if conversationID == "" {
		return errors.New("conversation: transcript conversationID required")
	}

	query := `
		INSERT INTO transcripts (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), conversationID, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("conversation: failed to append transcript: %w", err)
	}
	return nil
}

// List returns a conversation's messages in order, newest last. An empty
// roles slice matches every role; limit <= 0 returns everything.
func (s *PostgresTranscriptStore) List(ctx context.Context, conversationID string, roles []string, limit int) ([]TranscriptEntry, error) {
	if conversationID == "" {
		return nil, errors.New("conversation: transcript conversationID required")
	}

	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM transcripts
		WHERE conversation_id = $1
	`
	args := []any{conversationID}
	if len(roles) > 0 {
		args = append(args, pq.Array(roles))
		query += fmt.Sprintf(" AND role = ANY($%d)", len(args))
	}
	query += " ORDER BY created_at ASC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to query transcripts: %w", err)
	}
	defer rows.Close()

	var entries []TranscriptEntry
	for rows.Next() {
		var e TranscriptEntry
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan transcript: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: failed to read transcripts: %w", err)
	}
	return entries, nil
}
