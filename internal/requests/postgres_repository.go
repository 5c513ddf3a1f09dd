package requests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

// PgxIface is the slice of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores service requests in the relational database.
type PostgresRepository struct {
	db PgxIface
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("requests: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db PgxIface) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertRequestSQL = `
	INSERT INTO service_requests
		(id, conversation_id, idempotency_key, fields, collection_sources, status, created_at, confirmed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (idempotency_key) DO NOTHING
	RETURNING id
`

const selectByKeySQL = `
	SELECT id, conversation_id, idempotency_key, fields, collection_sources, status, created_at, confirmed_at
	FROM service_requests
	WHERE idempotency_key = $1
`

// CreateOrGet inserts the request in a single statement whose unique-key
// conflict clause makes the check-and-insert atomic. A concurrent confirm
// retry loses the insert and reads back the winner's row.
func (r *PostgresRepository) CreateOrGet(ctx context.Context, req *booking.ServiceRequest) (*booking.ServiceRequest, bool, error) {
	fieldsJSON, err := json.Marshal(req.Fields)
	if err != nil {
		return nil, false, fmt.Errorf("requests: encode fields: %w", err)
	}
	sourcesJSON, err := json.Marshal(req.CollectionSources)
	if err != nil {
		return nil, false, fmt.Errorf("requests: encode collection sources: %w", err)
	}

	var insertedID string
	err = r.db.QueryRow(ctx, insertRequestSQL,
		req.ID,
		req.ConversationID,
		req.IdempotencyKey,
		fieldsJSON,
		sourcesJSON,
		string(req.Status),
		req.CreatedAt,
		req.ConfirmedAt,
	).Scan(&insertedID)

	switch {
	case err == nil:
		return req, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, err := r.GetByKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("requests: insert failed: %w", err)
	}
}

// GetByKey returns the stored request for the idempotency key.
func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*booking.ServiceRequest, error) {
	row := r.db.QueryRow(ctx, selectByKeySQL, key)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("requests: load by key: %w", err)
	}
	return req, nil
}

const listRecentSQL = `
	SELECT id, conversation_id, idempotency_key, fields, collection_sources, status, created_at, confirmed_at
	FROM service_requests
	ORDER BY created_at DESC
	LIMIT $1
`

// ListRecent returns up to limit requests, newest first.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*booking.ServiceRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, listRecentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("requests: list failed: %w", err)
	}
	defer rows.Close()

	var out []*booking.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("requests: scan row: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("requests: iterate rows: %w", err)
	}
	return out, nil
}

func scanRequest(row pgx.Row) (*booking.ServiceRequest, error) {
	var (
		req         booking.ServiceRequest
		fieldsJSON  []byte
		sourcesJSON []byte
		status      string
		createdAt   time.Time
		confirmedAt time.Time
	)
	if err := row.Scan(&req.ID, &req.ConversationID, &req.IdempotencyKey,
		&fieldsJSON, &sourcesJSON, &status, &createdAt, &confirmedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsJSON, &req.Fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(sourcesJSON, &req.CollectionSources); err != nil {
		return nil, fmt.Errorf("decode collection sources: %w", err)
	}
	req.Status = booking.RequestStatus(status)
	req.CreatedAt = createdAt
	req.ConfirmedAt = confirmedAt
	return &req, nil
}
