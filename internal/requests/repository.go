package requests

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

// ErrRequestNotFound is returned when no service request matches a lookup.
var ErrRequestNotFound = errors.New("requests: service request not found")

// Repository persists finalized service requests with dedup-by-key semantics.
type Repository interface {
	// CreateOrGet atomically inserts the request unless one already exists
	// for its idempotency key; the stored record is returned either way.
	// created reports whether this call inserted it.
	CreateOrGet(ctx context.Context, req *booking.ServiceRequest) (stored *booking.ServiceRequest, created bool, err error)
	GetByKey(ctx context.Context, idempotencyKey string) (*booking.ServiceRequest, error)
	ListRecent(ctx context.Context, limit int) ([]*booking.ServiceRequest, error)
}

// InMemoryRepository keeps requests in a map, used for tests and local dev.
type InMemoryRepository struct {
	mu    sync.Mutex
	byKey map[string]*booking.ServiceRequest
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byKey: make(map[string]*booking.ServiceRequest)}
}

// CreateOrGet performs the check-and-insert under one lock so concurrent
// confirm retries cannot double-book.
func (r *InMemoryRepository) CreateOrGet(ctx context.Context, req *booking.ServiceRequest) (*booking.ServiceRequest, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byKey[req.IdempotencyKey]; ok {
		return existing, false, nil
	}
	copied := *req
	r.byKey[req.IdempotencyKey] = &copied
	return &copied, true, nil
}

// GetByKey returns the stored request for the idempotency key.
func (r *InMemoryRepository) GetByKey(ctx context.Context, key string) (*booking.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byKey[key]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// ListRecent returns up to limit requests, newest first.
func (r *InMemoryRepository) ListRecent(ctx context.Context, limit int) ([]*booking.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*booking.ServiceRequest, 0, len(r.byKey))
	for _, req := range r.byKey {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
