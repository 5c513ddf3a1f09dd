package requests

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPostgresRepositoryWithDB(mock), mock
}

func sampleRequest(t *testing.T) *booking.ServiceRequest {
	t.Helper()
	req, err := booking.NewBuilder(nil).Build(confirmedScratchpad(t, "conv-1"), "conv-1")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return req
}

func TestPostgresCreateOrGetInserts(t *testing.T) {
	repo, mock := newMockRepo(t)
	req := sampleRequest(t)

	mock.ExpectQuery("INSERT INTO service_requests").
		WithArgs(req.ID, req.ConversationID, req.IdempotencyKey,
			pgxmock.AnyArg(), pgxmock.AnyArg(), "confirmed", req.CreatedAt, req.ConfirmedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(req.ID))

	stored, created, err := repo.CreateOrGet(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on fresh insert")
	}
	if stored.ID != req.ID {
		t.Fatalf("id = %s, want %s", stored.ID, req.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresCreateOrGetConflictReturnsExisting(t *testing.T) {
	repo, mock := newMockRepo(t)
	req := sampleRequest(t)

	fieldsJSON, _ := json.Marshal(req.Fields)
	sourcesJSON, _ := json.Marshal(req.CollectionSources)
	existingID := "11111111-2222-3333-4444-555555555555"
	now := time.Now().UTC()

	// ON CONFLICT DO NOTHING yields no row; the loser reads the winner back.
	mock.ExpectQuery("INSERT INTO service_requests").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT id, conversation_id, idempotency_key").
		WithArgs(req.IdempotencyKey).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "conversation_id", "idempotency_key", "fields",
			"collection_sources", "status", "created_at", "confirmed_at",
		}).AddRow(existingID, req.ConversationID, req.IdempotencyKey,
			fieldsJSON, sourcesJSON, "confirmed", now, now))

	stored, created, err := repo.CreateOrGet(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if created {
		t.Fatal("conflict must report created=false")
	}
	if stored.ID != existingID {
		t.Fatalf("id = %s, want existing %s", stored.ID, existingID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresGetByKeyNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, conversation_id, idempotency_key").
		WithArgs("missing-key").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "conversation_id", "idempotency_key", "fields",
			"collection_sources", "status", "created_at", "confirmed_at",
		}))

	if _, err := repo.GetByKey(context.Background(), "missing-key"); err != ErrRequestNotFound {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresListRecent(t *testing.T) {
	repo, mock := newMockRepo(t)
	req := sampleRequest(t)
	fieldsJSON, _ := json.Marshal(req.Fields)
	sourcesJSON, _ := json.Marshal(req.CollectionSources)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, conversation_id, idempotency_key").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "conversation_id", "idempotency_key", "fields",
			"collection_sources", "status", "created_at", "confirmed_at",
		}).AddRow(req.ID, req.ConversationID, req.IdempotencyKey,
			fieldsJSON, sourcesJSON, "confirmed", now, now))

	out, err := repo.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 || out[0].Fields["vehicle.plate"] != "KA01AB1234" {
		t.Fatalf("unexpected rows %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestServiceFinalizeIdempotent(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(repo, booking.NewBuilder(nil), nil)
	pad := confirmedScratchpad(t, "conv-1")

	first, err := svc.Finalize(context.Background(), pad, "conv-1")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	second, err := svc.Finalize(context.Background(), pad, "conv-1")
	if err != nil {
		t.Fatalf("retry finalize: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("retried finalize produced a new record: %s vs %s", first.ID, second.ID)
	}
}

func TestServiceFinalizeMissingRequired(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), booking.NewBuilder(nil), nil)
	pad := booking.NewScratchpad("conv-1")

	if _, err := svc.Finalize(context.Background(), pad, "conv-1"); err == nil {
		t.Fatal("finalize must refuse an incomplete scratchpad")
	}
}
