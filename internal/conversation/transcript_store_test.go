package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresTranscriptStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresTranscriptStore(db)

	mock.ExpectExec("INSERT INTO transcripts").
		WithArgs(sqlmock.AnyArg(), "conv-1", "user", "hi there", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = store.Append(context.Background(), "conv-1", "user", "hi there")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTranscriptStoreAppendRequiresConversationID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresTranscriptStore(db)
	assert.Error(t, store.Append(context.Background(), "", "user", "hi"))
}

func TestPostgresTranscriptStoreList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresTranscriptStore(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "created_at"}).
		AddRow("m1", "conv-1", "user", "hi", now.Add(-time.Minute)).
		AddRow("m2", "conv-1", "assistant", "hello!", now)

	mock.ExpectQuery("SELECT id, conversation_id, role, content, created_at").
		WithArgs("conv-1", 10).
		WillReturnRows(rows)

	entries, err := store.List(context.Background(), "conv-1", nil, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "hello!", entries[1].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTranscriptStoreListFiltersByRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresTranscriptStore(db)

	rows := sqlmock.NewRows([]string{"id", "conversation_id", "role", "content", "created_at"}).
		AddRow("m1", "conv-1", "user", "hi", time.Now().UTC())

	mock.ExpectQuery(`role = ANY\(\$2\)`).
		WithArgs("conv-1", pq.Array([]string{"user"})).
		WillReturnRows(rows)

	entries, err := store.List(context.Background(), "conv-1", []string{"user"}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "user", entries[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTranscriptStoreListQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresTranscriptStore(db)

	mock.ExpectQuery("SELECT id, conversation_id, role, content, created_at").
		WithArgs("conv-1").
		WillReturnError(assert.AnError)

	_, err = store.List(context.Background(), "conv-1", nil, 0)
	assert.Error(t, err)
}
