package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wabridge/relay-server-go/internal/model"
)

func TestHandoffLogRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffLogRepository(db)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO handoff_conversation_log`).
		WithArgs("conv-1", "op-1", "905551112233", "Merhaba").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "operator_id", "customer_phone", "content", "created_at"}).
			AddRow("log-1", "conv-1", "op-1", "905551112233", "Merhaba", now))

	entry, err := repo.Create(context.Background(), model.CreateHandoffLogParams{
		ConversationID: "conv-1",
		OperatorID:     "op-1",
		CustomerPhone:  "905551112233",
		Content:        "Merhaba",
	})

	require.NoError(t, err)
	assert.Equal(t, "log-1", entry.ID)
}

func TestHandoffLogRepository_DeleteOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewHandoffLogRepository(db)
	cutoff := time.Now().Add(-90 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM handoff_conversation_log WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
