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

var messageColumns = []string{
	"id", "conversation_id", "content", "direction", "is_from_bot", "status",
	"sender_phone", "gateway_message_id", "sent_at", "created_at",
}

func TestMessageRepository_Create(t *testing.T) {
	ctx := context.Background()
	sentAt := time.Unix(1700000000, 0).UTC()
	phone := "905551112233"
	gatewayID := "ABC1"
	params := model.CreateMessageParams{
		ConversationID:   "conv-1",
		Content:          "Merhaba",
		Direction:        model.MessageDirectionInbound,
		Status:           model.MessageStatusReceived,
		SenderPhone:      &phone,
		GatewayMessageID: &gatewayID,
		SentAt:           sentAt,
	}

	t.Run("inserts message", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMessageRepository(db)

		mock.ExpectQuery(`INSERT INTO messages`).
			WithArgs("conv-1", "Merhaba", model.MessageDirectionInbound, false, model.MessageStatusReceived, phone, gatewayID, sentAt).
			WillReturnRows(sqlmock.NewRows(messageColumns).
				AddRow("msg-1", "conv-1", "Merhaba", "inbound", false, "received", phone, gatewayID, sentAt, sentAt))

		msg, err := repo.Create(ctx, params)

		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, "Merhaba", msg.Content)
		assert.Equal(t, sentAt, msg.SentAt)
		assert.Equal(t, model.MessageDirectionInbound, msg.Direction)
	})

	t.Run("redelivered gateway id yields nil", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMessageRepository(db)

		mock.ExpectQuery(`ON CONFLICT \(conversation_id, gateway_message_id\) WHERE gateway_message_id IS NOT NULL DO NOTHING`).
			WillReturnRows(sqlmock.NewRows(messageColumns))

		msg, err := repo.Create(ctx, params)

		require.NoError(t, err)
		assert.Nil(t, msg)
	})
}

func TestMessageRepository_FindByConversationID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepository(db)
	at := time.Now()

	mock.ExpectQuery(`SELECT \* FROM messages\s+WHERE conversation_id = \$1\s+ORDER BY sent_at DESC`).
		WithArgs("conv-1", 20, 40).
		WillReturnRows(sqlmock.NewRows(messageColumns).
			AddRow("msg-2", "conv-1", "second", "outbound", true, "sent", nil, nil, at, at).
			AddRow("msg-1", "conv-1", "first", "inbound", false, "received", "905551112233", "ABC1", at, at))

	messages, err := repo.FindByConversationID(context.Background(), "conv-1", 20, 40)

	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.True(t, messages[0].IsFromBot)
	assert.Nil(t, messages[0].GatewayMessageID)
}
