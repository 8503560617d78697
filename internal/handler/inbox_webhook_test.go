package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wabridge/relay-server-go/internal/model"
)

type mockInboxRelay struct {
	mock.Mock
}

func (m *mockInboxRelay) RelayAgentReply(ctx context.Context, instanceName string, inboxConversationID int64, text string) (bool, error) {
	args := m.Called(ctx, instanceName, inboxConversationID, text)
	return args.Bool(0), args.Error(1)
}

func (m *mockInboxRelay) HandleConversationStatus(ctx context.Context, instanceName string, inboxConversationID int64, status model.InboxConversationStatus) error {
	return m.Called(ctx, instanceName, inboxConversationID, status).Error(0)
}

func postInboxWebhook(t *testing.T, relay *mockInboxRelay, body string) WebhookResponse {
	t.Helper()
	handler := NewInboxWebhookHandler(relay)
	req := newRequest(http.MethodPost, "/inbox/webhook/shop1", body, map[string]string{"instanceName": "shop1"}, nil)
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestInboxWebhook_Filtering(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "incoming message",
			body: `{"event":"message_created","message_type":"incoming","private":false,"content":"hi","conversation":{"id":22}}`,
		},
		{
			name: "private note",
			body: `{"event":"message_created","message_type":"outgoing","private":true,"content":"internal","conversation":{"id":22}}`,
		},
		{
			name: "incoming as numeric type",
			body: `{"event":"message_created","message_type":0,"content":"hi","conversation":{"id":22}}`,
		},
		{
			name: "private note in nested form",
			body: `{"event":"message_created","message":{"message_type":"outgoing","private":true,"content":"internal"},"conversation":{"id":22}}`,
		},
		{
			name: "activity message",
			body: `{"event":"message_created","message_type":"activity","content":"Conversation resolved","conversation":{"id":22}}`,
		},
		{
			name: "empty content",
			body: `{"event":"message_created","message_type":"outgoing","content":"","conversation":{"id":22}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			relay := new(mockInboxRelay)

			resp := postInboxWebhook(t, relay, tc.body)

			assert.True(t, resp.Success)
			assert.False(t, *resp.Processed)
			relay.AssertNotCalled(t, "RelayAgentReply", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInboxWebhook_Relay(t *testing.T) {
	t.Run("public outgoing message is relayed", func(t *testing.T) {
		relay := new(mockInboxRelay)
		relay.On("RelayAgentReply", mock.Anything, "shop1", int64(22), "On it").Return(true, nil)

		resp := postInboxWebhook(t, relay,
			`{"event":"message_created","message_type":"outgoing","private":false,"content":"On it","conversation":{"id":22}}`)

		assert.True(t, resp.Success)
		assert.True(t, *resp.Processed)
		relay.AssertExpectations(t)
	})

	t.Run("nested message form is relayed", func(t *testing.T) {
		relay := new(mockInboxRelay)
		relay.On("RelayAgentReply", mock.Anything, "shop1", int64(22), "On it").Return(true, nil)

		resp := postInboxWebhook(t, relay,
			`{"event":"message_created","message":{"message_type":1,"private":false,"content":"On it"},"conversation":{"id":22}}`)

		assert.True(t, *resp.Processed)
		relay.AssertExpectations(t)
	})

	t.Run("unlinked conversation is acknowledged", func(t *testing.T) {
		relay := new(mockInboxRelay)
		relay.On("RelayAgentReply", mock.Anything, "shop1", int64(99), "On it").Return(false, nil)

		resp := postInboxWebhook(t, relay,
			`{"event":"message_created","message_type":"outgoing","content":"On it","conversation":{"id":99}}`)

		assert.True(t, resp.Success)
		assert.False(t, *resp.Processed)
	})

	t.Run("gateway failure answers 200 with success false", func(t *testing.T) {
		relay := new(mockInboxRelay)
		relay.On("RelayAgentReply", mock.Anything, "shop1", int64(22), "On it").Return(false, errors.New("gateway 502"))

		resp := postInboxWebhook(t, relay,
			`{"event":"message_created","message_type":"outgoing","content":"On it","conversation":{"id":22}}`)

		assert.False(t, resp.Success)
	})

	t.Run("invalid json answers 200", func(t *testing.T) {
		resp := postInboxWebhook(t, new(mockInboxRelay), `[`)

		assert.False(t, resp.Success)
	})
}

func TestInboxWebhook_StatusChanged(t *testing.T) {
	relay := new(mockInboxRelay)
	relay.On("HandleConversationStatus", mock.Anything, "shop1", int64(22), model.InboxStatusResolved).Return(nil)

	resp := postInboxWebhook(t, relay, `{"event":"conversation_status_changed","conversation":{"id":22,"status":"resolved"}}`)

	assert.True(t, resp.Success)
	assert.True(t, *resp.Processed)
	relay.AssertExpectations(t)
}
