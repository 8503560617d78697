package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wabridge/relay-server-go/internal/service"
)

func TestParseGatewayEvent(t *testing.T) {
	tests := map[string]GatewayEvent{
		"messages.upsert":   EventMessagesUpsert,
		"MESSAGES_UPSERT":   EventMessagesUpsert,
		"messages_upsert":   EventMessagesUpsert,
		" Messages.Upsert ": EventMessagesUpsert,
		"connection.update": EventConnectionUpdate,
		"CONNECTION_UPDATE": EventConnectionUpdate,
		"qrcode.updated":    EventUnknown,
		"":                  EventUnknown,
	}

	for input, want := range tests {
		assert.Equal(t, want, ParseGatewayEvent(input), input)
	}
}

func TestMessageEnvelope_Normalize(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("missing timestamp uses receive time", func(t *testing.T) {
		env := MessageEnvelope{
			Key:     MessageKey{RemoteJid: "905551112233:12@s.whatsapp.net", ID: "X"},
			Message: &MessageContent{Conversation: "hi"},
		}

		msg, reason := env.Normalize("shop1", now)

		require.NotNil(t, msg)
		assert.Empty(t, reason)
		assert.Equal(t, now, msg.Timestamp)
		assert.Equal(t, "905551112233", msg.PhoneNumber)
	})

	t.Run("conversation text wins over extended text", func(t *testing.T) {
		env := MessageEnvelope{Message: &MessageContent{
			Conversation:        "plain",
			ExtendedTextMessage: &ExtendedTextMessage{Text: "extended"},
		}}
		assert.Equal(t, "plain", env.Text())
	})

	t.Run("skip reasons", func(t *testing.T) {
		_, reason := (&MessageEnvelope{Key: MessageKey{FromMe: true}, Message: &MessageContent{Conversation: "x"}}).Normalize("shop1", now)
		assert.Equal(t, service.ReasonFromMe, reason)

		_, reason = (&MessageEnvelope{Message: &MessageContent{Conversation: "   "}}).Normalize("shop1", now)
		assert.Equal(t, service.ReasonNoText, reason)

		msg, reason := (&MessageEnvelope{
			Key:     MessageKey{RemoteJid: "120363025246125888@g.us", ID: "G"},
			Message: &MessageContent{Conversation: "group hello"},
		}).Normalize("shop1", now)
		assert.Nil(t, msg)
		assert.Equal(t, service.ReasonNoAddress, reason)
	})
}

func TestMessageEnvelopes_Unmarshal(t *testing.T) {
	var data GatewayWebhookData

	require.NoError(t, json.Unmarshal([]byte(`{"messages":null}`), &data))
	assert.Empty(t, data.Messages)

	require.NoError(t, json.Unmarshal([]byte(`{"messages":{"key":{"id":"1"}}}`), &data))
	assert.Len(t, data.Messages, 1)

	require.NoError(t, json.Unmarshal([]byte(`{"messages":[{"key":{"id":"1"}},{"key":{"id":"2"}}]}`), &data))
	assert.Len(t, data.Messages, 2)

	assert.Error(t, json.Unmarshal([]byte(`{"messages":"nope"}`), &data))
}
