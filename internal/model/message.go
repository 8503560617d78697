package model

import (
	"encoding/json"
	"time"
)

type Message struct {
	ID               string           `db:"id" json:"id"`
	ConversationID   string           `db:"conversation_id" json:"conversationId"`
	Content          string           `db:"content" json:"content"`
	Direction        MessageDirection `db:"direction" json:"direction"`
	IsFromBot        bool             `db:"is_from_bot" json:"isFromBot"`
	Status           MessageStatus    `db:"status" json:"status"`
	SenderPhone      *string          `db:"sender_phone" json:"senderPhone,omitempty"`
	GatewayMessageID *string          `db:"gateway_message_id" json:"gatewayMessageId,omitempty"`
	SentAt           time.Time        `db:"sent_at" json:"sentAt"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
}

// ToSSEEventData returns JSON data for SSE message events
func (m *Message) ToSSEEventData() json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"id":             m.ID,
		"conversationId": m.ConversationID,
		"content":        m.Content,
		"direction":      m.Direction,
		"isFromBot":      m.IsFromBot,
		"status":         m.Status,
		"senderPhone":    m.SenderPhone,
		"sentAt":         m.SentAt,
	})
	return data
}

type CreateMessageParams struct {
	ConversationID   string
	Content          string
	Direction        MessageDirection
	IsFromBot        bool
	Status           MessageStatus
	SenderPhone      *string
	GatewayMessageID *string
	SentAt           time.Time
}
