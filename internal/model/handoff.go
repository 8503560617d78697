package model

import (
	"time"
)

type HandoffLog struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	OperatorID     string    `db:"operator_id" json:"operatorId"`
	CustomerPhone  string    `db:"customer_phone" json:"customerPhone"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type CreateHandoffLogParams struct {
	ConversationID string
	OperatorID     string
	CustomerPhone  string
	Content        string
}
