package model

import (
	"time"

	"github.com/lib/pq"
)

type Conversation struct {
	ID                 string             `db:"id" json:"id"`
	InstanceID         string             `db:"instance_id" json:"instanceId"`
	ContactID          string             `db:"contact_id" json:"contactId"`
	Status             ConversationStatus `db:"status" json:"status"`
	AIEnabled          bool               `db:"ai_enabled" json:"aiEnabled"`
	AssignedOperatorID *string            `db:"assigned_operator_id" json:"assignedOperatorId,omitempty"`
	UnreadCount        int                `db:"unread_count" json:"unreadCount"`
	Tags               pq.StringArray     `db:"tags" json:"tags"`
	LastMessageAt      time.Time          `db:"last_message_at" json:"lastMessageAt"`
	CreatedAt          time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updatedAt"`
	// Created is only populated by the upsert and reports whether the row was inserted.
	Created bool `db:"created" json:"-"`
}

// ConversationSummary is a conversation joined with its contact and instance for listings.
type ConversationSummary struct {
	Conversation
	ContactPhone string  `db:"contact_phone" json:"contactPhone"`
	ContactName  *string `db:"contact_name" json:"contactName,omitempty"`
	InstanceName string  `db:"instance_name" json:"instanceName"`
}

type UpsertConversationParams struct {
	InstanceID    string
	ContactID     string
	LastMessageAt time.Time
}

type ListConversationsParams struct {
	UserID       string
	InstanceName string
	Status       ConversationStatus
	Limit        int
	Offset       int
}
