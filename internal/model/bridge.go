package model

import (
	"time"
)

// BridgeLink maps a local (instance, phone) thread to the inbox's own contact
// and conversation ids. At most one open link exists per thread and channel.
type BridgeLink struct {
	ID                  string                  `db:"id" json:"id"`
	UserID              string                  `db:"user_id" json:"userId"`
	InstanceName        string                  `db:"instance_name" json:"instanceName"`
	PhoneNumber         string                  `db:"phone_number" json:"phoneNumber"`
	ChannelType         ChannelType             `db:"channel_type" json:"channelType"`
	InboxContactID      int64                   `db:"inbox_contact_id" json:"inboxContactId"`
	InboxConversationID int64                   `db:"inbox_conversation_id" json:"inboxConversationId"`
	ConversationStatus  InboxConversationStatus `db:"conversation_status" json:"conversationStatus"`
	CreatedAt           time.Time               `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time               `db:"updated_at" json:"updatedAt"`
}

type BridgeKey struct {
	UserID       string
	InstanceName string
	PhoneNumber  string
	ChannelType  ChannelType
}

type CreateBridgeLinkParams struct {
	BridgeKey
	InboxContactID      int64
	InboxConversationID int64
}

type InboxConfig struct {
	ID           string      `db:"id" json:"id"`
	UserID       string      `db:"user_id" json:"userId"`
	InstanceName string      `db:"instance_name" json:"instanceName"`
	ChannelType  ChannelType `db:"channel_type" json:"channelType"`
	BaseURL      string      `db:"base_url" json:"baseUrl"`
	AccountID    int64       `db:"account_id" json:"accountId"`
	InboxID      int64       `db:"inbox_id" json:"inboxId"`
	APIToken     string      `db:"api_token" json:"-"`
	Enabled      bool        `db:"enabled" json:"enabled"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}
