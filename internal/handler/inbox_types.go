package handler

import (
	"encoding/json"
	"strings"

	"github.com/wabridge/relay-server-go/internal/model"
)

type InboxEvent int

const (
	InboxEventUnknown InboxEvent = iota
	InboxEventMessageCreated
	InboxEventConversationStatusChanged
)

func ParseInboxEvent(s string) InboxEvent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "message_created":
		return InboxEventMessageCreated
	case "conversation_status_changed":
		return InboxEventConversationStatusChanged
	default:
		return InboxEventUnknown
	}
}

func (e InboxEvent) String() string {
	switch e {
	case InboxEventMessageCreated:
		return "message_created"
	case InboxEventConversationStatusChanged:
		return "conversation_status_changed"
	default:
		return "unknown"
	}
}

// InboxMessageType is sent either as a name or as the inbox's numeric enum
// (0 incoming, 1 outgoing, 2 activity, 3 template).
type InboxMessageType string

const (
	InboxMessageIncoming InboxMessageType = "incoming"
	InboxMessageOutgoing InboxMessageType = "outgoing"
	InboxMessageActivity InboxMessageType = "activity"
	InboxMessageTemplate InboxMessageType = "template"
)

var inboxMessageTypeCodes = []InboxMessageType{
	InboxMessageIncoming,
	InboxMessageOutgoing,
	InboxMessageActivity,
	InboxMessageTemplate,
}

func (t *InboxMessageType) UnmarshalJSON(b []byte) error {
	var code int
	if err := json.Unmarshal(b, &code); err == nil {
		if code >= 0 && code < len(inboxMessageTypeCodes) {
			*t = inboxMessageTypeCodes[code]
		} else {
			*t = ""
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = InboxMessageType(strings.ToLower(s))
	return nil
}

type InboxWebhookRequest struct {
	Event        string            `json:"event"`
	MessageType  InboxMessageType  `json:"message_type"`
	Private      bool              `json:"private"`
	Content      string            `json:"content"`
	Conversation InboxConversation `json:"conversation"`
	Status       string            `json:"status,omitempty"`
	Message      *InboxMessage     `json:"message,omitempty"`
}

type InboxConversation struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type InboxMessage struct {
	MessageType    InboxMessageType `json:"message_type"`
	Private        bool             `json:"private"`
	Content        string           `json:"content"`
	ConversationID int64            `json:"conversation_id,omitempty"`
}

func (r *InboxWebhookRequest) Kind() InboxEvent {
	return ParseInboxEvent(r.Event)
}

// InboxReply is a message_created event flattened from either payload shape.
type InboxReply struct {
	ConversationID int64
	MessageType    InboxMessageType
	Private        bool
	Content        string
}

func (r *InboxWebhookRequest) Reply() InboxReply {
	reply := InboxReply{
		ConversationID: r.Conversation.ID,
		MessageType:    r.MessageType,
		Private:        r.Private,
		Content:        r.Content,
	}
	if m := r.Message; m != nil {
		if reply.MessageType == "" {
			reply.MessageType = m.MessageType
		}
		if reply.Content == "" {
			reply.Content = m.Content
		}
		reply.Private = reply.Private || m.Private
		if reply.ConversationID == 0 {
			reply.ConversationID = m.ConversationID
		}
	}
	return reply
}

// ConversationStatus prefers the conversation object over the top-level field.
func (r *InboxWebhookRequest) ConversationStatus() model.InboxConversationStatus {
	status := r.Conversation.Status
	if status == "" {
		status = r.Status
	}
	return model.InboxConversationStatus(strings.ToLower(status))
}
