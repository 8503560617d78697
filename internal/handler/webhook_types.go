package handler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/wabridge/relay-server-go/internal/model"
	"github.com/wabridge/relay-server-go/internal/service"
	"github.com/wabridge/relay-server-go/internal/util"
)

// GatewayEvent is the closed set of gateway webhook events the relay acts on.
type GatewayEvent int

const (
	EventUnknown GatewayEvent = iota
	EventMessagesUpsert
	EventConnectionUpdate
)

// ParseGatewayEvent accepts the dotted, upper-case and underscore spellings
// used by different gateway versions.
func ParseGatewayEvent(s string) GatewayEvent {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", ".")
	switch normalized {
	case "messages.upsert":
		return EventMessagesUpsert
	case "connection.update":
		return EventConnectionUpdate
	default:
		return EventUnknown
	}
}

func (e GatewayEvent) String() string {
	switch e {
	case EventMessagesUpsert:
		return "messages.upsert"
	case EventConnectionUpdate:
		return "connection.update"
	default:
		return "unknown"
	}
}

type GatewayWebhookRequest struct {
	Event    string             `json:"event"`
	Instance string             `json:"instance"`
	Data     GatewayWebhookData `json:"data"`
}

func (r *GatewayWebhookRequest) Kind() GatewayEvent {
	return ParseGatewayEvent(r.Event)
}

type GatewayWebhookData struct {
	Messages   MessageEnvelopes   `json:"messages"`
	Connection *ConnectionPayload `json:"connection,omitempty"`
	// Some gateway versions put the connection state directly under data.
	State string `json:"state,omitempty"`
}

// ConnectionState returns the reported state from either payload shape.
func (d *GatewayWebhookData) ConnectionState() string {
	if d.Connection != nil && d.Connection.State != "" {
		return d.Connection.State
	}
	return d.State
}

type ConnectionPayload struct {
	State string `json:"state"`
}

// MessageEnvelopes decodes data.messages whether it is an array or, as in the
// older protocol version, a single object.
type MessageEnvelopes []MessageEnvelope

func (m *MessageEnvelopes) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	if trimmed[0] == '{' {
		var single MessageEnvelope
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*m = MessageEnvelopes{single}
		return nil
	}
	var list []MessageEnvelope
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*m = list
	return nil
}

type MessageEnvelope struct {
	Key              MessageKey      `json:"key"`
	Message          *MessageContent `json:"message,omitempty"`
	MessageTimestamp UnixTimestamp   `json:"messageTimestamp"`
	PushName         string          `json:"pushName,omitempty"`
}

type MessageKey struct {
	RemoteJid string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

type MessageContent struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
}

type ExtendedTextMessage struct {
	Text string `json:"text"`
}

// UnixTimestamp accepts seconds as a JSON number or numeric string.
type UnixTimestamp int64

func (t *UnixTimestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		n = int64(f)
	}
	*t = UnixTimestamp(n)
	return nil
}

// Text returns the plain conversation text, falling back to extended text.
func (e *MessageEnvelope) Text() string {
	if e.Message == nil {
		return ""
	}
	if e.Message.Conversation != "" {
		return e.Message.Conversation
	}
	if e.Message.ExtendedTextMessage != nil {
		return e.Message.ExtendedTextMessage.Text
	}
	return ""
}

// Normalize turns the envelope into the router's input. When the envelope
// carries nothing to act on it returns nil and the skip reason.
func (e *MessageEnvelope) Normalize(instanceName string, now time.Time) (*model.InboundMessage, string) {
	if e.Key.FromMe {
		return nil, service.ReasonFromMe
	}
	text := e.Text()
	if strings.TrimSpace(text) == "" {
		return nil, service.ReasonNoText
	}

	phone := util.NormalizePhone(e.Key.RemoteJid)
	if phone == "" {
		return nil, service.ReasonNoAddress
	}

	sentAt := now
	if e.MessageTimestamp > 0 {
		sentAt = time.Unix(int64(e.MessageTimestamp), 0).UTC()
	}

	return &model.InboundMessage{
		InstanceName: instanceName,
		MessageID:    e.Key.ID,
		FromAddress:  e.Key.RemoteJid,
		PhoneNumber:  phone,
		Text:         text,
		Timestamp:    sentAt,
		SenderName:   strings.TrimSpace(e.PushName),
	}, ""
}

// WebhookResponse is the fixed acknowledgement for both webhook routes.
type WebhookResponse struct {
	Success   bool   `json:"success"`
	Processed *bool  `json:"processed,omitempty"`
	Error     string `json:"error,omitempty"`
}

func ack(processed bool) WebhookResponse {
	return WebhookResponse{Success: true, Processed: &processed}
}

func ackError(msg string) WebhookResponse {
	return WebhookResponse{Success: false, Error: msg}
}
