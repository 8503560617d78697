package model

type ConnectionStatus string

const (
	ConnectionStatusOpen       ConnectionStatus = "open"
	ConnectionStatusConnecting ConnectionStatus = "connecting"
	ConnectionStatusClose      ConnectionStatus = "close"
	ConnectionStatusUnknown    ConnectionStatus = "unknown"
)

// ParseConnectionStatus maps a gateway-reported state onto the known set.
func ParseConnectionStatus(s string) ConnectionStatus {
	switch ConnectionStatus(s) {
	case ConnectionStatusOpen, ConnectionStatusConnecting, ConnectionStatusClose:
		return ConnectionStatus(s)
	default:
		return ConnectionStatusUnknown
	}
}

type ConversationStatus string

const (
	ConversationStatusActive  ConversationStatus = "active"
	ConversationStatusClosed  ConversationStatus = "closed"
	ConversationStatusWaiting ConversationStatus = "waiting"
)

type MessageStatus string

const (
	MessageStatusReceived MessageStatus = "received"
	MessageStatusSent     MessageStatus = "sent"
	MessageStatusFailed   MessageStatus = "failed"
)

type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

type ChannelType string

const (
	ChannelTypeWhatsApp ChannelType = "whatsapp"
)

// InboxConversationStatus is the status the engagement inbox reports for its own conversation.
type InboxConversationStatus string

const (
	InboxStatusOpen     InboxConversationStatus = "open"
	InboxStatusResolved InboxConversationStatus = "resolved"
	InboxStatusPending  InboxConversationStatus = "pending"
	InboxStatusSnoozed  InboxConversationStatus = "snoozed"
)

// ParseInboxConversationStatus maps an inbox-reported status onto the stored
// set. Anything else, including an empty status, counts as resolved so the
// link is never reused.
func ParseInboxConversationStatus(s string) InboxConversationStatus {
	switch InboxConversationStatus(s) {
	case InboxStatusOpen, InboxStatusResolved, InboxStatusPending, InboxStatusSnoozed:
		return InboxConversationStatus(s)
	default:
		return InboxStatusResolved
	}
}
