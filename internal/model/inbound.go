package model

import (
	"time"
)

// InboundMessage is a gateway message envelope after normalization. PhoneNumber
// is FromAddress with the gateway suffix stripped.
type InboundMessage struct {
	InstanceName string
	MessageID    string
	FromAddress  string
	PhoneNumber  string
	Text         string
	Timestamp    time.Time
	SenderName   string
}
