package model

import (
	"time"
)

type Operator struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	Name         string    `db:"name" json:"name"`
	PhoneNumber  *string   `db:"phone_number" json:"phoneNumber,omitempty"`
	APITokenHash string    `db:"api_token_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Reachable reports whether the operator can be notified through the gateway.
func (o *Operator) Reachable() bool {
	return o.PhoneNumber != nil && *o.PhoneNumber != ""
}
