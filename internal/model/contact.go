package model

import (
	"time"
)

type Contact struct {
	ID          string    `db:"id" json:"id"`
	InstanceID  string    `db:"instance_id" json:"instanceId"`
	PhoneNumber string    `db:"phone_number" json:"phoneNumber"`
	Name        *string   `db:"name" json:"name,omitempty"`
	Blocked     bool      `db:"blocked" json:"blocked"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// DisplayName returns the stored name or the phone number when none is known.
func (c *Contact) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return c.PhoneNumber
}

type UpsertContactParams struct {
	InstanceID  string
	PhoneNumber string
	Name        string
}
