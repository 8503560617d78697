package model

import (
	"time"
)

type Instance struct {
	ID               string           `db:"id" json:"id"`
	Name             string           `db:"name" json:"name"`
	UserID           string           `db:"user_id" json:"userId"`
	CustomPrompt     *string          `db:"custom_prompt" json:"customPrompt,omitempty"`
	ConnectionStatus ConnectionStatus `db:"connection_status" json:"connectionStatus"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updatedAt"`
}
