package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Turn is one message exchanged with the model.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Inbound is a text message received from the chat platform.
type Inbound struct {
	UserID    int64  `json:"user_id"`
	ChatID    int64  `json:"chat_id"`
	FirstName string `json:"first_name"`
	Text      string `json:"text"`
}
