package model

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	Base
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	Link      string    `db:"link" json:"link,omitempty"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationMessage is the broker payload fanned out to the dispatch worker.
type NotificationMessage struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
	Link    string    `json:"link,omitempty"`
}
