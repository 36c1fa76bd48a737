package model

import (
	"time"

	"github.com/google/uuid"
)

// Attachment is a teeth-graph image record. Each row owns exactly one
// on-disk image file addressed by ImageURL.
type Attachment struct {
	Base
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Description string    `db:"description" json:"description"`
	ImageURL    string    `db:"image_url" json:"image_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
