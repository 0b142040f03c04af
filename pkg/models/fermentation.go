package models

import "time"

// FermentationLog is a point-in-time reading taken on a batch.
// Measurements are all optional; append-mostly but deletable.
type FermentationLog struct {
	ID              string    `json:"id" db:"id"`
	BatchID         string    `json:"batch_id" db:"batch_id"`
	RecordedAt      time.Time `json:"recorded_at" db:"recorded_at"`
	Temperature     *float64  `json:"temperature,omitempty" db:"temperature"`
	SpecificGravity *float64  `json:"specific_gravity,omitempty" db:"specific_gravity"`
	PH              *float64  `json:"ph,omitempty" db:"ph"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
