package models

import "time"

// TastingNote captures a sensory evaluation of a batch.
// Sweetness/acidity/body use a 1-5 scale when present.
type TastingNote struct {
	ID         string    `json:"id" db:"id"`
	BatchID    string    `json:"batch_id" db:"batch_id"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	Sweetness  *int      `json:"sweetness,omitempty" db:"sweetness"`
	Acidity    *int      `json:"acidity,omitempty" db:"acidity"`
	Body       *int      `json:"body,omitempty" db:"body"`
	Aroma      string    `json:"aroma,omitempty" db:"aroma"`
	Flavor     string    `json:"flavor,omitempty" db:"flavor"`
	Finish     string    `json:"finish,omitempty" db:"finish"`
	Notes      string    `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
