package models

import "time"

// PackagingFormat 包装形式
type PackagingFormat string

const (
	FormatBottle   PackagingFormat = "bottle"
	FormatCan      PackagingFormat = "can"
	FormatKeg      PackagingFormat = "keg"
	FormatBagInBox PackagingFormat = "bag-in-box"
	FormatGrowler  PackagingFormat = "growler"
	FormatOther    PackagingFormat = "other"
)

// Valid reports whether the packaging format is one of the allowed values.
func (f PackagingFormat) Valid() bool {
	switch f {
	case FormatBottle, FormatCan, FormatKeg, FormatBagInBox, FormatGrowler, FormatOther:
		return true
	}
	return false
}

// PackagingSchedule plans the packaging of a batch. A nil CompletedAt
// means pending; once set it is never cleared (re-opening is not modeled).
type PackagingSchedule struct {
	ID          string          `json:"id" db:"id"`
	BatchID     string          `json:"batch_id" db:"batch_id"`
	TargetDate  time.Time       `json:"target_date" db:"target_date"`
	Format      PackagingFormat `json:"format" db:"format"`
	Quantity    *int            `json:"quantity,omitempty" db:"quantity"`
	Notes       string          `json:"notes,omitempty" db:"notes"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Completed reports whether the schedule has been marked done.
func (p *PackagingSchedule) Completed() bool {
	return p.CompletedAt != nil
}
