package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage 生产阶段（固定顺序，不可跳跃）
type Stage string

const (
	StagePressing   Stage = "pressing"
	StageFermenting Stage = "fermenting"
	StageAging      Stage = "aging"
	StageBottled    Stage = "bottled"
)

// nextStage is the total transition table: every non-terminal stage has
// exactly one successor, bottled has none.
var nextStage = map[Stage]Stage{
	StagePressing:   StageFermenting,
	StageFermenting: StageAging,
	StageAging:      StageBottled,
}

// Valid reports whether s is a defined production stage.
func (s Stage) Valid() bool {
	if s == StageBottled {
		return true
	}
	_, ok := nextStage[s]
	return ok
}

// Next returns the single allowed successor stage. The second return is
// false for bottled (terminal) and for undefined stages.
func (s Stage) Next() (Stage, bool) {
	n, ok := nextStage[s]
	return n, ok
}

// Terminal reports whether the stage has no further transition.
func (s Stage) Terminal() bool {
	return s == StageBottled
}

// Batch is one unit of cider production, owned by exactly one
// organization and tracked through the four stages.
type Batch struct {
	ID             string          `json:"id" db:"id"`
	OrganizationID string          `json:"organization_id" db:"organization_id"`
	Name           string          `json:"name" db:"name"`
	Variety        string          `json:"variety,omitempty" db:"variety"`
	Volume         decimal.Decimal `json:"volume" db:"volume"`
	CurrentStage   Stage           `json:"current_stage" db:"current_stage"`
	StartDate      time.Time       `json:"start_date" db:"start_date"`
	CreatedBy      string          `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
