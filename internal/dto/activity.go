package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateActivityRequest defines payload for creating a conduct activity.
type CreateActivityRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	SemesterKey string          `json:"semesterKey" validate:"required"`
	TypeID      string          `json:"typeId" validate:"required"`
	PointsValue decimal.Decimal `json:"pointsValue" validate:"required"`
	StartsAt    time.Time       `json:"startsAt" validate:"required"`
	EndsAt      time.Time       `json:"endsAt" validate:"required"`
}

// UpdateActivityStatusRequest moves an activity through its approval
// lifecycle.
type UpdateActivityStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
