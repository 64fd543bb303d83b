package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// Agent is a delivery agent's dispatch state. CurrentJobID is the single
// active-job slot: non-null exactly while the agent holds a live job.
type Agent struct {
	ID                  uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID            `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Online              bool                 `gorm:"column:online;not null;default:false"`
	CurrentJobID        *uuid.UUID           `gorm:"column:current_job_id;type:uuid"`
	Location            types.GeographyPoint `gorm:"column:location;type:geography(Point,4326)"`
	PeriodEarningsCents int64                `gorm:"column:period_earnings_cents;not null;default:0"`
	GuaranteeCents      int64                `gorm:"column:guarantee_cents;not null;default:0"`
	PeriodSettled       bool                 `gorm:"column:period_settled;not null;default:false"`
	ActiveSince         *time.Time           `gorm:"column:active_since"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
