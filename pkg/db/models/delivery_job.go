package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// DeliveryJob binds an accepted order to the agent executing it. GVar is a
// variance, not a standard deviation; clients render ±sqrt(g_var).
type DeliveryJob struct {
	ID              uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	AgentID         uuid.UUID            `gorm:"column:agent_id;type:uuid;not null;index"`
	Pickup          types.GeographyPoint `gorm:"column:pickup;type:geography(Point,4326)"`
	Dropoff         types.GeographyPoint `gorm:"column:dropoff;type:geography(Point,4326)"`
	ETAMinutes      int                  `gorm:"column:eta_minutes;not null;default:0"`
	AssignmentScore float64              `gorm:"column:assignment_score;not null;default:0"`
	GMean           float64              `gorm:"column:g_mean;not null;default:0"`
	GVar            float64              `gorm:"column:g_var;not null;default:0"`
	Status          enums.OrderStatus    `gorm:"column:status;type:text;not null;index"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt     *time.Time           `gorm:"column:completed_at"`
}
