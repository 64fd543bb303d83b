package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchWindow is the append-only record of a single assignment run.
type BatchWindow struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID         string    `gorm:"column:batch_id;not null;uniqueIndex"`
	WindowStart     time.Time `gorm:"column:window_start;not null"`
	WindowEnd       time.Time `gorm:"column:window_end;not null"`
	TotalOrders     int       `gorm:"column:total_orders;not null;default:0"`
	AssignedOrders  int       `gorm:"column:assigned_orders;not null;default:0"`
	AvailableAgents int       `gorm:"column:available_agents;not null;default:0"`
	GuaranteeRatio  float64   `gorm:"column:guarantee_ratio;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
