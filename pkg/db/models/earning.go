package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/enums"
)

// Earning is one row in an agent's ledger. PaidOut only ever flips
// false to true.
type Earning struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID     uuid.UUID         `gorm:"column:agent_id;type:uuid;not null;index"`
	OrderID     *uuid.UUID        `gorm:"column:order_id;type:uuid;index"`
	AmountCents int64             `gorm:"column:amount_cents;not null"`
	Type        enums.EarningType `gorm:"column:type;type:text;not null"`
	PaidOut     bool              `gorm:"column:paid_out;not null;default:false"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	PaidAt      *time.Time        `gorm:"column:paid_at"`
}
