package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// DeliveryOrder is a customer order moving through the dispatch lifecycle.
type DeliveryOrder struct {
	ID               uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	RestaurantName   string               `gorm:"column:restaurant_name;not null"`
	Pickup           types.GeographyPoint `gorm:"column:pickup;type:geography(Point,4326)"`
	DropoffAddress   string               `gorm:"column:dropoff_address;not null"`
	Dropoff          types.GeographyPoint `gorm:"column:dropoff;type:geography(Point,4326)"`
	AmountCents      int64                `gorm:"column:amount_cents;not null"`
	DeliveryFeeCents int64                `gorm:"column:delivery_fee_cents;not null"`
	Status           enums.OrderStatus    `gorm:"column:status;type:text;not null;index"`
	AssignedAgentID  *uuid.UUID           `gorm:"column:assigned_agent_id;type:uuid;index"`
	BatchID          *uuid.UUID           `gorm:"column:batch_id;type:uuid"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	AssignedAt       *time.Time           `gorm:"column:assigned_at"`
	PickedUpAt       *time.Time           `gorm:"column:picked_up_at"`
	DeliveredAt      *time.Time           `gorm:"column:delivered_at"`
	CancelledAt      *time.Time           `gorm:"column:cancelled_at"`
}
