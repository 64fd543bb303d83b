package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// CreateOrderRequest is the customer checkout payload.
type CreateOrderRequest struct {
	RestaurantName string  `json:"restaurant_name" validate:"required"`
	PickupLat      float64 `json:"pickup_lat" validate:"required,latitude"`
	PickupLng      float64 `json:"pickup_lng" validate:"required,longitude"`
	DropoffAddress string  `json:"dropoff_address" validate:"required"`
	DropoffLat     float64 `json:"dropoff_lat" validate:"required,latitude"`
	DropoffLng     float64 `json:"dropoff_lng" validate:"required,longitude"`
	AmountCents    int64   `json:"amount_cents" validate:"required,gt=0"`
}

// OrderDTO is the transport shape for a delivery order.
type OrderDTO struct {
	ID               uuid.UUID            `json:"id"`
	CustomerID       uuid.UUID            `json:"customer_id"`
	RestaurantName   string               `json:"restaurant_name"`
	Pickup           types.GeographyPoint `json:"pickup"`
	DropoffAddress   string               `json:"dropoff_address"`
	Dropoff          types.GeographyPoint `json:"dropoff"`
	AmountCents      int64                `json:"amount_cents"`
	DeliveryFeeCents int64                `json:"delivery_fee_cents"`
	Status           enums.OrderStatus    `json:"status"`
	AssignedAgentID  *uuid.UUID           `json:"assigned_agent_id,omitempty"`
	BatchID          *uuid.UUID           `json:"batch_id,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	AssignedAt       *time.Time           `json:"assigned_at,omitempty"`
	PickedUpAt       *time.Time           `json:"picked_up_at,omitempty"`
	DeliveredAt      *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time           `json:"cancelled_at,omitempty"`
}

// JobDTO is the agent-facing view of an accepted order. GVar is a variance;
// clients display ±sqrt(g_var).
type JobDTO struct {
	ID              uuid.UUID            `json:"id"`
	OrderID         uuid.UUID            `json:"order_id"`
	AgentID         uuid.UUID            `json:"agent_id"`
	Pickup          types.GeographyPoint `json:"pickup"`
	Dropoff         types.GeographyPoint `json:"dropoff"`
	ETAMinutes      int                  `json:"eta_minutes"`
	AssignmentScore float64              `json:"assignment_score"`
	GMean           float64              `json:"g_mean"`
	GVar            float64              `json:"g_var"`
	Status          enums.OrderStatus    `json:"status"`
	CreatedAt       time.Time            `json:"created_at"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

func OrderFromModel(o *models.DeliveryOrder) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:               o.ID,
		CustomerID:       o.CustomerID,
		RestaurantName:   o.RestaurantName,
		Pickup:           o.Pickup,
		DropoffAddress:   o.DropoffAddress,
		Dropoff:          o.Dropoff,
		AmountCents:      o.AmountCents,
		DeliveryFeeCents: o.DeliveryFeeCents,
		Status:           o.Status,
		AssignedAgentID:  o.AssignedAgentID,
		BatchID:          o.BatchID,
		CreatedAt:        o.CreatedAt,
		AssignedAt:       o.AssignedAt,
		PickedUpAt:       o.PickedUpAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
	}
}

func OrdersFromModels(rows []models.DeliveryOrder) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *OrderFromModel(&rows[i]))
	}
	return out
}

func JobFromModel(j *models.DeliveryJob) *JobDTO {
	if j == nil {
		return nil
	}
	return &JobDTO{
		ID:              j.ID,
		OrderID:         j.OrderID,
		AgentID:         j.AgentID,
		Pickup:          j.Pickup,
		Dropoff:         j.Dropoff,
		ETAMinutes:      j.ETAMinutes,
		AssignmentScore: j.AssignmentScore,
		GMean:           j.GMean,
		GVar:            j.GVar,
		Status:          j.Status,
		CreatedAt:       j.CreatedAt,
		CompletedAt:     j.CompletedAt,
	}
}
