package earnings

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
)

// EarningDTO is the transport shape for a single ledger row.
type EarningDTO struct {
	ID          uuid.UUID         `json:"id"`
	AgentID     uuid.UUID         `json:"agent_id"`
	OrderID     *uuid.UUID        `json:"order_id,omitempty"`
	AmountCents int64             `json:"amount_cents"`
	Type        enums.EarningType `json:"type"`
	PaidOut     bool              `json:"paid_out"`
	CreatedAt   time.Time         `json:"created_at"`
	PaidAt      *time.Time        `json:"paid_at,omitempty"`
}

// LedgerDTO is the agent-facing earnings view: rows plus period summary.
type LedgerDTO struct {
	Entries             []EarningDTO `json:"entries"`
	TotalCents          int64        `json:"total_cents"`
	PeriodEarningsCents int64        `json:"period_earnings_cents"`
	GuaranteeCents      int64        `json:"guarantee_cents"`
}

func FromModel(e *models.Earning) *EarningDTO {
	if e == nil {
		return nil
	}
	return &EarningDTO{
		ID:          e.ID,
		AgentID:     e.AgentID,
		OrderID:     e.OrderID,
		AmountCents: e.AmountCents,
		Type:        e.Type,
		PaidOut:     e.PaidOut,
		CreatedAt:   e.CreatedAt,
		PaidAt:      e.PaidAt,
	}
}

func FromModels(rows []models.Earning) []EarningDTO {
	out := make([]EarningDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
