package agents

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// AgentDTO is the transport shape for agent pool state.
type AgentDTO struct {
	ID                  uuid.UUID            `json:"id"`
	UserID              uuid.UUID            `json:"user_id"`
	Online              bool                 `json:"online"`
	CurrentJobID        *uuid.UUID           `json:"current_job_id,omitempty"`
	Location            types.GeographyPoint `json:"location"`
	PeriodEarningsCents int64                `json:"period_earnings_cents"`
	GuaranteeCents      int64                `json:"guarantee_cents"`
	PeriodSettled       bool                 `json:"period_settled"`
	ActiveSince         *time.Time           `json:"active_since,omitempty"`
}

func FromModel(a *models.Agent) *AgentDTO {
	if a == nil {
		return nil
	}
	return &AgentDTO{
		ID:                  a.ID,
		UserID:              a.UserID,
		Online:              a.Online,
		CurrentJobID:        a.CurrentJobID,
		Location:            a.Location,
		PeriodEarningsCents: a.PeriodEarningsCents,
		GuaranteeCents:      a.GuaranteeCents,
		PeriodSettled:       a.PeriodSettled,
		ActiveSince:         a.ActiveSince,
	}
}
