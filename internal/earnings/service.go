package earnings

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfleet/forkfleet-backend/internal/agents"
	apperrors "github.com/forkfleet/forkfleet-backend/pkg/errors"
)

// Service exposes the agent-facing earnings ledger.
type Service interface {
	Ledger(ctx context.Context, agentID uuid.UUID) (*LedgerDTO, error)
}

type service struct {
	earnings *Repository
	agents   *agents.Repository
}

// NewService builds the earnings read service.
func NewService(earningsRepo *Repository, agentsRepo *agents.Repository) (Service, error) {
	if earningsRepo == nil || agentsRepo == nil {
		return nil, stderrors.New("earnings service requires repositories")
	}
	return &service{earnings: earningsRepo, agents: agentsRepo}, nil
}

// Ledger returns the agent's rows newest first plus the period summary.
func (s *service) Ledger(ctx context.Context, agentID uuid.UUID) (*LedgerDTO, error) {
	agent, err := s.agents.FindByID(ctx, agentID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "agent not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "load agent")
	}

	rows, err := s.earnings.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "list earnings")
	}
	total, err := s.earnings.SumByAgent(ctx, agentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "sum earnings")
	}

	return &LedgerDTO{
		Entries:             FromModels(rows),
		TotalCents:          total,
		PeriodEarningsCents: agent.PeriodEarningsCents,
		GuaranteeCents:      agent.GuaranteeCents,
	}, nil
}
