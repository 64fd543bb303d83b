package payouts

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/forkfleet/forkfleet-backend/internal/agents"
	"github.com/forkfleet/forkfleet-backend/internal/cron"
	"github.com/forkfleet/forkfleet-backend/internal/earnings"
	"github.com/forkfleet/forkfleet-backend/pkg/db"
	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	apperrors "github.com/forkfleet/forkfleet-backend/pkg/errors"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/outbox"
)

// lockWaitInterval paces retries while another finalize run holds the lock.
const lockWaitInterval = 500 * time.Millisecond

// FinalizeResult totals one settlement pass.
type FinalizeResult struct {
	RunID          uuid.UUID `json:"run_id"`
	AgentsSettled  int       `json:"agents_settled"`
	TopUps         int       `json:"top_ups"`
	TopUpCents     int64     `json:"top_up_cents"`
	EarningsMarked int       `json:"earnings_marked"`
}

// Service settles agent guarantee periods.
type Service interface {
	Finalize(ctx context.Context) (*FinalizeResult, error)
}

// Params wires the payout service dependencies.
type Params struct {
	DB       *db.Client
	Agents   *agents.Repository
	Earnings *earnings.Repository
	Outbox   *outbox.Service
	Lock     cron.Lock
	Logg     *logger.Logger
}

type service struct {
	db       *db.Client
	agents   *agents.Repository
	earnings *earnings.Repository
	outbox   *outbox.Service
	lock     cron.Lock
	logg     *logger.Logger
}

// NewService validates dependencies and builds the payout service.
func NewService(p Params) (Service, error) {
	if p.DB == nil {
		return nil, stderrors.New("payouts service requires a db client")
	}
	if p.Agents == nil || p.Earnings == nil {
		return nil, stderrors.New("payouts service requires repositories")
	}
	if p.Outbox == nil {
		return nil, stderrors.New("payouts service requires an outbox")
	}
	if p.Lock == nil {
		return nil, stderrors.New("payouts service requires a settlement lock")
	}
	return &service{
		db:       p.DB,
		agents:   p.Agents,
		earnings: p.Earnings,
		outbox:   p.Outbox,
		lock:     p.Lock,
		logg:     p.Logg,
	}, nil
}

type payoutEventPayload struct {
	RunID          uuid.UUID `json:"runId"`
	AgentsSettled  int       `json:"agentsSettled"`
	TopUps         int       `json:"topUps"`
	TopUpCents     int64     `json:"topUpCents"`
	EarningsMarked int       `json:"earningsMarked"`
}

// Finalize settles every agent with an open period. Concurrent callers wait
// on the settlement lock; whoever runs second finds the periods already
// settled and reports a no-op.
func (s *service) Finalize(ctx context.Context) (*FinalizeResult, error) {
	if err := s.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("release settlement lock: %v", err))
		}
	}()

	open, err := s.agents.ListUnsettled(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "list unsettled agents")
	}

	result := &FinalizeResult{RunID: uuid.New()}
	var agentErrs error
	for i := range open {
		if err := s.settleAgent(ctx, &open[i], result); err != nil {
			agentErrs = multierr.Append(agentErrs, fmt.Errorf("agent %s: %w", open[i].ID, err))
		}
	}

	if err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutsFinalized,
			AggregateType: enums.AggregatePayoutRun,
			AggregateID:   result.RunID,
			Data: payoutEventPayload{
				RunID:          result.RunID,
				AgentsSettled:  result.AgentsSettled,
				TopUps:         result.TopUps,
				TopUpCents:     result.TopUpCents,
				EarningsMarked: result.EarningsMarked,
			},
			Version: 1,
		})
	}); err != nil {
		agentErrs = multierr.Append(agentErrs, err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"run_id":          result.RunID.String(),
			"agents_settled":  result.AgentsSettled,
			"top_ups":         result.TopUps,
			"top_up_cents":    result.TopUpCents,
			"earnings_marked": result.EarningsMarked,
		})
		s.logg.Info(logCtx, "payout finalization completed")
	}

	if agentErrs != nil {
		return result, apperrors.Wrap(apperrors.CodeInternal, agentErrs, "finalize payouts")
	}
	return result, nil
}

// settleAgent runs one agent's settlement in its own transaction so a
// failure never poisons the rest of the pass.
func (s *service) settleAgent(ctx context.Context, agent *models.Agent, result *FinalizeResult) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		agentsTx := s.agents.WithTx(tx)
		earningsTx := s.earnings.WithTx(tx)
		now := time.Now()

		unpaid, err := earningsTx.ListUnpaidByAgent(ctx, agent.ID)
		if err != nil {
			return fmt.Errorf("list unpaid earnings: %w", err)
		}

		earned := decimal.Zero
		ids := make([]uuid.UUID, 0, len(unpaid))
		for i := range unpaid {
			earned = earned.Add(decimal.NewFromInt(unpaid[i].AmountCents))
			ids = append(ids, unpaid[i].ID)
		}

		shortfall := decimal.NewFromInt(agent.GuaranteeCents).Sub(earned)
		if shortfall.IsPositive() {
			topUp := &models.Earning{
				ID:          uuid.New(),
				AgentID:     agent.ID,
				AmountCents: shortfall.IntPart(),
				Type:        enums.EarningTypeGuaranteeTopup,
				PaidOut:     true,
				PaidAt:      &now,
			}
			if err := earningsTx.Insert(ctx, topUp); err != nil {
				return fmt.Errorf("insert guarantee top-up: %w", err)
			}
			result.TopUps++
			result.TopUpCents += topUp.AmountCents
		}

		if len(ids) > 0 {
			if err := earningsTx.MarkPaidOut(ctx, ids, now); err != nil {
				return fmt.Errorf("mark earnings paid: %w", err)
			}
			result.EarningsMarked += len(ids)
		}

		if err := agentsTx.MarkPeriodSettled(ctx, agent.ID); err != nil {
			return fmt.Errorf("settle period: %w", err)
		}
		result.AgentsSettled++
		return nil
	})
}

// acquireLock blocks until the settlement lock is free or ctx expires.
func (s *service) acquireLock(ctx context.Context) error {
	for {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeTransient, err, "acquire settlement lock")
		}
		if acquired {
			return nil
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.CodeTransient, ctx.Err(), "waiting for settlement lock")
		case <-time.After(lockWaitInterval):
		}
	}
}
