package batch

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfleet/forkfleet-backend/internal/agents"
	"github.com/forkfleet/forkfleet-backend/internal/cron"
	"github.com/forkfleet/forkfleet-backend/internal/orders"
	"github.com/forkfleet/forkfleet-backend/internal/scoring"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db"
	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	apperrors "github.com/forkfleet/forkfleet-backend/pkg/errors"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/metrics"
	"github.com/forkfleet/forkfleet-backend/pkg/outbox"
	"github.com/forkfleet/forkfleet-backend/pkg/pagination"
)

const (
	// TriggerTimer marks runs started by the worker interval.
	TriggerTimer = "timer"
	// TriggerManual marks runs started from the admin surface.
	TriggerManual = "manual"
)

// assigner is the slice of the order service the scheduler commits through.
type assigner interface {
	Assign(ctx context.Context, orderID, agentID, batchID uuid.UUID, assessment scoring.Assessment) (*orders.JobDTO, error)
}

// Service runs the periodic assignment pass over pending orders.
type Service interface {
	Run(ctx context.Context, trigger string) (*RunResult, error)
	CurrentStats(ctx context.Context) (*StatsDTO, error)
	ListWindows(ctx context.Context, params pagination.Params) (*WindowPageDTO, error)
}

// Params wires the batch service dependencies.
type Params struct {
	DB       *db.Client
	Windows  *Repository
	Orders   *orders.Repository
	Agents   *agents.Repository
	Assigner assigner
	Scorer   *scoring.Scorer
	Outbox   *outbox.Service
	Lock     cron.Lock
	Metrics  *metrics.DispatchMetrics
	Dispatch config.DispatchConfig
	Logg     *logger.Logger
}

type service struct {
	db       *db.Client
	windows  *Repository
	orders   *orders.Repository
	agents   *agents.Repository
	assigner assigner
	scorer   *scoring.Scorer
	outbox   *outbox.Service
	lock     cron.Lock
	metrics  *metrics.DispatchMetrics
	dispatch config.DispatchConfig
	logg     *logger.Logger
}

// NewService validates dependencies and builds the scheduler service.
func NewService(p Params) (Service, error) {
	if p.DB == nil {
		return nil, stderrors.New("batch service requires a db client")
	}
	if p.Windows == nil || p.Orders == nil || p.Agents == nil {
		return nil, stderrors.New("batch service requires repositories")
	}
	if p.Assigner == nil {
		return nil, stderrors.New("batch service requires an assigner")
	}
	if p.Scorer == nil {
		return nil, stderrors.New("batch service requires a scorer")
	}
	if p.Outbox == nil {
		return nil, stderrors.New("batch service requires an outbox")
	}
	if p.Lock == nil {
		return nil, stderrors.New("batch service requires a dispatch lock")
	}
	return &service{
		db:       p.DB,
		windows:  p.Windows,
		orders:   p.Orders,
		agents:   p.Agents,
		assigner: p.Assigner,
		scorer:   p.Scorer,
		outbox:   p.Outbox,
		lock:     p.Lock,
		metrics:  p.Metrics,
		dispatch: p.Dispatch,
		logg:     p.Logg,
	}, nil
}

// candidate is one scored order/agent pairing in the greedy queue.
type candidate struct {
	orderIdx   int
	agentIdx   int
	assessment scoring.Assessment
}

type batchEventPayload struct {
	WindowID        uuid.UUID `json:"windowId"`
	BatchID         string    `json:"batchId"`
	Trigger         string    `json:"trigger"`
	TotalOrders     int       `json:"totalOrders"`
	AssignedOrders  int       `json:"assignedOrders"`
	AvailableAgents int       `json:"availableAgents"`
	GuaranteeRatio  float64   `json:"guaranteeRatio"`
}

// Run executes one assignment pass. Concurrent passes are mutually
// exclusive: a held lock turns a manual trigger into CodeConflict and a
// timer trigger into a recorded skip.
func (s *service) Run(ctx context.Context, trigger string) (*RunResult, error) {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeTransient, err, "acquire dispatch lock")
	}
	if !acquired {
		if trigger == TriggerManual {
			return nil, apperrors.New(apperrors.CodeConflict, "an assignment run is already in progress")
		}
		if s.logg != nil {
			s.logg.Info(ctx, "assignment run skipped, lock held elsewhere")
		}
		return &RunResult{Skipped: true}, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil && s.logg != nil {
			s.logg.Warn(ctx, fmt.Sprintf("release dispatch lock: %v", err))
		}
	}()

	if s.dispatch.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.dispatch.RunTimeout)
		defer cancel()
	}

	windowID := uuid.New()
	windowStart := time.Now()

	pending, err := s.orders.ListPendingUnassigned(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "snapshot pending orders")
	}
	pool, err := s.agents.ListOnlineFree(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "snapshot available agents")
	}

	assigned := s.match(ctx, windowID, pending, pool)

	omega, err := s.projectedGuaranteeRatio(ctx)
	if err != nil {
		return nil, err
	}

	window := &models.BatchWindow{
		ID:              windowID,
		BatchID:         batchLabel(windowID, windowStart),
		WindowStart:     windowStart,
		WindowEnd:       time.Now(),
		TotalOrders:     len(pending),
		AssignedOrders:  assigned,
		AvailableAgents: len(pool),
		GuaranteeRatio:  omega,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.windows.WithTx(tx).Create(ctx, window); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "record batch window")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBatchCompleted,
			AggregateType: enums.AggregateBatchWindow,
			AggregateID:   window.ID,
			Data: batchEventPayload{
				WindowID:        window.ID,
				BatchID:         window.BatchID,
				Trigger:         trigger,
				TotalOrders:     window.TotalOrders,
				AssignedOrders:  window.AssignedOrders,
				AvailableAgents: window.AvailableAgents,
				GuaranteeRatio:  window.GuaranteeRatio,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBatch(trigger, window.TotalOrders, window.AssignedOrders, window.GuaranteeRatio)

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"batch_id":         window.BatchID,
			"trigger":          trigger,
			"total_orders":     window.TotalOrders,
			"assigned_orders":  window.AssignedOrders,
			"available_agents": window.AvailableAgents,
		})
		s.logg.Info(logCtx, "assignment run completed")
	}

	return &RunResult{Window: WindowFromModel(window)}, nil
}

// match scores every order/agent pair and commits assignments greedily in
// descending score order. Failed pairs are skipped, never fatal.
func (s *service) match(ctx context.Context, windowID uuid.UUID, pending []models.DeliveryOrder, pool []models.Agent) int {
	if len(pending) == 0 || len(pool) == 0 {
		return 0
	}

	histories := make([][]int64, len(pool))
	for i := range pool {
		fees, err := s.orders.ListDeliveredJobFeesByAgent(ctx, pool[i].ID, 20)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("load fee history for agent %s: %v", pool[i].ID, err))
			}
			continue
		}
		histories[i] = fees
	}

	candidates := make([]candidate, 0, len(pending)*len(pool))
	for oi := range pending {
		for ai := range pool {
			assessment, err := s.scorer.Score(&pending[oi], &pool[ai], histories[ai])
			if err != nil {
				if s.logg != nil {
					s.logg.Warn(ctx, fmt.Sprintf("score order %s against agent %s: %v", pending[oi].ID, pool[ai].ID, err))
				}
				continue
			}
			candidates = append(candidates, candidate{orderIdx: oi, agentIdx: ai, assessment: assessment})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.assessment.Value != b.assessment.Value {
			return a.assessment.Value > b.assessment.Value
		}
		ao, bo := pending[a.orderIdx], pending[b.orderIdx]
		if !ao.CreatedAt.Equal(bo.CreatedAt) {
			return ao.CreatedAt.Before(bo.CreatedAt)
		}
		if ao.ID != bo.ID {
			return ao.ID.String() < bo.ID.String()
		}
		return pool[a.agentIdx].ID.String() < pool[b.agentIdx].ID.String()
	})

	orderTaken := make([]bool, len(pending))
	agentTaken := make([]bool, len(pool))
	assigned := 0

	for _, c := range candidates {
		if orderTaken[c.orderIdx] || agentTaken[c.agentIdx] {
			continue
		}
		order := pending[c.orderIdx]
		agent := pool[c.agentIdx]

		_, err := s.assigner.Assign(ctx, order.ID, agent.ID, windowID, c.assessment)
		if err != nil {
			// Someone raced us on this pair, usually a direct acceptance.
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("assign order %s to agent %s: %v", order.ID, agent.ID, err))
			}
			appErr := apperrors.As(err)
			if appErr != nil && appErr.Code() == apperrors.CodeConflict {
				continue
			}
			if appErr != nil && appErr.Code() == apperrors.CodeStateConflict {
				orderTaken[c.orderIdx] = true
			}
			continue
		}
		orderTaken[c.orderIdx] = true
		agentTaken[c.agentIdx] = true
		assigned++
	}
	return assigned
}

// projectedGuaranteeRatio computes the fraction of online agents whose
// projected earnings meet their guarantee, counting fees of assigned but
// undelivered orders as already earned. The configured scope picks the
// population: every online agent, or only those holding an assignment.
func (s *service) projectedGuaranteeRatio(ctx context.Context) (float64, error) {
	pool, err := s.agents.ListOnline(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "snapshot agent pool")
	}
	open, err := s.orders.ListAssignedUndelivered(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "snapshot open assignments")
	}

	fees := make(map[uuid.UUID]int64, len(open))
	for i := range open {
		if open[i].AssignedAgentID == nil {
			continue
		}
		fees[*open[i].AssignedAgentID] += open[i].DeliveryFeeCents
	}

	projections := make([]scoring.AgentProjection, 0, len(pool))
	for i := range pool {
		pending, held := fees[pool[i].ID]
		projections = append(projections, scoring.AgentProjection{
			ProjectedCents: pool[i].PeriodEarningsCents + pending,
			GuaranteeCents: pool[i].GuaranteeCents,
			Assigned:       held,
		})
	}
	return scoring.GuaranteeAttainment(projections, s.dispatch.Scope(), s.dispatch.InitialGuaranteeRatio), nil
}

func (s *service) CurrentStats(ctx context.Context) (*StatsDTO, error) {
	pendingCount, err := s.orders.CountPendingUnassigned(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "count pending orders")
	}
	agentCount, err := s.agents.CountOnlineFree(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "count available agents")
	}

	ratio, err := s.projectedGuaranteeRatio(ctx)
	if err != nil {
		return nil, err
	}

	stats := &StatsDTO{
		PendingOrders:   pendingCount,
		AvailableAgents: agentCount,
		GuaranteeRatio:  ratio,
	}

	latest, err := s.windows.Latest(ctx)
	switch {
	case err == nil:
		stats.LastWindow = WindowFromModel(latest)
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		// No runs yet.
	default:
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "load latest batch window")
	}
	return stats, nil
}

func (s *service) ListWindows(ctx context.Context, params pagination.Params) (*WindowPageDTO, error) {
	rows, err := s.windows.List(ctx, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "list batch windows")
	}
	page := WindowPage(rows, params.Limit)
	return &page, nil
}

// batchLabel builds the human readable run identifier.
func batchLabel(id uuid.UUID, start time.Time) string {
	return fmt.Sprintf("bw-%s-%s", start.UTC().Format("20060102T150405"), id.String()[:8])
}
