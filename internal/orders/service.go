package orders

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfleet/forkfleet-backend/internal/agents"
	"github.com/forkfleet/forkfleet-backend/internal/earnings"
	"github.com/forkfleet/forkfleet-backend/internal/scoring"
	"github.com/forkfleet/forkfleet-backend/pkg/config"
	"github.com/forkfleet/forkfleet-backend/pkg/db"
	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	apperrors "github.com/forkfleet/forkfleet-backend/pkg/errors"
	"github.com/forkfleet/forkfleet-backend/pkg/logger"
	"github.com/forkfleet/forkfleet-backend/pkg/outbox"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// DeliveryReceipt is returned by Deliver. Replays of an already delivered
// order return the original receipt.
type DeliveryReceipt struct {
	Order       *OrderDTO `json:"order"`
	EarningID   uuid.UUID `json:"earning_id"`
	EarnedCents int64     `json:"earned_cents"`
	AlreadyDone bool      `json:"-"`
}

// Service drives the order lifecycle from checkout through delivery.
type Service interface {
	Create(ctx context.Context, customerID uuid.UUID, req CreateOrderRequest) (*OrderDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	ListAvailable(ctx context.Context) ([]OrderDTO, error)
	ActiveOrder(ctx context.Context, customerID uuid.UUID) (*OrderDTO, error)
	Accept(ctx context.Context, orderID, agentID uuid.UUID) (*JobDTO, error)
	Assign(ctx context.Context, orderID, agentID, batchID uuid.UUID, assessment scoring.Assessment) (*JobDTO, error)
	Pickup(ctx context.Context, orderID, agentID uuid.UUID) (*OrderDTO, error)
	StartTransit(ctx context.Context, orderID, agentID uuid.UUID) (*OrderDTO, error)
	Deliver(ctx context.Context, orderID, agentID uuid.UUID) (*DeliveryReceipt, error)
	Cancel(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDTO, error)
	CurrentJob(ctx context.Context, agentID uuid.UUID) (*JobDTO, error)
}

// Params wires the order service dependencies.
type Params struct {
	DB       *db.Client
	Orders   *Repository
	Agents   *agents.Repository
	Earnings *earnings.Repository
	Scorer   *scoring.Scorer
	Outbox   *outbox.Service
	Pricing  config.PricingConfig
	Dispatch config.DispatchConfig
	Logg     *logger.Logger
}

type service struct {
	db       *db.Client
	orders   *Repository
	agents   *agents.Repository
	earnings *earnings.Repository
	scorer   *scoring.Scorer
	outbox   *outbox.Service
	pricing  config.PricingConfig
	dispatch config.DispatchConfig
	logg     *logger.Logger
}

// NewService validates dependencies and builds the order service.
func NewService(p Params) (Service, error) {
	if p.DB == nil {
		return nil, stderrors.New("orders service requires a db client")
	}
	if p.Orders == nil || p.Agents == nil || p.Earnings == nil {
		return nil, stderrors.New("orders service requires repositories")
	}
	if p.Scorer == nil {
		return nil, stderrors.New("orders service requires a scorer")
	}
	if p.Outbox == nil {
		return nil, stderrors.New("orders service requires an outbox")
	}
	return &service{
		db:       p.DB,
		orders:   p.Orders,
		agents:   p.Agents,
		earnings: p.Earnings,
		scorer:   p.Scorer,
		outbox:   p.Outbox,
		pricing:  p.Pricing,
		dispatch: p.Dispatch,
		logg:     p.Logg,
	}, nil
}

type orderEventPayload struct {
	OrderID          uuid.UUID  `json:"orderId"`
	CustomerID       uuid.UUID  `json:"customerId"`
	AgentID          *uuid.UUID `json:"agentId,omitempty"`
	BatchID          *uuid.UUID `json:"batchId,omitempty"`
	Status           string     `json:"status"`
	DeliveryFeeCents int64      `json:"deliveryFeeCents"`
}

func (s *service) Create(ctx context.Context, customerID uuid.UUID, req CreateOrderRequest) (*OrderDTO, error) {
	pickup := types.GeographyPoint{Lat: req.PickupLat, Lng: req.PickupLng}
	dropoff := types.GeographyPoint{Lat: req.DropoffLat, Lng: req.DropoffLng}

	order := &models.DeliveryOrder{
		ID:               uuid.New(),
		CustomerID:       customerID,
		RestaurantName:   req.RestaurantName,
		Pickup:           pickup,
		DropoffAddress:   req.DropoffAddress,
		Dropoff:          dropoff,
		AmountCents:      req.AmountCents,
		DeliveryFeeCents: DeliveryFeeCents(s.pricing, pickup, dropoff),
		Status:           enums.OrderStatusPending,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
			Data: orderEventPayload{
				OrderID:          order.ID,
				CustomerID:       customerID,
				Status:           string(order.Status),
				DeliveryFeeCents: order.DeliveryFeeCents,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "order created")
	}
	return OrderFromModel(order), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "load order")
	}
	return OrderFromModel(order), nil
}

func (s *service) ListAvailable(ctx context.Context) ([]OrderDTO, error) {
	rows, err := s.orders.ListPendingUnassigned(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "list pending orders")
	}
	return OrdersFromModels(rows), nil
}

func (s *service) ActiveOrder(ctx context.Context, customerID uuid.UUID) (*OrderDTO, error) {
	order, err := s.orders.FindActiveByCustomer(ctx, customerID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "no active order")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "load active order")
	}
	return OrderFromModel(order), nil
}

func (s *service) CurrentJob(ctx context.Context, agentID uuid.UUID) (*JobDTO, error) {
	job, err := s.orders.FindLiveJobByAgent(ctx, agentID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "no active job")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "load current job")
	}
	return JobFromModel(job), nil
}

// Accept claims a pending order on behalf of an agent. The order claim and
// the agent slot are both compare-and-swap updates inside one transaction,
// so two racing acceptances produce exactly one job.
func (s *service) Accept(ctx context.Context, orderID, agentID uuid.UUID) (*JobDTO, error) {
	return s.assign(ctx, orderID, agentID, nil, nil)
}

// Assign is Accept for the batch scheduler: the assessment was computed
// against the batch snapshot and the job records the batch it came from.
func (s *service) Assign(ctx context.Context, orderID, agentID, batchID uuid.UUID, assessment scoring.Assessment) (*JobDTO, error) {
	return s.assign(ctx, orderID, agentID, &batchID, &assessment)
}

func (s *service) assign(ctx context.Context, orderID, agentID uuid.UUID, batchID *uuid.UUID, precomputed *scoring.Assessment) (*JobDTO, error) {
	var job *models.DeliveryJob

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		agentsTx := s.agents.WithTx(tx)
		now := time.Now()

		agent, err := agentsTx.FindByID(ctx, agentID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "agent not found")
			}
			return apperrors.Wrap(apperrors.CodeInternal, err, "load agent")
		}

		claimed, err := ordersTx.Claim(ctx, orderID, agentID, batchID, now)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "claim order")
		}
		if !claimed {
			existing, err := s.resolveFailedClaim(ctx, ordersTx, orderID, agentID)
			if err != nil {
				return err
			}
			job = existing
			return nil
		}

		order, err := ordersTx.FindByID(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "load order")
		}

		jobID := uuid.New()
		slotTaken, err := agentsTx.ClaimSlot(ctx, agentID, jobID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "claim agent slot")
		}
		if !slotTaken {
			return s.slotConflict(ctx, ordersTx, agent)
		}

		assessment, err := s.assess(ctx, ordersTx, order, agent, precomputed)
		if err != nil {
			return err
		}

		job = &models.DeliveryJob{
			ID:              jobID,
			OrderID:         order.ID,
			AgentID:         agentID,
			Pickup:          order.Pickup,
			Dropoff:         order.Dropoff,
			ETAMinutes:      TravelETAMinutes(s.dispatch, agent.Location, order.Pickup, order.Dropoff),
			AssignmentScore: assessment.Value,
			GMean:           assessment.GMean,
			GVar:            assessment.GVar,
			Status:          enums.OrderStatusAssigned,
		}
		if err := ordersTx.CreateJob(ctx, job); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "create job")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: agent.UserID, AgentID: &agentID, Role: string(enums.UserRoleAgent)},
			Data: orderEventPayload{
				OrderID:          order.ID,
				CustomerID:       order.CustomerID,
				AgentID:          &agentID,
				BatchID:          batchID,
				Status:           string(enums.OrderStatusAssigned),
				DeliveryFeeCents: order.DeliveryFeeCents,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": orderID.String(),
			"agent_id": agentID.String(),
			"job_id":   job.ID.String(),
		})
		s.logg.Info(logCtx, "order assigned")
	}
	return JobFromModel(job), nil
}

// resolveFailedClaim decides why the claim CAS did not land. A re-accept by
// the agent already holding the order is answered with the existing job.
func (s *service) resolveFailedClaim(ctx context.Context, ordersTx *Repository, orderID, agentID uuid.UUID) (*models.DeliveryJob, error) {
	order, err := ordersTx.FindByID(ctx, orderID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "load order")
	}
	if order.AssignedAgentID != nil && *order.AssignedAgentID == agentID && order.Status == enums.OrderStatusAssigned {
		job, err := ordersTx.FindLiveJobByOrder(ctx, orderID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeIntegrity, err, "assigned order has no live job")
		}
		return job, nil
	}
	if order.Status.IsTerminal() {
		return nil, apperrors.New(apperrors.CodeStateConflict, "order is closed")
	}
	return nil, apperrors.New(apperrors.CodeConflict, "order already claimed")
}

// slotConflict classifies a failed agent slot claim. A slot pointing at a
// finished job means a previous delivery did not release it.
func (s *service) slotConflict(ctx context.Context, ordersTx *Repository, agent *models.Agent) error {
	if agent.CurrentJobID == nil {
		// Another transaction took the slot between our read and the update.
		return apperrors.New(apperrors.CodeConflict, "agent already has an active job")
	}
	held, err := ordersTx.FindJobByID(ctx, *agent.CurrentJobID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeIntegrity, "agent slot references a missing job")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "load held job")
	}
	if held.Status.IsTerminal() {
		return apperrors.New(apperrors.CodeIntegrity, "agent slot references a finished job")
	}
	return apperrors.New(apperrors.CodeConflict, "agent already has an active job")
}

func (s *service) assess(ctx context.Context, ordersTx *Repository, order *models.DeliveryOrder, agent *models.Agent, precomputed *scoring.Assessment) (scoring.Assessment, error) {
	if precomputed != nil {
		return *precomputed, nil
	}
	fees, err := ordersTx.ListDeliveredJobFeesByAgent(ctx, agent.ID, 20)
	if err != nil {
		return scoring.Assessment{}, apperrors.Wrap(apperrors.CodeInternal, err, "load earnings history")
	}
	assessment, err := s.scorer.Score(order, agent, fees)
	if err != nil {
		return scoring.Assessment{}, apperrors.Wrap(apperrors.CodeInternal, err, "score assignment")
	}
	return assessment, nil
}

func (s *service) Pickup(ctx context.Context, orderID, agentID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, agentID, enums.OrderStatusAssigned, enums.OrderStatusPickedUp)
}

func (s *service) StartTransit(ctx context.Context, orderID, agentID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, agentID, enums.OrderStatusPickedUp, enums.OrderStatusInTransit)
}

func (s *service) transition(ctx context.Context, orderID, agentID uuid.UUID, from, to enums.OrderStatus) (*OrderDTO, error) {
	var updated *models.DeliveryOrder

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		now := time.Now()

		moved, err := ordersTx.Transition(ctx, orderID, agentID, from, to, now)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "update order status")
		}
		if !moved {
			return s.transitionConflict(ctx, ordersTx, orderID, agentID, from)
		}

		job, err := ordersTx.FindLiveJobByOrder(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeIntegrity, err, "active order has no live job")
		}
		if err := ordersTx.UpdateJobStatus(ctx, job.ID, to, nil); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "update job status")
		}

		updated, err = ordersTx.FindByID(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "load order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return OrderFromModel(updated), nil
}

func (s *service) transitionConflict(ctx context.Context, ordersTx *Repository, orderID, agentID uuid.UUID, from enums.OrderStatus) error {
	order, err := ordersTx.FindByID(ctx, orderID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "load order")
	}
	if order.AssignedAgentID == nil || *order.AssignedAgentID != agentID {
		return apperrors.New(apperrors.CodeForbidden, "order belongs to another agent")
	}
	return apperrors.New(apperrors.CodeStateConflict, "order is not in the required state").
		WithDetails(map[string]any{"status": string(order.Status), "expected": string(from)})
}

// Deliver completes the job, records the earning, and frees the agent slot.
// Replaying a delivered order returns the original earning instead of
// paying twice.
func (s *service) Deliver(ctx context.Context, orderID, agentID uuid.UUID) (*DeliveryReceipt, error) {
	var receipt *DeliveryReceipt

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		agentsTx := s.agents.WithTx(tx)
		earningsTx := s.earnings.WithTx(tx)
		now := time.Now()

		moved, err := ordersTx.Transition(ctx, orderID, agentID, enums.OrderStatusInTransit, enums.OrderStatusDelivered, now)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "update order status")
		}
		if !moved {
			replay, err := s.resolveDeliverReplay(ctx, ordersTx, earningsTx, orderID, agentID)
			if err != nil {
				return err
			}
			receipt = replay
			return nil
		}

		order, err := ordersTx.FindByID(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "load order")
		}
		job, err := ordersTx.FindLiveJobByOrder(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeIntegrity, err, "delivered order has no live job")
		}
		if err := ordersTx.UpdateJobStatus(ctx, job.ID, enums.OrderStatusDelivered, &now); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "complete job")
		}

		earning := &models.Earning{
			ID:          uuid.New(),
			AgentID:     agentID,
			OrderID:     &order.ID,
			AmountCents: order.DeliveryFeeCents,
			Type:        enums.EarningTypeDelivery,
		}
		if err := earningsTx.Insert(ctx, earning); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "record earning")
		}
		if err := agentsTx.AddPeriodEarnings(ctx, agentID, order.DeliveryFeeCents); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "update period earnings")
		}
		if err := agentsTx.FreeSlot(ctx, agentID, job.ID); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "free agent slot")
		}

		agent, err := agentsTx.FindByID(ctx, agentID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "load agent")
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: agent.UserID, AgentID: &agentID, Role: string(enums.UserRoleAgent)},
			Data: orderEventPayload{
				OrderID:          order.ID,
				CustomerID:       order.CustomerID,
				AgentID:          &agentID,
				BatchID:          order.BatchID,
				Status:           string(enums.OrderStatusDelivered),
				DeliveryFeeCents: order.DeliveryFeeCents,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		receipt = &DeliveryReceipt{
			Order:       OrderFromModel(order),
			EarningID:   earning.ID,
			EarnedCents: earning.AmountCents,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && !receipt.AlreadyDone {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": orderID.String(),
			"agent_id": agentID.String(),
		})
		s.logg.Info(logCtx, "order delivered")
	}
	return receipt, nil
}

func (s *service) resolveDeliverReplay(ctx context.Context, ordersTx *Repository, earningsTx *earnings.Repository, orderID, agentID uuid.UUID) (*DeliveryReceipt, error) {
	order, err := ordersTx.FindByID(ctx, orderID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "load order")
	}
	if order.AssignedAgentID == nil || *order.AssignedAgentID != agentID {
		return nil, apperrors.New(apperrors.CodeForbidden, "order belongs to another agent")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, apperrors.New(apperrors.CodeStateConflict, "order is not in the required state").
			WithDetails(map[string]any{"status": string(order.Status), "expected": string(enums.OrderStatusInTransit)})
	}
	earning, err := earningsTx.FindByAgentAndOrder(ctx, agentID, orderID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIntegrity, err, "delivered order has no earning")
	}
	return &DeliveryReceipt{
		Order:       OrderFromModel(order),
		EarningID:   earning.ID,
		EarnedCents: earning.AmountCents,
		AlreadyDone: true,
	}, nil
}

// Cancel closes an order that has not been picked up yet. Assigned orders
// also release the agent slot and cancel the job.
func (s *service) Cancel(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDTO, error) {
	var updated *models.DeliveryOrder

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ordersTx := s.orders.WithTx(tx)
		agentsTx := s.agents.WithTx(tx)
		now := time.Now()

		order, err := ordersTx.FindByID(ctx, orderID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "order not found")
			}
			return apperrors.Wrap(apperrors.CodeInternal, err, "load order")
		}
		if order.CustomerID != customerID {
			return apperrors.New(apperrors.CodeForbidden, "order belongs to another customer")
		}

		switch order.Status {
		case enums.OrderStatusPending:
			cancelled, err := ordersTx.CancelPending(ctx, orderID, now)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "cancel order")
			}
			if !cancelled {
				return apperrors.New(apperrors.CodeConflict, "order changed state during cancellation")
			}
		case enums.OrderStatusAssigned:
			cancelled, err := ordersTx.CancelAssigned(ctx, orderID, now)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "cancel order")
			}
			if !cancelled {
				return apperrors.New(apperrors.CodeConflict, "order changed state during cancellation")
			}
			job, err := ordersTx.FindLiveJobByOrder(ctx, orderID)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeIntegrity, err, "assigned order has no live job")
			}
			if err := ordersTx.UpdateJobStatus(ctx, job.ID, enums.OrderStatusCancelled, &now); err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "cancel job")
			}
			if err := agentsTx.FreeSlot(ctx, job.AgentID, job.ID); err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "free agent slot")
			}
		default:
			return apperrors.New(apperrors.CodeStateConflict, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": string(order.Status)})
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: customerID, Role: string(enums.UserRoleCustomer)},
			Data: orderEventPayload{
				OrderID:          order.ID,
				CustomerID:       order.CustomerID,
				AgentID:          order.AssignedAgentID,
				BatchID:          order.BatchID,
				Status:           string(enums.OrderStatusCancelled),
				DeliveryFeeCents: order.DeliveryFeeCents,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		updated, err = ordersTx.FindByID(ctx, orderID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "load order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, orderID.String())
		s.logg.Info(logCtx, "order cancelled")
	}
	return OrderFromModel(updated), nil
}
