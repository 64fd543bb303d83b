package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
)

// Repository exposes delivery order and job persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new order row.
func (r *Repository) Create(ctx context.Context, order *models.DeliveryOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID loads an order by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListPendingUnassigned returns claimable orders, oldest first.
func (r *Repository) ListPendingUnassigned(ctx context.Context) ([]models.DeliveryOrder, error) {
	var rows []models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("status = ? AND assigned_agent_id IS NULL", enums.OrderStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// CountPendingUnassigned counts claimable orders.
func (r *Repository) CountPendingUnassigned(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("status = ? AND assigned_agent_id IS NULL", enums.OrderStatusPending).
		Count(&count).Error
	return count, err
}

// FindActiveByCustomer returns the customer's newest non-terminal order.
func (r *Repository) FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*models.DeliveryOrder, error) {
	var order models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status NOT IN ?", customerID,
			[]enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}).
		Order("created_at DESC").
		Order("id DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListAssignedUndelivered returns orders claimed but not yet terminal.
func (r *Repository) ListAssignedUndelivered(ctx context.Context) ([]models.DeliveryOrder, error) {
	var rows []models.DeliveryOrder
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.OrderStatus{
			enums.OrderStatusAssigned,
			enums.OrderStatusPickedUp,
			enums.OrderStatusInTransit,
		}).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// Claim atomically assigns a pending, unclaimed order to the agent. Returns
// false when another caller already claimed it.
func (r *Repository) Claim(ctx context.Context, orderID, agentID uuid.UUID, batchID *uuid.UUID, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":            enums.OrderStatusAssigned,
		"assigned_agent_id": agentID,
		"assigned_at":       at,
	}
	if batchID != nil {
		updates["batch_id"] = *batchID
	}
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("id = ? AND status = ? AND assigned_agent_id IS NULL", orderID, enums.OrderStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Transition moves the order between two statuses, guarded on the source
// status and owning agent. Returns false when the guard does not hold.
func (r *Repository) Transition(ctx context.Context, orderID, agentID uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	switch to {
	case enums.OrderStatusPickedUp:
		updates["picked_up_at"] = at
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = at
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("id = ? AND status = ? AND assigned_agent_id = ?", orderID, from, agentID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CancelPending cancels an order still waiting for assignment.
func (r *Repository) CancelPending(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CancelAssigned cancels a claimed order and releases the claim fields.
func (r *Repository) CancelAssigned(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.DeliveryOrder{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusAssigned).
		Updates(map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreateJob inserts a new delivery job row.
func (r *Repository) CreateJob(ctx context.Context, job *models.DeliveryJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// FindJobByID loads a job by its UUID.
func (r *Repository) FindJobByID(ctx context.Context, id uuid.UUID) (*models.DeliveryJob, error) {
	var job models.DeliveryJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindLiveJobByOrder returns the non-terminal job attached to an order.
func (r *Repository) FindLiveJobByOrder(ctx context.Context, orderID uuid.UUID) (*models.DeliveryJob, error) {
	var job models.DeliveryJob
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status NOT IN ?", orderID,
			[]enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindLiveJobByAgent returns the agent's non-terminal job.
func (r *Repository) FindLiveJobByAgent(ctx context.Context, agentID uuid.UUID) (*models.DeliveryJob, error) {
	var job models.DeliveryJob
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND status NOT IN ?", agentID,
			[]enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CountLiveJobsByAgent counts the agent's non-terminal jobs.
func (r *Repository) CountLiveJobsByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryJob{}).
		Where("agent_id = ? AND status NOT IN ?", agentID,
			[]enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}).
		Count(&count).Error
	return count, err
}

// UpdateJobStatus mirrors an order transition onto its job.
func (r *Repository) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status enums.OrderStatus, completedAt *time.Time) error {
	updates := map[string]any{"status": status}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.DeliveryJob{}).
		Where("id = ?", jobID).
		Updates(updates).Error
}

// ListDeliveredJobFeesByAgent returns delivery fees of the agent's completed
// jobs normalized against order fees, oldest first. Used by the scorer's
// history window.
func (r *Repository) ListDeliveredJobFeesByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]int64, error) {
	var fees []int64
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryJob{}).
		Select("delivery_orders.delivery_fee_cents").
		Joins("JOIN delivery_orders ON delivery_orders.id = delivery_jobs.order_id").
		Where("delivery_jobs.agent_id = ? AND delivery_jobs.status = ?", agentID, enums.OrderStatusDelivered).
		Order("delivery_jobs.completed_at DESC").
		Limit(limit).
		Scan(&fees).Error
	return fees, err
}
