package earnings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/enums"
)

// Repository exposes the earnings ledger persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an earnings repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Insert appends a ledger row.
func (r *Repository) Insert(ctx context.Context, earning *models.Earning) error {
	return r.db.WithContext(ctx).Create(earning).Error
}

// FindByAgentAndOrder returns the delivery earning recorded for the pair, if any.
func (r *Repository) FindByAgentAndOrder(ctx context.Context, agentID, orderID uuid.UUID) (*models.Earning, error) {
	var earning models.Earning
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND order_id = ? AND type = ?", agentID, orderID, enums.EarningTypeDelivery).
		First(&earning).Error
	if err != nil {
		return nil, err
	}
	return &earning, nil
}

// ListByAgent returns the agent's ledger, newest first.
func (r *Repository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Earning, error) {
	var rows []models.Earning
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// ListUnpaidByAgent returns the agent's rows not yet paid out, oldest first.
func (r *Repository) ListUnpaidByAgent(ctx context.Context, agentID uuid.UUID) ([]models.Earning, error) {
	var rows []models.Earning
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND paid_out = ?", agentID, false).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// MarkPaidOut flips the given rows to paid. paid_out only moves false to true.
func (r *Repository) MarkPaidOut(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("id IN ? AND paid_out = ?", ids, false).
		Updates(map[string]any{
			"paid_out": true,
			"paid_at":  at,
		}).Error
}

// SumByAgent totals the agent's ledger regardless of payout state.
func (r *Repository) SumByAgent(ctx context.Context, agentID uuid.UUID) (int64, error) {
	var total *int64
	err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Select("SUM(amount_cents)").
		Where("agent_id = ?", agentID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
