package agents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
)

// Repository exposes agent pool persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an agents repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new agent row.
func (r *Repository) Create(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Create(agent).Error
}

// FindByID loads an agent by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// FindByUserID loads the agent row belonging to a user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).First(&agent, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

// ListOnlineFree returns online agents whose job slot is empty, id-ordered so
// assignment runs see a stable sequence.
func (r *Repository) ListOnlineFree(ctx context.Context) ([]models.Agent, error) {
	var rows []models.Agent
	err := r.db.WithContext(ctx).
		Where("online = ? AND current_job_id IS NULL", true).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListOnline returns every online agent regardless of slot state.
func (r *Repository) ListOnline(ctx context.Context) ([]models.Agent, error) {
	var rows []models.Agent
	err := r.db.WithContext(ctx).
		Where("online = ?", true).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ClaimSlot fills the agent's job slot only when it is empty. Returns false
// when another job already occupies the slot.
func (r *Repository) ClaimSlot(ctx context.Context, agentID, jobID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ? AND current_job_id IS NULL", agentID).
		Update("current_job_id", jobID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FreeSlot clears the agent's job slot only if it still holds the given job.
func (r *Repository) FreeSlot(ctx context.Context, agentID, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ? AND current_job_id = ?", agentID, jobID).
		Update("current_job_id", nil).Error
}

// AddPeriodEarnings bumps the agent's running period total and reopens the
// period for settlement.
func (r *Repository) AddPeriodEarnings(ctx context.Context, agentID uuid.UUID, amountCents int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", agentID).
		Updates(map[string]any{
			"period_earnings_cents": gorm.Expr("period_earnings_cents + ?", amountCents),
			"period_settled":        false,
		}).Error
}

// ListUnsettled returns agents with an open settlement period.
func (r *Repository) ListUnsettled(ctx context.Context) ([]models.Agent, error) {
	var rows []models.Agent
	err := r.db.WithContext(ctx).
		Where("period_settled = ?", false).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// MarkPeriodSettled closes the agent's settlement period and resets the
// running total so the next period's deficit starts from zero.
func (r *Repository) MarkPeriodSettled(ctx context.Context, agentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", agentID).
		Updates(map[string]any{
			"period_settled":        true,
			"period_earnings_cents": 0,
		}).Error
}

// SetOnline toggles the agent's availability flag.
func (r *Repository) SetOnline(ctx context.Context, agentID uuid.UUID, online bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", agentID).
		Update("online", online).Error
}

// CountOnlineFree counts online agents with an empty job slot.
func (r *Repository) CountOnlineFree(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("online = ? AND current_job_id IS NULL", true).
		Count(&count).Error
	return count, err
}
