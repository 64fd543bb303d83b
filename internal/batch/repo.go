package batch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkfleet/forkfleet-backend/pkg/db/models"
	"github.com/forkfleet/forkfleet-backend/pkg/pagination"
)

// Repository persists append-only batch window records.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create appends one batch window row.
func (r *Repository) Create(ctx context.Context, window *models.BatchWindow) error {
	return r.db.WithContext(ctx).Create(window).Error
}

// FindByID loads a window by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BatchWindow, error) {
	var window models.BatchWindow
	if err := r.db.WithContext(ctx).First(&window, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &window, nil
}

// Latest returns the most recent window.
func (r *Repository) Latest(ctx context.Context) (*models.BatchWindow, error) {
	var window models.BatchWindow
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		First(&window).Error
	if err != nil {
		return nil, err
	}
	return &window, nil
}

// List pages through windows newest first using a created_at cursor.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.BatchWindow, error) {
	query := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.BatchWindow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
