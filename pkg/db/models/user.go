package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkfleet/forkfleet-backend/pkg/enums"
	"github.com/forkfleet/forkfleet-backend/pkg/types"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Username     string               `gorm:"type:text;not null;uniqueIndex"`
	Email        string               `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string               `gorm:"column:password_hash;not null"`
	Role         enums.UserRole       `gorm:"column:role;type:text;not null"`
	Address      *string              `gorm:"column:address"`
	Location     types.GeographyPoint `gorm:"column:location;type:geography(Point,4326)"`
	LastLoginAt  *time.Time           `gorm:"column:last_login_at"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
