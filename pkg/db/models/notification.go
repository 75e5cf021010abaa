package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tallyops/stockcount-backend/pkg/enums"
)

// Notification is an in-app message about a reconciliation transition.
type Notification struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Type             enums.NotificationType `gorm:"column:type;type:text;not null"`
	ReconciliationID uuid.UUID              `gorm:"column:reconciliation_id;type:uuid;not null"`
	Title            string                 `gorm:"column:title;not null"`
	Body             string                 `gorm:"column:body;not null"`
	ReadAt           *time.Time             `gorm:"column:read_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}
