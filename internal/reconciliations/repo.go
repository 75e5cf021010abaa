package reconciliations

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tallyops/stockcount-backend/pkg/db/models"
	"github.com/tallyops/stockcount-backend/pkg/enums"
	"github.com/tallyops/stockcount-backend/pkg/pagination"
)

// Repository defines persistence operations for reconciliation tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, rec *models.StockReconciliation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error)
	FindHeader(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error)
	List(ctx context.Context, params listParams) ([]models.StockReconciliation, *pagination.Cursor, error)
	ReplaceItems(ctx context.Context, reconciliationID uuid.UUID, items []models.ReconciliationItem) error
	// UpdateIfStatus applies updates only when the row still holds one of the
	// expected statuses. Zero rows affected means the transition was lost.
	UpdateIfStatus(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error)
	DeleteIfStatus(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository builds a reconciliations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	Status *enums.ReconciliationStatus
	Search string
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, rec *models.StockReconciliation) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
	var rec models.StockReconciliation
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repositoryImpl) FindHeader(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
	var rec models.StockReconciliation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.StockReconciliation, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.StockReconciliation{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(title) LIKE ?", pattern)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.StockReconciliation
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

func (r *repositoryImpl) ReplaceItems(ctx context.Context, reconciliationID uuid.UUID, items []models.ReconciliationItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("reconciliation_id = ?", reconciliationID).
		Delete(&models.ReconciliationItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *repositoryImpl) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StockReconciliation{}).
		Where("id = ? AND status IN ?", id, expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) DeleteIfStatus(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, expected).
		Delete(&models.StockReconciliation{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, nil
	}
	if err := r.db.WithContext(ctx).
		Where("reconciliation_id = ?", id).
		Delete(&models.ReconciliationItem{}).Error; err != nil {
		return result.RowsAffected, err
	}
	return result.RowsAffected, nil
}
