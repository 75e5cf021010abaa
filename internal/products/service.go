package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tallyops/stockcount-backend/pkg/authz"
	dbpkg "github.com/tallyops/stockcount-backend/pkg/db"
	"github.com/tallyops/stockcount-backend/pkg/db/models"
	pkgerrors "github.com/tallyops/stockcount-backend/pkg/errors"
	"github.com/tallyops/stockcount-backend/pkg/pagination"
)

// Service defines catalog operations needed by the counting workflow.
type Service interface {
	Create(ctx context.Context, caller authz.Caller, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, caller authz.Caller, params ListParams) (*ListResult, error)
	SnapshotByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type service struct {
	repo Repository
}

// NewService wires catalog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, caller authz.Caller, input CreateProductInput) (*models.Product, error) {
	if !authz.CanCreate(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage products")
	}
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
	}

	product := models.Product{
		ID:          uuid.New(),
		SKU:         sku,
		Name:        name,
		Description: input.Description,
		UnitCost:    input.UnitCost,
		Price:       input.Price,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, &product); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_products_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return &product, nil
}

func (s *service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if !authz.CanCreate(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage products")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.UnitCost != nil {
		if input.UnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
		}
		updates["unit_cost"] = *input.UnitCost
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = *input.Price
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	affected, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.Get(ctx, caller, id)
}

func (s *service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Product, error) {
	if !authz.CanCreate(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot view products")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, caller authz.Caller, params ListParams) (*ListResult, error) {
	if !authz.CanCreate(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot view products")
	}

	query := listProductsParams{
		Search:     strings.TrimSpace(params.Search),
		ActiveOnly: params.ActiveOnly,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// SnapshotByIDs loads products keyed by id for cost/price snapshots. Callers
// are responsible for verifying every requested id came back.
func (s *service) SnapshotByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	rows, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	return byID, nil
}
