package reconciliations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tallyops/stockcount-backend/internal/notifications"
	"github.com/tallyops/stockcount-backend/pkg/authz"
	"github.com/tallyops/stockcount-backend/pkg/db/models"
	"github.com/tallyops/stockcount-backend/pkg/enums"
	pkgerrors "github.com/tallyops/stockcount-backend/pkg/errors"
	"github.com/tallyops/stockcount-backend/pkg/outbox"
	"github.com/tallyops/stockcount-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notificationRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input notifications.RecordInput) error
}

type productCatalog interface {
	SnapshotByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type adminDirectory interface {
	ListActiveAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Service defines the approval workflow operations.
type Service interface {
	Create(ctx context.Context, caller authz.Caller, input CreateInput) (*Detail, error)
	Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Detail, error)
	List(ctx context.Context, caller authz.Caller, params ListParams) (*ListResult, error)
	Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateInput) (*Detail, error)
	Submit(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Detail, error)
	Approve(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Detail, error)
	Reject(ctx context.Context, caller authz.Caller, id uuid.UUID, input RejectInput) (*Detail, error)
	Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	notifier notificationRecorder
	catalog  productCatalog
	admins   adminDirectory
}

// ServiceParams bundles the dependencies for the workflow service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Notifier notificationRecorder
	Catalog  productCatalog
	Admins   adminDirectory
}

// SubmittedEvent is published when a reconciliation enters review.
type SubmittedEvent struct {
	ReconciliationID uuid.UUID       `json:"reconciliation_id"`
	Title            string          `json:"title"`
	CreatedByID      uuid.UUID       `json:"created_by_id"`
	ItemCount        int             `json:"item_count"`
	TotalDiscrepancy int             `json:"total_discrepancy"`
	TotalImpact      decimal.Decimal `json:"total_impact"`
}

// DecidedEvent is published when a pending reconciliation is approved or rejected.
type DecidedEvent struct {
	ReconciliationID uuid.UUID                  `json:"reconciliation_id"`
	Title            string                     `json:"title"`
	CreatedByID      uuid.UUID                  `json:"created_by_id"`
	Status           enums.ReconciliationStatus `json:"status"`
	DecidedByID      uuid.UUID                  `json:"decided_by_id"`
	RejectionReason  *string                    `json:"rejection_reason,omitempty"`
}

// NewService builds the workflow service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reconciliations repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification recorder required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin directory required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		catalog:  params.Catalog,
		admins:   params.Admins,
	}, nil
}

func (s *service) Create(ctx context.Context, caller authz.Caller, input CreateInput) (*Detail, error) {
	if caller.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !authz.CanCreate(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot create reconciliations")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	recID := uuid.New()
	items, err := s.buildItems(ctx, recID, input.Items)
	if err != nil {
		return nil, err
	}

	rec := models.StockReconciliation{
		ID:          recID,
		Title:       title,
		Description: input.Description,
		Notes:       input.Notes,
		Status:      enums.ReconciliationStatusDraft,
		CreatedByID: caller.UserID,
		Items:       items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, &rec); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reconciliation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Detail{Reconciliation: rec, Totals: Rollup(rec.Items)}, nil
}

func (s *service) Get(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Detail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reconciliation id required")
	}
	rec, err := s.load(ctx, s.repo, id, true)
	if err != nil {
		return nil, err
	}
	if !authz.CanAct(caller, authz.ActionView, rec.CreatedByID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot view reconciliations")
	}
	return &Detail{Reconciliation: *rec, Totals: Rollup(rec.Items)}, nil
}

func (s *service) List(ctx context.Context, caller authz.Caller, params ListParams) (*ListResult, error) {
	if !authz.CanAct(caller, authz.ActionView, uuid.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot view reconciliations")
	}

	query := listParams{
		Search: strings.TrimSpace(params.Search),
		Limit:  params.Limit,
	}
	if raw := strings.TrimSpace(params.Status); raw != "" {
		status, err := enums.ParseReconciliationStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reconciliations")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// Update patches header fields and optionally replaces the item set. Editing
// a REJECTED reconciliation returns it to DRAFT and clears the rejection
// reason, so the next submit starts a fresh review cycle.
func (s *service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateInput) (*Detail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reconciliation id required")
	}
	if input.Items != nil && len(*input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	var items []models.ReconciliationItem
	if input.Items != nil {
		built, err := s.buildItems(ctx, id, *input.Items)
		if err != nil {
			return nil, err
		}
		items = built
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.load(ctx, repo, id, false)
		if err != nil {
			return err
		}
		if !authz.CanAct(caller, authz.ActionEdit, rec.CreatedByID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to edit this reconciliation")
		}
		if !rec.Status.Editable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reconciliation is not editable in current state")
		}

		updates := map[string]any{
			"status":           enums.ReconciliationStatusDraft,
			"rejection_reason": nil,
		}
		if input.Title != nil {
			title := strings.TrimSpace(*input.Title)
			if title == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
			}
			updates["title"] = title
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if input.Notes != nil {
			updates["notes"] = *input.Notes
		}

		affected, err := repo.UpdateIfStatus(ctx, id, editableStatuses(), updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reconciliation")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reconciliation already transitioned")
		}

		if input.Items != nil {
			if err := repo.ReplaceItems(ctx, id, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace items")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.detail(ctx, id)
}

func (s *service) Submit(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Detail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reconciliation id required")
	}

	adminIDs, err := s.admins.ListActiveAdminIDs(ctx)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.load(ctx, repo, id, true)
		if err != nil {
			return err
		}
		if !authz.CanAct(caller, authz.ActionSubmit, rec.CreatedByID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to submit this reconciliation")
		}
		if len(rec.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot submit a reconciliation without items")
		}

		now := time.Now().UTC()
		affected, err := repo.UpdateIfStatus(ctx, id,
			[]enums.ReconciliationStatus{enums.ReconciliationStatusDraft},
			map[string]any{
				"status":       enums.ReconciliationStatusPending,
				"submitted_at": now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit reconciliation")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reconciliation is not in draft")
		}

		totals := Rollup(rec.Items)
		for _, adminID := range adminIDs {
			err := s.notifier.Record(ctx, tx, notifications.RecordInput{
				UserID:           adminID,
				Type:             enums.NotificationTypeReconciliationSubmitted,
				ReconciliationID: rec.ID,
				Title:            "Reconciliation awaiting review",
				Body:             fmt.Sprintf("%q was submitted with %d item(s).", rec.Title, len(rec.Items)),
			})
			if err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventReconciliationSubmitted,
			AggregateType: enums.OutboxAggregateReconciliation,
			AggregateID:   rec.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: caller.UserID, Role: caller.Role},
			Data: SubmittedEvent{
				ReconciliationID: rec.ID,
				Title:            rec.Title,
				CreatedByID:      rec.CreatedByID,
				ItemCount:        len(rec.Items),
				TotalDiscrepancy: totals.TotalDiscrepancy,
				TotalImpact:      totals.TotalImpact,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.detail(ctx, id)
}

func (s *service) Approve(ctx context.Context, caller authz.Caller, id uuid.UUID) (*Detail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reconciliation id required")
	}
	if !authz.CanDecide(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators approve reconciliations")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.load(ctx, repo, id, false)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		affected, err := repo.UpdateIfStatus(ctx, id,
			[]enums.ReconciliationStatus{enums.ReconciliationStatusPending},
			map[string]any{
				"status":         enums.ReconciliationStatusApproved,
				"approved_by_id": caller.UserID,
				"approved_at":    now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve reconciliation")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reconciliation is not pending review")
		}

		err = s.notifier.Record(ctx, tx, notifications.RecordInput{
			UserID:           rec.CreatedByID,
			Type:             enums.NotificationTypeReconciliationApproved,
			ReconciliationID: rec.ID,
			Title:            "Reconciliation approved",
			Body:             fmt.Sprintf("%q was approved.", rec.Title),
		})
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventReconciliationApproved,
			AggregateType: enums.OutboxAggregateReconciliation,
			AggregateID:   rec.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: caller.UserID, Role: caller.Role},
			Data: DecidedEvent{
				ReconciliationID: rec.ID,
				Title:            rec.Title,
				CreatedByID:      rec.CreatedByID,
				Status:           enums.ReconciliationStatusApproved,
				DecidedByID:      caller.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.detail(ctx, id)
}

func (s *service) Reject(ctx context.Context, caller authz.Caller, id uuid.UUID, input RejectInput) (*Detail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reconciliation id required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	if !authz.CanDecide(caller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators reject reconciliations")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.load(ctx, repo, id, false)
		if err != nil {
			return err
		}

		affected, err := repo.UpdateIfStatus(ctx, id,
			[]enums.ReconciliationStatus{enums.ReconciliationStatusPending},
			map[string]any{
				"status":           enums.ReconciliationStatusRejected,
				"rejection_reason": reason,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject reconciliation")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reconciliation is not pending review")
		}

		err = s.notifier.Record(ctx, tx, notifications.RecordInput{
			UserID:           rec.CreatedByID,
			Type:             enums.NotificationTypeReconciliationRejected,
			ReconciliationID: rec.ID,
			Title:            "Reconciliation rejected",
			Body:             fmt.Sprintf("%q was rejected: %s", rec.Title, reason),
		})
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventReconciliationRejected,
			AggregateType: enums.OutboxAggregateReconciliation,
			AggregateID:   rec.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: caller.UserID, Role: caller.Role},
			Data: DecidedEvent{
				ReconciliationID: rec.ID,
				Title:            rec.Title,
				CreatedByID:      rec.CreatedByID,
				Status:           enums.ReconciliationStatusRejected,
				DecidedByID:      caller.UserID,
				RejectionReason:  &reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.detail(ctx, id)
}

func (s *service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reconciliation id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rec, err := s.load(ctx, repo, id, false)
		if err != nil {
			return err
		}
		if !authz.CanAct(caller, authz.ActionDelete, rec.CreatedByID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to delete this reconciliation")
		}

		affected, err := repo.DeleteIfStatus(ctx, id, editableStatuses())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reconciliation")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reconciliation cannot be deleted in current state")
		}
		return nil
	})
}

// buildItems resolves product snapshots and derives discrepancy/impact for
// every line. The unit value is captured here and never recomputed later.
func (s *service) buildItems(ctx context.Context, recID uuid.UUID, inputs []ItemInput) ([]models.ReconciliationItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, input := range inputs {
		if input.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every item")
		}
		ids = append(ids, input.ProductID)
	}

	products, err := s.catalog.SnapshotByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]models.ReconciliationItem, 0, len(inputs))
	for _, input := range inputs {
		if input.SystemCount < 0 || input.PhysicalCount < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "counts cannot be negative")
		}
		reason, err := enums.ParseDiscrepancyReason(strings.TrimSpace(input.DiscrepancyReason))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discrepancy reason")
		}
		product, ok := products[input.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product "+input.ProductID.String())
		}

		discrepancy := Discrepancy(input.SystemCount, input.PhysicalCount)
		unitValue := product.ReferenceUnitValue()
		items = append(items, models.ReconciliationItem{
			ID:                uuid.New(),
			ReconciliationID:  recID,
			ProductID:         product.ID,
			ProductSKU:        product.SKU,
			ProductName:       product.Name,
			SystemCount:       input.SystemCount,
			PhysicalCount:     input.PhysicalCount,
			Discrepancy:       discrepancy,
			DiscrepancyReason: reason,
			UnitCost:          unitValue,
			EstimatedImpact:   EstimatedImpact(discrepancy, unitValue),
			Notes:             input.Notes,
		})
	}
	return items, nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID, withItems bool) (*models.StockReconciliation, error) {
	var (
		rec *models.StockReconciliation
		err error
	)
	if withItems {
		rec, err = repo.FindByID(ctx, id)
	} else {
		rec, err = repo.FindHeader(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reconciliation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reconciliation")
	}
	return rec, nil
}

func (s *service) detail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	rec, err := s.load(ctx, s.repo, id, true)
	if err != nil {
		return nil, err
	}
	return &Detail{Reconciliation: *rec, Totals: Rollup(rec.Items)}, nil
}

func editableStatuses() []enums.ReconciliationStatus {
	return []enums.ReconciliationStatus{
		enums.ReconciliationStatusDraft,
		enums.ReconciliationStatusRejected,
	}
}
