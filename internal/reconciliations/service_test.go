package reconciliations

import (
	"context"
	"strings"
	"testing"
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

type fakeRepository struct {
	createFn         func(ctx context.Context, rec *models.StockReconciliation) error
	findByIDFn       func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error)
	findHeaderFn     func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error)
	listFn           func(ctx context.Context, params listParams) ([]models.StockReconciliation, *pagination.Cursor, error)
	replaceItemsFn   func(ctx context.Context, reconciliationID uuid.UUID, items []models.ReconciliationItem) error
	updateIfStatusFn func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error)
	deleteIfStatusFn func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, rec *models.StockReconciliation) error {
	if f.createFn != nil {
		return f.createFn(ctx, rec)
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindHeader(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
	if f.findHeaderFn != nil {
		return f.findHeaderFn(ctx, id)
	}
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context, params listParams) ([]models.StockReconciliation, *pagination.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) ReplaceItems(ctx context.Context, reconciliationID uuid.UUID, items []models.ReconciliationItem) error {
	if f.replaceItemsFn != nil {
		return f.replaceItemsFn(ctx, reconciliationID, items)
	}
	return nil
}

func (f *fakeRepository) UpdateIfStatus(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error) {
	if f.updateIfStatusFn != nil {
		return f.updateIfStatusFn(ctx, id, expected, updates)
	}
	return 1, nil
}

func (f *fakeRepository) DeleteIfStatus(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus) (int64, error) {
	if f.deleteIfStatusFn != nil {
		return f.deleteIfStatusFn(ctx, id, expected)
	}
	return 1, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeNotifier struct {
	recorded []notifications.RecordInput
}

func (f *fakeNotifier) Record(ctx context.Context, tx *gorm.DB, input notifications.RecordInput) error {
	f.recorded = append(f.recorded, input)
	return nil
}

type fakeCatalog struct {
	products map[uuid.UUID]models.Product
}

func (f *fakeCatalog) SnapshotByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product)
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type fakeAdmins struct {
	ids []uuid.UUID
}

func (f *fakeAdmins) ListActiveAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	return f.ids, nil
}

type serviceFixture struct {
	repo     *fakeRepository
	outbox   *fakeOutbox
	notifier *fakeNotifier
	catalog  *fakeCatalog
	admins   *fakeAdmins
	svc      Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:     &fakeRepository{},
		outbox:   &fakeOutbox{},
		notifier: &fakeNotifier{},
		catalog:  &fakeCatalog{products: map[uuid.UUID]models.Product{}},
		admins:   &fakeAdmins{},
	}
	svc, err := NewService(ServiceParams{
		Repo:     f.repo,
		Tx:       fakeTxRunner{},
		Outbox:   f.outbox,
		Notifier: f.notifier,
		Catalog:  f.catalog,
		Admins:   f.admins,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *serviceFixture) addProduct(t *testing.T, sku string, unitCost string) models.Product {
	t.Helper()
	cost := decimal.RequireFromString(unitCost)
	product := models.Product{
		ID:       uuid.New(),
		SKU:      sku,
		Name:     "Product " + sku,
		Price:    cost,
		UnitCost: &cost,
	}
	f.catalog.products[product.ID] = product
	return product
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %v", err)
	}
	if appErr.Code() != want {
		t.Fatalf("expected code %s, got %s (%v)", want, appErr.Code(), err)
	}
}

func managerCaller() authz.Caller {
	return authz.Caller{UserID: uuid.New(), Role: enums.UserRoleManager}
}

func adminCaller() authz.Caller {
	return authz.Caller{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestCreateSnapshotsUnitCostAndDerivesImpact(t *testing.T) {
	f := newServiceFixture(t)
	caller := managerCaller()
	product := f.addProduct(t, "SKU-1", "100.00")

	var created *models.StockReconciliation
	f.repo.createFn = func(ctx context.Context, rec *models.StockReconciliation) error {
		created = rec
		return nil
	}

	detail, err := f.svc.Create(context.Background(), caller, CreateInput{
		Title: "August count",
		Items: []ItemInput{{
			ProductID:         product.ID,
			SystemCount:       10,
			PhysicalCount:     8,
			DiscrepancyReason: "MISCOUNT",
		}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created == nil {
		t.Fatal("expected reconciliation row to be written")
	}
	if created.Status != enums.ReconciliationStatusDraft {
		t.Fatalf("expected DRAFT, got %s", created.Status)
	}
	if created.CreatedByID != caller.UserID {
		t.Fatal("creator not recorded")
	}

	item := created.Items[0]
	if item.Discrepancy != -2 {
		t.Fatalf("expected discrepancy -2, got %d", item.Discrepancy)
	}
	if !item.UnitCost.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected unit cost snapshot 100.00, got %s", item.UnitCost)
	}
	if !item.EstimatedImpact.Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("expected impact -200, got %s", item.EstimatedImpact)
	}
	if item.ProductSKU != product.SKU || item.ProductName != product.Name {
		t.Fatal("expected product identity snapshot on the item")
	}
	if !detail.Totals.TotalImpact.Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("expected total impact -200, got %s", detail.Totals.TotalImpact)
	}
}

func TestCreateRejectsUnknownProduct(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Create(context.Background(), managerCaller(), CreateInput{
		Title: "Bad count",
		Items: []ItemInput{{
			ProductID:         uuid.New(),
			SystemCount:       1,
			PhysicalCount:     1,
			DiscrepancyReason: "OTHER",
		}},
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateForbiddenForEmployee(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Create(context.Background(), authz.Caller{UserID: uuid.New(), Role: enums.UserRoleEmployee}, CreateInput{
		Title: "count",
		Items: []ItemInput{{ProductID: uuid.New(), DiscrepancyReason: "OTHER"}},
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestUpdateByNonOwnerManagerForbidden(t *testing.T) {
	f := newServiceFixture(t)
	owner := uuid.New()
	recID := uuid.New()
	f.repo.findHeaderFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		return &models.StockReconciliation{ID: recID, CreatedByID: owner, Status: enums.ReconciliationStatusDraft}, nil
	}

	title := "renamed"
	_, err := f.svc.Update(context.Background(), managerCaller(), recID, UpdateInput{Title: &title})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestUpdateRejectedReturnsToDraft(t *testing.T) {
	f := newServiceFixture(t)
	caller := managerCaller()
	recID := uuid.New()
	reason := "counts off"
	rec := models.StockReconciliation{
		ID:              recID,
		Title:           "August count",
		CreatedByID:     caller.UserID,
		Status:          enums.ReconciliationStatusRejected,
		RejectionReason: &reason,
	}
	f.repo.findHeaderFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		copied := rec
		return &copied, nil
	}
	f.repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		copied := rec
		return &copied, nil
	}

	var gotUpdates map[string]any
	var gotExpected []enums.ReconciliationStatus
	f.repo.updateIfStatusFn = func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error) {
		gotUpdates = updates
		gotExpected = expected
		return 1, nil
	}

	title := "August count v2"
	if _, err := f.svc.Update(context.Background(), caller, recID, UpdateInput{Title: &title}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if gotUpdates["status"] != enums.ReconciliationStatusDraft {
		t.Fatalf("expected status reset to DRAFT, got %v", gotUpdates["status"])
	}
	if gotUpdates["rejection_reason"] != nil {
		t.Fatal("expected rejection reason cleared")
	}
	if len(gotExpected) != 2 {
		t.Fatalf("expected DRAFT and REJECTED as allowed states, got %v", gotExpected)
	}
}

func TestUpdateConflictsWhenNotEditable(t *testing.T) {
	f := newServiceFixture(t)
	caller := adminCaller()
	recID := uuid.New()
	f.repo.findHeaderFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		return &models.StockReconciliation{ID: recID, CreatedByID: caller.UserID, Status: enums.ReconciliationStatusPending}, nil
	}

	title := "nope"
	_, err := f.svc.Update(context.Background(), caller, recID, UpdateInput{Title: &title})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestSubmitMovesDraftToPendingAndNotifiesAdmins(t *testing.T) {
	f := newServiceFixture(t)
	caller := managerCaller()
	recID := uuid.New()
	adminA, adminB := uuid.New(), uuid.New()
	f.admins.ids = []uuid.UUID{adminA, adminB}

	rec := models.StockReconciliation{
		ID:          recID,
		Title:       "Week 35",
		CreatedByID: caller.UserID,
		Status:      enums.ReconciliationStatusDraft,
		Items: []models.ReconciliationItem{
			{Discrepancy: -2, EstimatedImpact: decimal.NewFromInt(-200)},
		},
	}
	f.repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		copied := rec
		return &copied, nil
	}

	var gotUpdates map[string]any
	f.repo.updateIfStatusFn = func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error) {
		gotUpdates = updates
		if len(expected) != 1 || expected[0] != enums.ReconciliationStatusDraft {
			t.Fatalf("expected transition guarded on DRAFT, got %v", expected)
		}
		return 1, nil
	}

	if _, err := f.svc.Submit(context.Background(), caller, recID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotUpdates["status"] != enums.ReconciliationStatusPending {
		t.Fatalf("expected PENDING, got %v", gotUpdates["status"])
	}
	if _, ok := gotUpdates["submitted_at"].(time.Time); !ok {
		t.Fatal("expected submitted_at to be set")
	}

	if len(f.notifier.recorded) != 2 {
		t.Fatalf("expected both admins notified, got %d", len(f.notifier.recorded))
	}
	notified := map[uuid.UUID]bool{}
	for _, n := range f.notifier.recorded {
		notified[n.UserID] = true
		if n.Type != enums.NotificationTypeReconciliationSubmitted {
			t.Fatalf("unexpected notification type %s", n.Type)
		}
	}
	if !notified[adminA] || !notified[adminB] {
		t.Fatal("expected notifications for each admin")
	}

	if len(f.outbox.events) != 1 {
		t.Fatalf("expected one outbox event, got %d", len(f.outbox.events))
	}
	event := f.outbox.events[0]
	if event.EventType != enums.OutboxEventReconciliationSubmitted {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	payload, ok := event.Data.(SubmittedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.TotalDiscrepancy != -2 || !payload.TotalImpact.Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("unexpected rollups in payload: %+v", payload)
	}
}

func TestSubmitWithoutItemsFails(t *testing.T) {
	f := newServiceFixture(t)
	caller := managerCaller()
	recID := uuid.New()
	f.repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		return &models.StockReconciliation{ID: recID, CreatedByID: caller.UserID, Status: enums.ReconciliationStatusDraft}, nil
	}

	_, err := f.svc.Submit(context.Background(), caller, recID)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestSubmitLostRaceConflicts(t *testing.T) {
	f := newServiceFixture(t)
	caller := managerCaller()
	recID := uuid.New()
	f.repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		return &models.StockReconciliation{
			ID:          recID,
			CreatedByID: caller.UserID,
			Status:      enums.ReconciliationStatusDraft,
			Items:       []models.ReconciliationItem{{Discrepancy: 1}},
		}, nil
	}
	f.repo.updateIfStatusFn = func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error) {
		return 0, nil
	}

	_, err := f.svc.Submit(context.Background(), caller, recID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
	if len(f.outbox.events) != 0 {
		t.Fatal("no event should be emitted when the transition is lost")
	}
}

func TestApproveSetsDecisionFields(t *testing.T) {
	f := newServiceFixture(t)
	caller := adminCaller()
	owner := uuid.New()
	recID := uuid.New()
	rec := models.StockReconciliation{ID: recID, Title: "Week 35", CreatedByID: owner, Status: enums.ReconciliationStatusPending}
	f.repo.findHeaderFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		copied := rec
		return &copied, nil
	}
	f.repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		copied := rec
		return &copied, nil
	}

	var gotUpdates map[string]any
	f.repo.updateIfStatusFn = func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error) {
		gotUpdates = updates
		if len(expected) != 1 || expected[0] != enums.ReconciliationStatusPending {
			t.Fatalf("expected transition guarded on PENDING, got %v", expected)
		}
		return 1, nil
	}

	if _, err := f.svc.Approve(context.Background(), caller, recID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if gotUpdates["status"] != enums.ReconciliationStatusApproved {
		t.Fatalf("expected APPROVED, got %v", gotUpdates["status"])
	}
	if gotUpdates["approved_by_id"] != caller.UserID {
		t.Fatal("expected approver recorded")
	}
	if _, ok := gotUpdates["approved_at"].(time.Time); !ok {
		t.Fatal("expected approved_at set")
	}

	if len(f.notifier.recorded) != 1 || f.notifier.recorded[0].UserID != owner {
		t.Fatal("expected the owner to be notified")
	}
	if f.notifier.recorded[0].Type != enums.NotificationTypeReconciliationApproved {
		t.Fatalf("unexpected notification type %s", f.notifier.recorded[0].Type)
	}
}

func TestApproveByManagerForbidden(t *testing.T) {
	f := newServiceFixture(t)
	recID := uuid.New()
	caller := managerCaller()
	f.repo.findHeaderFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		return &models.StockReconciliation{ID: recID, CreatedByID: caller.UserID, Status: enums.ReconciliationStatusPending}, nil
	}

	_, err := f.svc.Approve(context.Background(), caller, recID)
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestApproveNonPendingConflicts(t *testing.T) {
	f := newServiceFixture(t)
	recID := uuid.New()
	f.repo.findHeaderFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		return &models.StockReconciliation{ID: recID, CreatedByID: uuid.New(), Status: enums.ReconciliationStatusDraft}, nil
	}
	f.repo.updateIfStatusFn = func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error) {
		return 0, nil
	}

	_, err := f.svc.Approve(context.Background(), adminCaller(), recID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestRejectRequiresReason(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Reject(context.Background(), adminCaller(), uuid.New(), RejectInput{Reason: "   "})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRejectStoresReasonAndNotifiesOwner(t *testing.T) {
	f := newServiceFixture(t)
	caller := adminCaller()
	owner := uuid.New()
	recID := uuid.New()
	rec := models.StockReconciliation{ID: recID, Title: "Week 35", CreatedByID: owner, Status: enums.ReconciliationStatusPending}
	f.repo.findHeaderFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		copied := rec
		return &copied, nil
	}
	f.repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		copied := rec
		return &copied, nil
	}

	var gotUpdates map[string]any
	f.repo.updateIfStatusFn = func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus, updates map[string]any) (int64, error) {
		gotUpdates = updates
		return 1, nil
	}

	if _, err := f.svc.Reject(context.Background(), caller, recID, RejectInput{Reason: "counts do not match"}); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if gotUpdates["status"] != enums.ReconciliationStatusRejected {
		t.Fatalf("expected REJECTED, got %v", gotUpdates["status"])
	}
	if gotUpdates["rejection_reason"] != "counts do not match" {
		t.Fatalf("expected reason stored, got %v", gotUpdates["rejection_reason"])
	}

	if len(f.notifier.recorded) != 1 || f.notifier.recorded[0].UserID != owner {
		t.Fatal("expected the owner to be notified")
	}
	if !strings.Contains(f.notifier.recorded[0].Body, "counts do not match") {
		t.Fatal("expected reason in the notification body")
	}

	if len(f.outbox.events) != 1 {
		t.Fatalf("expected one outbox event, got %d", len(f.outbox.events))
	}
	payload, ok := f.outbox.events[0].Data.(DecidedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", f.outbox.events[0].Data)
	}
	if payload.RejectionReason == nil || *payload.RejectionReason != "counts do not match" {
		t.Fatal("expected reason in the event payload")
	}
}

func TestDeletePendingConflicts(t *testing.T) {
	f := newServiceFixture(t)
	caller := adminCaller()
	recID := uuid.New()
	f.repo.findHeaderFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		return &models.StockReconciliation{ID: recID, CreatedByID: caller.UserID, Status: enums.ReconciliationStatusPending}, nil
	}
	f.repo.deleteIfStatusFn = func(ctx context.Context, id uuid.UUID, expected []enums.ReconciliationStatus) (int64, error) {
		return 0, nil
	}

	err := f.svc.Delete(context.Background(), caller, recID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestDeleteUnknownReturnsNotFound(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.Delete(context.Background(), adminCaller(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestGetForbiddenForEmployee(t *testing.T) {
	f := newServiceFixture(t)
	recID := uuid.New()
	f.repo.findByIDFn = func(ctx context.Context, id uuid.UUID) (*models.StockReconciliation, error) {
		return &models.StockReconciliation{ID: recID, CreatedByID: uuid.New(), Status: enums.ReconciliationStatusDraft}, nil
	}

	_, err := f.svc.Get(context.Background(), authz.Caller{UserID: uuid.New(), Role: enums.UserRoleEmployee}, recID)
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestListRejectsInvalidStatusFilter(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.List(context.Background(), adminCaller(), ListParams{Status: "BOGUS"})
	assertCode(t, err, pkgerrors.CodeValidation)
}
