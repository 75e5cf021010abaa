package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tallyops/stockcount-backend/pkg/authz"
	"github.com/tallyops/stockcount-backend/pkg/config"
	"github.com/tallyops/stockcount-backend/pkg/db/models"
	"github.com/tallyops/stockcount-backend/pkg/enums"
	pkgerrors "github.com/tallyops/stockcount-backend/pkg/errors"
	"github.com/tallyops/stockcount-backend/pkg/security"
)

type fakeUserRepo struct {
	createFn              func(ctx context.Context, user *models.User) error
	findByIDFn            func(ctx context.Context, id uuid.UUID) (*models.User, error)
	findByEmailFn         func(ctx context.Context, email string) (*models.User, error)
	listActiveIDsByRoleFn func(ctx context.Context, role enums.UserRole) ([]uuid.UUID, error)
	listFn                func(ctx context.Context) ([]models.User, error)
	setActiveFn           func(ctx context.Context, id uuid.UUID, active bool) (int64, error)
	touchLastLoginFn      func(ctx context.Context, id uuid.UUID, at time.Time) error
}

func (f *fakeUserRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, user)
	}
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.findByEmailFn != nil {
		return f.findByEmailFn(ctx, email)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) ListActiveIDsByRole(ctx context.Context, role enums.UserRole) ([]uuid.UUID, error) {
	if f.listActiveIDsByRoleFn != nil {
		return f.listActiveIDsByRoleFn(ctx, role)
	}
	return nil, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]models.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeUserRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	if f.setActiveFn != nil {
		return f.setActiveFn(ctx, id, active)
	}
	return 1, nil
}

func (f *fakeUserRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if f.touchLastLoginFn != nil {
		return f.touchLastLoginFn(ctx, id, at)
	}
	return nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func requireCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if appErr.Code() != want {
		t.Fatalf("expected code %s, got %s", want, appErr.Code())
	}
}

func adminUserCaller() authz.Caller {
	return authz.Caller{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestCreateNormalizesEmailAndIssuesTempPassword(t *testing.T) {
	var stored *models.User
	repo := &fakeUserRepo{
		createFn: func(ctx context.Context, user *models.User) error {
			stored = user
			return nil
		},
	}
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), adminUserCaller(), CreateUserInput{
		Email:     "  Counter@Example.COM ",
		FirstName: " Dana ",
		LastName:  " Reyes ",
		Role:      "MANAGER",
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if stored == nil {
		t.Fatal("expected user persisted")
	}
	if stored.Email != "counter@example.com" {
		t.Fatalf("unexpected email %q", stored.Email)
	}
	if stored.Role != enums.UserRoleManager || !stored.IsActive {
		t.Fatalf("unexpected stored user %+v", stored)
	}
	if len(created.TempPassword) != tempPasswordLength {
		t.Fatalf("unexpected temp password length %d", len(created.TempPassword))
	}
	ok, err := security.VerifyPassword(created.TempPassword, stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("temp password does not verify against stored hash: ok=%v err=%v", ok, err)
	}
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc := newTestService(t, &fakeUserRepo{})

	_, err := svc.Create(context.Background(), authz.Caller{UserID: uuid.New(), Role: enums.UserRoleManager}, CreateUserInput{
		Email: "counter@example.com",
		Role:  "EMPLOYEE",
	})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := newTestService(t, &fakeUserRepo{})

	_, err := svc.Create(context.Background(), adminUserCaller(), CreateUserInput{
		Email: "counter@example.com",
		Role:  "SUPERVISOR",
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateDuplicateEmailMapsToValidation(t *testing.T) {
	repo := &fakeUserRepo{
		createFn: func(ctx context.Context, user *models.User) error {
			return errors.New(`duplicate key value violates unique constraint "ux_users_email"`)
		},
	}
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), adminUserCaller(), CreateUserInput{
		Email: "counter@example.com",
		Role:  "EMPLOYEE",
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestSetActiveRejectsSelfDeactivation(t *testing.T) {
	caller := adminUserCaller()
	svc := newTestService(t, &fakeUserRepo{})

	err := svc.SetActive(context.Background(), caller, caller.UserID, false)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestSetActiveUnknownUserIsNotFound(t *testing.T) {
	repo := &fakeUserRepo{
		setActiveFn: func(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
			return 0, nil
		},
	}
	svc := newTestService(t, repo)

	err := svc.SetActive(context.Background(), adminUserCaller(), uuid.New(), false)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestFindActiveByEmailHidesInactiveUsers(t *testing.T) {
	repo := &fakeUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*models.User, error) {
			return &models.User{ID: uuid.New(), Email: email, IsActive: false}, nil
		},
	}
	svc := newTestService(t, repo)

	_, err := svc.FindActiveByEmail(context.Background(), "counter@example.com")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestListRequiresAdmin(t *testing.T) {
	svc := newTestService(t, &fakeUserRepo{})

	_, err := svc.List(context.Background(), authz.Caller{UserID: uuid.New(), Role: enums.UserRoleEmployee})
	requireCode(t, err, pkgerrors.CodeForbidden)
}

func TestListActiveAdminIDsPassesRole(t *testing.T) {
	want := []uuid.UUID{uuid.New(), uuid.New()}
	repo := &fakeUserRepo{
		listActiveIDsByRoleFn: func(ctx context.Context, role enums.UserRole) ([]uuid.UUID, error) {
			if role != enums.UserRoleAdmin {
				t.Fatalf("unexpected role %s", role)
			}
			return want, nil
		},
	}
	svc := newTestService(t, repo)

	ids, err := svc.ListActiveAdminIDs(context.Background())
	if err != nil {
		t.Fatalf("list admins returned error: %v", err)
	}
	if len(ids) != len(want) || ids[0] != want[0] {
		t.Fatalf("unexpected ids %v", ids)
	}
}
