package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tallyops/stockcount-backend/pkg/authz"
	"github.com/tallyops/stockcount-backend/pkg/config"
	dbpkg "github.com/tallyops/stockcount-backend/pkg/db"
	"github.com/tallyops/stockcount-backend/pkg/db/models"
	"github.com/tallyops/stockcount-backend/pkg/enums"
	pkgerrors "github.com/tallyops/stockcount-backend/pkg/errors"
	"github.com/tallyops/stockcount-backend/pkg/security"
)

const tempPasswordLength = 20

// Service defines admin-facing user management operations.
type Service interface {
	Create(ctx context.Context, caller authz.Caller, input CreateUserInput) (*CreatedUser, error)
	List(ctx context.Context, caller authz.Caller) ([]UserView, error)
	SetActive(ctx context.Context, caller authz.Caller, id uuid.UUID, active bool) error
	FindActiveByEmail(ctx context.Context, email string) (*models.User, error)
	ListActiveAdminIDs(ctx context.Context) ([]uuid.UUID, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	password config.PasswordConfig
}

// NewService wires user management dependencies.
func NewService(repo Repository, password config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &service{repo: repo, password: password}, nil
}

func (s *service) Create(ctx context.Context, caller authz.Caller, input CreateUserInput) (*CreatedUser, error) {
	if caller.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators manage users")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	role, err := enums.ParseUserRole(strings.TrimSpace(input.Role))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(tempPassword, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	return &CreatedUser{
		User:         toUserView(user),
		TempPassword: tempPassword,
	}, nil
}

func (s *service) List(ctx context.Context, caller authz.Caller) ([]UserView, error) {
	if caller.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators manage users")
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	views := make([]UserView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toUserView(row))
	}
	return views, nil
}

func (s *service) SetActive(ctx context.Context, caller authz.Caller, id uuid.UUID, active bool) error {
	if caller.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators manage users")
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if id == caller.UserID && !active {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate own account")
	}

	affected, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

// FindActiveByEmail returns the user row for login verification.
func (s *service) FindActiveByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	user, err := s.repo.FindByEmail(ctx, normalized)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return user, nil
}

// ListActiveAdminIDs returns admins to notify when a count is submitted.
func (s *service) ListActiveAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.repo.ListActiveIDsByRole(ctx, enums.UserRoleAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
	}
	return ids, nil
}

func (s *service) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := s.repo.TouchLastLogin(ctx, id, time.Now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch last login")
	}
	return nil
}
