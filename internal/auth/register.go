package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,notblank,max=128"`
	LastName  string `json:"last_name" validate:"required,notblank,max=128"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type RegisterServiceParams struct {
	DB             txRunner
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db     txRunner
	hasher security.Hasher
	role   enums.Role
}

// NewRegisterService opens customer accounts.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	return newRegisterService(params, enums.RoleCustomer)
}

// NewAdminRegisterService opens admin accounts. The router mounts it only
// in dev.
func NewAdminRegisterService(params RegisterServiceParams) (RegisterService, error) {
	return newRegisterService(params, enums.RoleAdmin)
}

func newRegisterService(params RegisterServiceParams, role enums.Role) (*registerService, error) {
	if params.DB == nil {
		return nil, errors.New("database client required")
	}
	return &registerService{
		db:     params.DB,
		hasher: security.NewHasher(params.PasswordConfig),
		role:   role,
	}, nil
}

// Register relies on the unique email index to catch duplicates, so two
// concurrent sign-ups for one address cannot both succeed.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	in := users.NewUser{
		Email:     users.NormalizeEmail(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      s.role,
	}
	switch {
	case in.Email == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	case in.FirstName == "" || in.LastName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name and last_name are required")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}
	in.PasswordHash = hash

	var created *users.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).Create(ctx, in)
		if err != nil {
			return err
		}
		created = users.FromModel(user)
		return nil
	})
	switch {
	case err == nil:
		return created, nil
	case db.IsUniqueViolation(err, ""):
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
}
