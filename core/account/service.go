package account

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/ThumulaGamage/EduPlatform-backend/core"
)

var (
	// errors
	ErrNotFound          = core.NewError(core.KindNotFound, "user not found")
	ErrEmailExists       = core.NewError(core.KindDuplicateIdentity, "user already exists with this email")
	ErrInvalidCredential = core.NewError(core.KindInvalidCredential, "invalid password")
	ErrInvalidRole       = core.NewError(core.KindInvalidRole, "invalid role")
	ErrAdminExists       = core.NewError(core.KindAlreadyExists, "an account with this email already exists")
)

type (
	Repository interface {
		Create(ctx context.Context, acc Account) (Account, error)
		GetByID(ctx context.Context, id string) (Account, error)
		GetByEmail(ctx context.Context, email string) (Account, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Account.Name or Account.Email.
		Query(ctx context.Context, filter QueryFilter) ([]Account, error)
		Update(ctx context.Context, acc Account) (Account, error)
		Delete(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		tokens   *TokenIssuer
		validate *validator.Validate
	}
)

func NewService(repo Repository, tokens *TokenIssuer, validate *validator.Validate) *Service {
	return &Service{repo: repo, tokens: tokens, validate: validate}
}

// Register creates an account through self-registration. Role defaults to student.
func (svc *Service) Register(ctx context.Context, na NewAccount) (Account, error) {
	return svc.create(ctx, na, SelfServiceRoles)
}

// Create creates an account of any role. Used by admins.
func (svc *Service) Create(ctx context.Context, na NewAccount) (Account, error) {
	return svc.create(ctx, na, core.AllRoles)
}

func (svc *Service) create(ctx context.Context, na NewAccount, allowedRoles []string) (Account, error) {
	na.clean()
	if na.Role == "" {
		na.Role = core.RoleStudent
	}
	if !contains(allowedRoles, na.Role) {
		return Account{}, ErrInvalidRole
	}
	if err := svc.validate.Struct(na); err != nil {
		return Account{}, err
	}

	if _, err := svc.repo.GetByEmail(ctx, na.Email); err == nil {
		return Account{}, ErrEmailExists
	} else if !core.IsKind(err, core.KindNotFound) {
		return Account{}, errors.Wrap(err, "checking email uniqueness")
	}

	now := core.Now()
	acc := Account{
		Name:      na.Name,
		Email:     na.Email,
		Age:       na.Age,
		Address:   na.Address,
		Role:      na.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}

	acc, err := svc.repo.Create(ctx, acc)
	if core.IsKind(err, core.KindAlreadyExists) { // lost a race on the unique email index
		return Account{}, ErrEmailExists
	}
	return acc, err
}

// Authenticate verifies the credentials and issues an access token.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Account, string, error) {
	acc, err := svc.repo.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if core.IsKind(err, core.KindNotFound) {
			return Account{}, "", ErrNotFound
		}
		return Account{}, "", err
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, "", ErrInvalidCredential
	}
	token, err := svc.tokens.Issue(acc)
	if err != nil {
		return Account{}, "", errors.Wrap(err, "issuing token")
	}
	return acc, token, nil
}

// IssueToken issues an access token for acc.
func (svc *Service) IssueToken(acc Account) (string, error) {
	token, err := svc.tokens.Issue(acc)
	return token, errors.Wrap(err, "issuing token")
}

// VerifyToken resolves the principal asserted by token.
func (svc *Service) VerifyToken(token string) (core.Principal, error) {
	return svc.tokens.Verify(token)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Account, error) {
	acc, err := svc.repo.GetByID(ctx, id)
	if core.IsKind(err, core.KindNotFound) {
		return Account{}, ErrNotFound
	}
	return acc, err
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Account, error) {
	acc, err := svc.repo.GetByEmail(ctx, core.CleanString(email, true /* lower */))
	if core.IsKind(err, core.KindNotFound) {
		return Account{}, ErrNotFound
	}
	return acc, err
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Account, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Role = core.CleanString(filter.Role, true /* lower */)
	return svc.repo.Query(ctx, filter)
}

// Update modifies the profile of the account id. The role is immutable.
func (svc *Service) Update(ctx context.Context, id string, ua UpdateAccount) (Account, error) {
	acc, err := svc.GetByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	ua.clean(acc)
	if err = svc.validate.Struct(ua); err != nil {
		return Account{}, err
	}

	if ua.Email != "" && ua.Email != acc.Email {
		if _, err = svc.repo.GetByEmail(ctx, ua.Email); err == nil {
			return Account{}, ErrEmailExists
		} else if !core.IsKind(err, core.KindNotFound) {
			return Account{}, errors.Wrap(err, "checking email uniqueness")
		}
		acc.Email = ua.Email
	}
	if ua.Name != "" {
		acc.Name = ua.Name
	}
	if ua.Age != 0 {
		acc.Age = ua.Age
	}
	if ua.Address != "" {
		acc.Address = ua.Address
	}
	if ua.Password != "" {
		if err = acc.SetPassword(ua.Password); err != nil {
			return Account{}, errors.Wrap(err, "hashing password")
		}
	}
	acc.UpdatedAt = core.Now()

	acc, err = svc.repo.Update(ctx, acc)
	if core.IsKind(err, core.KindAlreadyExists) {
		return Account{}, ErrEmailExists
	}
	return acc, err
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	err := svc.repo.Delete(ctx, id)
	if core.IsKind(err, core.KindNotFound) {
		return ErrNotFound
	}
	return err
}

// ResetPassword sets a new password on the account with email. The password policy is not applied.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	acc, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = acc.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	acc.UpdatedAt = core.Now()
	_, err = svc.repo.Update(ctx, acc)
	return err
}

// CreateAdmin seeds an admin account. It fails if the email is already taken.
func (svc *Service) CreateAdmin(ctx context.Context, name, email, pwd string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if _, err := svc.repo.GetByEmail(ctx, email); err == nil {
		return Account{}, ErrAdminExists
	} else if !core.IsKind(err, core.KindNotFound) {
		return Account{}, err
	}

	now := core.Now()
	acc := Account{
		Name:      core.CleanString(name),
		Email:     email,
		Age:       30,
		Address:   "System",
		Role:      core.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(pwd); err != nil {
		return Account{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.Create(ctx, acc)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
