package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registration is the input for creating an account.
type Registration struct {
	Name     string `validate:"required,max=255"`
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=6,max=72"`
	Tier     int    `validate:"gte=0"`
}

// Registrar creates accounts.
type Registrar struct {
	repo     Repository
	hasher   Hasher
	validate *validator.Validate
	logger   *zap.Logger
}

// NewRegistrar creates a new account registrar.
func NewRegistrar(repo Repository, hasher Hasher, logger *zap.Logger) *Registrar {
	return &Registrar{
		repo:     repo,
		hasher:   hasher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Register validates the input, hashes the password and stores the account.
func (r *Registrar) Register(ctx context.Context, reg Registration) (*Account, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = NormalizeEmail(reg.Email)

	if err := r.validate.Struct(reg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}

	tier := reg.Tier
	if tier == 0 {
		tier = DefaultTier
	}

	hash, err := r.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &Account{
		ID:           uuid.NewString(),
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: hash,
		Tier:         tier,
		CreatedAt:    time.Now().UTC(),
	}

	if err := r.repo.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}

		return nil, fmt.Errorf("create account: %w", err)
	}

	r.logger.Info("account registered",
		zap.String("accountId", acct.ID),
		zap.Int("tier", acct.Tier),
	)

	return acct, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}

	return strings.Join(parts, ", ")
}
