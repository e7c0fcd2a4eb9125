package handlers

import (
	"context"

	"github.com/serroba/tiered-shortener/internal/account"
	"go.uber.org/zap"
)

// UserHandler handles account registration.
type UserHandler struct {
	registrar *account.Registrar
	logger    *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(registrar *account.Registrar, logger *zap.Logger) *UserHandler {
	return &UserHandler{registrar: registrar, logger: logger}
}

func (h *UserHandler) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	acct, err := h.registrar.Register(ctx, account.Registration{
		Name:     req.Body.Name,
		Email:    req.Body.Email,
		Password: req.Body.Password,
		Tier:     req.Body.Tier,
	})
	if err != nil {
		return nil, toHTTPError(err, h.logger, "failed to register account")
	}

	summary := acct.Summary()

	return &RegisterResponse{
		Body: AccountBody{
			ID:    summary.ID,
			Name:  summary.Name,
			Email: summary.Email,
			Tier:  summary.Tier,
		},
	}, nil
}
