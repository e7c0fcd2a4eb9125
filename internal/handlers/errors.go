package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/tiered-shortener/internal/account"
	"github.com/serroba/tiered-shortener/internal/quota"
	"github.com/serroba/tiered-shortener/internal/shortener"
	"go.uber.org/zap"
)

// toHTTPError maps domain errors to API errors. Unknown errors are logged in
// full and reported with a generic message.
func toHTTPError(err error, logger *zap.Logger, msg string) error {
	switch {
	case errors.Is(err, shortener.ErrInvalidToken),
		errors.Is(err, shortener.ErrInvalidURL),
		errors.Is(err, account.ErrInvalid):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, account.ErrAuthFailed):
		return huma.Error401Unauthorized(account.ErrAuthFailed.Error())
	case errors.Is(err, quota.ErrQuotaExceeded):
		return huma.Error429TooManyRequests(err.Error())
	case errors.Is(err, shortener.ErrTokenTaken):
		return huma.Error409Conflict("custom token already in use")
	case errors.Is(err, account.ErrEmailTaken):
		return huma.Error409Conflict("account already exists")
	case errors.Is(err, shortener.ErrCapacityExhausted):
		return huma.Error503ServiceUnavailable("could not allocate a short token, try again later")
	case errors.Is(err, shortener.ErrNotFound):
		return huma.Error404NotFound("short link not found")
	}

	logger.Error(msg, zap.Error(err))

	return huma.Error500InternalServerError("internal server error")
}
