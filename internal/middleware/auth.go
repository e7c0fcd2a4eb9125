package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/tiered-shortener/internal/account"
	"github.com/serroba/tiered-shortener/internal/handlers"
	"go.uber.org/zap"
)

// Verifier checks a credential pair.
type Verifier interface {
	Verify(ctx context.Context, identifier, secret string) (*account.Account, error)
}

// Authenticate returns a Huma middleware that resolves Basic credentials into an
// account for operations flagged with handlers.AuthMetadataKey.
func Authenticate(api huma.API, verifier Verifier, logger *zap.Logger) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !requiresAuth(ctx) {
			next(ctx)

			return
		}

		identifier, secret, err := ParseBasic(ctx.Header("Authorization"))
		if err != nil {
			if errors.Is(err, ErrMissingCredentials) {
				unauthorized(api, ctx, err.Error())

				return
			}

			_ = huma.WriteErr(api, ctx, http.StatusBadRequest, err.Error())

			return
		}

		acct, err := verifier.Verify(ctx.Context(), identifier, secret)
		if err != nil {
			if errors.Is(err, account.ErrAuthFailed) {
				unauthorized(api, ctx, account.ErrAuthFailed.Error())

				return
			}

			logger.Error("credential verification failed", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")

			return
		}

		next(huma.WithContext(ctx, handlers.ContextWithAccount(ctx.Context(), acct)))
	}
}

func requiresAuth(ctx huma.Context) bool {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return false
	}

	required, _ := op.Metadata[handlers.AuthMetadataKey].(bool)

	return required
}

func unauthorized(api huma.API, ctx huma.Context, msg string) {
	ctx.SetHeader("WWW-Authenticate", `Basic realm="shortener", charset="UTF-8"`)
	_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, msg)
}
