package handlers

import (
	"context"

	"github.com/serroba/tiered-shortener/internal/account"
)

type (
	requestMetaKey struct{}
	accountKey     struct{}
)

// RequestMeta holds HTTP request metadata for analytics.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// ContextWithAccount stores the authenticated account.
func ContextWithAccount(ctx context.Context, acct *account.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, acct)
}

// AccountFromContext returns the authenticated account, if any.
func AccountFromContext(ctx context.Context) (*account.Account, bool) {
	acct, ok := ctx.Value(accountKey{}).(*account.Account)

	return acct, ok && acct != nil
}
