package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/tiered-shortener/internal/ratelimit"
)

// AuthMetadataKey marks operations that require Basic credentials.
const AuthMetadataKey = "auth"

// RegisterRoutes registers the account and link routes.
func RegisterRoutes(api huma.API, users *UserHandler, links *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Register an account",
		Tags:          []string{"Accounts"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 5},
					{Window: time.Hour, Max: 20},
				},
			},
		},
	}, users.Register)

	huma.Register(api, huma.Operation{
		OperationID: "create-link",
		Method:      http.MethodPost,
		Path:        "/links",
		Summary:     "Create short link",
		Description: "Shortens a URL for the authenticated account, consuming one unit of its tier quota " +
			"unless the account already shortened the same URL.",
		Tags:     []string{"Links"},
		Security: []map[string][]string{{"basicAuth": {}}},
		Metadata: map[string]any{
			AuthMetadataKey: true,
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 30},
				},
			},
		},
	}, links.CreateLink)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/links",
		Summary:     "List short links",
		Tags:        []string{"Links"},
		Security:    []map[string][]string{{"basicAuth": {}}},
		Metadata: map[string]any{
			AuthMetadataKey: true,
		},
	}, links.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{token}",
		Summary:     "Redirect to original URL",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, links.Redirect)
}
