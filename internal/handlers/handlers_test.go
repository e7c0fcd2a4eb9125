package handlers_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/tiered-shortener/internal/account"
	"github.com/serroba/tiered-shortener/internal/analytics"
	"github.com/serroba/tiered-shortener/internal/handlers"
	"github.com/serroba/tiered-shortener/internal/hits"
	"github.com/serroba/tiered-shortener/internal/messaging"
	"github.com/serroba/tiered-shortener/internal/middleware"
	"github.com/serroba/tiered-shortener/internal/quota"
	"github.com/serroba/tiered-shortener/internal/ratelimit"
	"github.com/serroba/tiered-shortener/internal/shortener"
	"github.com/serroba/tiered-shortener/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const baseURL = "http://sho.rt"

// eventRecorder captures published link created events.
type eventRecorder struct {
	mu     sync.Mutex
	events []*analytics.LinkCreatedEvent
	err    error
}

func (e *eventRecorder) publish(_ context.Context, event *analytics.LinkCreatedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events = append(e.events, event)

	return e.err
}

type testServer struct {
	api    humatest.TestAPI
	store  *store.MemoryStore
	worker *hits.Worker
	events *eventRecorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	mem := store.NewMemoryStore()
	hasher := account.NewBcryptHasher(bcrypt.MinCost)
	gate := quota.NewGate(quota.DefaultTierLimits())

	verifier, err := account.NewVerifier(mem, hasher, logger)
	require.NoError(t, err)

	generate, err := shortener.NewGenerator(shortener.DefaultTokenLength)
	require.NoError(t, err)

	worker := hits.NewWorker(hits.RepositorySink(mem), hits.Config{}, logger)
	t.Cleanup(func() { _ = worker.Shutdown() })

	events := &eventRecorder{}

	api := humachi.New(chi.NewMux(), huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(
		middleware.RequestMeta(api),
		middleware.RateLimiter(api, ratelimit.NewSlidingWindowLimiter(store.NewRateLimitMemoryStore()), ratelimit.DefaultLimits(), logger),
		middleware.Authenticate(api, verifier, logger),
	)

	handlers.RegisterRoutes(api,
		handlers.NewUserHandler(account.NewRegistrar(mem, hasher, logger), logger),
		handlers.NewLinkHandler(
			shortener.NewService(mem, gate, generate, shortener.DefaultMaxAttempts, logger),
			shortener.NewResolver(mem, worker),
			gate,
			baseURL,
			messaging.Publish[analytics.LinkCreatedEvent](events.publish),
			logger,
		),
	)

	return &testServer{
		api:    humatest.Wrap(t, api),
		store:  mem,
		worker: worker,
		events: events,
	}
}

func authHeader(email, password string) string {
	return "Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(email+":"+password))
}

func (s *testServer) register(t *testing.T, email string, tier int) {
	t.Helper()

	resp := s.api.Post("/users", map[string]any{
		"name":     "Test User",
		"email":    email,
		"password": "secret1",
		"tier":     tier,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

func (s *testServer) shorten(email string, body map[string]any) *httptest.ResponseRecorder {
	return s.api.Post("/links", authHeader(email, "secret1"), body)
}

type linkList struct {
	Links []handlers.LinkBody `json:"links"`
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v))

	return v
}

func TestRegisterUser(t *testing.T) {
	t.Run("creates an account and returns its summary", func(t *testing.T) {
		s := newTestServer(t)

		resp := s.api.Post("/users", map[string]any{
			"name":     "Ada",
			"email":    " Ada@Example.com ",
			"password": "secret1",
		})

		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		body := decode[handlers.AccountBody](t, resp)
		assert.NotEmpty(t, body.ID)
		assert.Equal(t, "ada@example.com", body.Email)
		assert.Equal(t, 1, body.Tier)
		assert.NotContains(t, resp.Body.String(), "password")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 1)

		resp := s.api.Post("/users", map[string]any{"name": "Ada", "email": "ada@example.com", "password": "secret1"})

		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("invalid input is a bad request", func(t *testing.T) {
		s := newTestServer(t)

		resp := s.api.Post("/users", map[string]any{"name": "Ada", "email": "not-an-email", "password": "secret1"})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestCreateLink(t *testing.T) {
	t.Run("creates then returns the same link idempotently", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 1)

		first := s.shorten("ada@example.com", map[string]any{"url": "https://example.com/long"})
		require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

		created := decode[handlers.LinkBody](t, first)
		assert.Len(t, created.ShortToken, shortener.DefaultTokenLength)
		assert.Equal(t, baseURL+"/"+created.ShortToken, created.ShortURL)
		assert.Equal(t, created.ShortURL, first.Header().Get("Location"))
		assert.Equal(t, "https://example.com/long", created.LongURL)

		second := s.shorten("ada@example.com", map[string]any{"url": "https://example.com/long"})
		require.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, created.ShortToken, decode[handlers.LinkBody](t, second).ShortToken)

		acct, _ := s.store.GetAccountByEmail(context.Background(), "ada@example.com")
		assert.Equal(t, int64(1), acct.RequestCount)

		require.Len(t, s.events.events, 1, "only new links are announced")
		assert.Equal(t, created.ShortToken, s.events.events[0].Token)
		assert.False(t, s.events.events[0].Custom)
	})

	t.Run("custom token is used and conflicts across accounts", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 1)
		s.register(t, "bob@example.com", 1)

		first := s.shorten("ada@example.com", map[string]any{"url": "http://example.com", "customToken": "mylink"})
		require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
		assert.Equal(t, "mylink", decode[handlers.LinkBody](t, first).ShortToken)
		assert.True(t, s.events.events[0].Custom)

		second := s.shorten("bob@example.com", map[string]any{"url": "http://other.com", "customToken": "mylink"})
		assert.Equal(t, http.StatusConflict, second.Code)

		redirect := s.api.Get("/mylink")
		assert.Equal(t, "http://example.com", redirect.Header().Get("Location"))
	})

	t.Run("malformed custom token is a bad request", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 1)

		resp := s.shorten("ada@example.com", map[string]any{"url": "https://example.com", "customToken": "bad token!"})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("quota exhaustion is too many requests", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 1)

		for i := range 5 {
			resp := s.shorten("ada@example.com", map[string]any{"url": fmt.Sprintf("https://example.com/%d", i)})
			require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		}

		resp := s.shorten("ada@example.com", map[string]any{"url": "https://example.com/6"})

		assert.Equal(t, http.StatusTooManyRequests, resp.Code)

		links, _ := s.store.ListByAccount(context.Background(), mustAccount(t, s, "ada@example.com").ID)
		assert.Len(t, links, 5)
	})

	t.Run("unknown tier cannot create links", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 9)

		resp := s.shorten("ada@example.com", map[string]any{"url": "https://example.com"})

		assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	})

	t.Run("authentication failures", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 1)
		body := map[string]any{"url": "https://example.com"}

		missing := s.api.Post("/links", body)
		assert.Equal(t, http.StatusUnauthorized, missing.Code)
		assert.NotEmpty(t, missing.Header().Get("WWW-Authenticate"))

		wrong := s.api.Post("/links", authHeader("ada@example.com", "wrong"), body)
		unknown := s.api.Post("/links", authHeader("nobody@example.com", "secret1"), body)
		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.JSONEq(t, wrong.Body.String(), unknown.Body.String(), "failures must be indistinguishable")

		malformed := s.api.Post("/links", "Authorization: Basic ???", body)
		assert.Equal(t, http.StatusBadRequest, malformed.Code)
		assert.Contains(t, malformed.Body.String(), "malformed credentials")
	})

	t.Run("publish failures do not fail the request", func(t *testing.T) {
		s := newTestServer(t)
		s.events.err = errors.New("stream down")
		s.register(t, "ada@example.com", 1)

		resp := s.shorten("ada@example.com", map[string]any{"url": "https://example.com"})

		assert.Equal(t, http.StatusCreated, resp.Code)
	})
}

func mustAccount(t *testing.T, s *testServer, email string) *account.Account {
	t.Helper()

	acct, err := s.store.GetAccountByEmail(context.Background(), email)
	require.NoError(t, err)

	return acct
}

func TestRedirect(t *testing.T) {
	t.Run("redirects and counts hits", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 1)

		created := decode[handlers.LinkBody](t, s.shorten("ada@example.com", map[string]any{"url": "https://example.com/a?b=c"}))

		for range 3 {
			resp := s.api.Get("/" + created.ShortToken)

			require.Equal(t, http.StatusFound, resp.Code)
			assert.Equal(t, "https://example.com/a?b=c", resp.Header().Get("Location"))
		}

		require.NoError(t, s.worker.Shutdown())

		list := s.api.Get("/links", authHeader("ada@example.com", "secret1"))
		require.Equal(t, http.StatusOK, list.Code)

		body := decode[linkList](t, list)
		require.Len(t, body.Links, 1)
		assert.Equal(t, int64(3), body.Links[0].HitCount)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		s := newTestServer(t)

		assert.Equal(t, http.StatusNotFound, s.api.Get("/not_a_real_token").Code)
	})

	t.Run("malformed token is a bad request", func(t *testing.T) {
		s := newTestServer(t)

		assert.Equal(t, http.StatusBadRequest, s.api.Get("/bad%20token!").Code)
	})
}

func TestListLinks(t *testing.T) {
	t.Run("lists only the caller's links", func(t *testing.T) {
		s := newTestServer(t)
		s.register(t, "ada@example.com", 1)
		s.register(t, "bob@example.com", 1)

		s.shorten("ada@example.com", map[string]any{"url": "https://example.com/ada"})
		s.shorten("bob@example.com", map[string]any{"url": "https://example.com/bob"})

		resp := s.api.Get("/links", authHeader("bob@example.com", "secret1"))
		require.Equal(t, http.StatusOK, resp.Code)

		body := decode[linkList](t, resp)
		require.Len(t, body.Links, 1)
		assert.Equal(t, "https://example.com/bob", body.Links[0].LongURL)
	})

	t.Run("requires authentication", func(t *testing.T) {
		s := newTestServer(t)

		assert.Equal(t, http.StatusUnauthorized, s.api.Get("/links").Code)
	})
}
