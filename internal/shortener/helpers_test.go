package shortener_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/tiered-shortener/internal/account"
	"github.com/serroba/tiered-shortener/internal/quota"
	"github.com/serroba/tiered-shortener/internal/shortener"
	"github.com/serroba/tiered-shortener/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createAccount(t *testing.T, s *store.MemoryStore, email string, tier int, used int64) *account.Account {
	t.Helper()

	acct := &account.Account{
		ID:           uuid.NewString(),
		Name:         "Test",
		Email:        email,
		PasswordHash: "hash",
		Tier:         tier,
		RequestCount: used,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateAccount(context.Background(), acct))

	return acct
}

// sequence returns a generator that yields tokens in order, then repeats the last.
func sequence(tokens ...string) shortener.Generator {
	var (
		mu sync.Mutex
		i  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		token := tokens[min(i, len(tokens)-1)]
		i++

		return token
	}
}

func newService(repo shortener.Repository, generate shortener.Generator) *shortener.Service {
	return shortener.NewService(repo, quota.NewGate(quota.DefaultTierLimits()), generate, shortener.DefaultMaxAttempts, zap.NewNop())
}

// failingRepository fails every call with err.
type failingRepository struct {
	err error
}

func (f *failingRepository) FindByLongURL(context.Context, string, string) (*shortener.Link, error) {
	return nil, f.err
}

func (f *failingRepository) FindByToken(context.Context, shortener.Token) (*shortener.Link, error) {
	return nil, f.err
}

func (f *failingRepository) ListByAccount(context.Context, string) ([]*shortener.Link, error) {
	return nil, f.err
}

func (f *failingRepository) RecordHit(context.Context, shortener.Token) error {
	return f.err
}

func (f *failingRepository) WithinTx(context.Context, func(context.Context, shortener.Tx) error) error {
	return f.err
}

// mockRecorder collects recorded hits.
type mockRecorder struct {
	mu     sync.Mutex
	tokens []shortener.Token
}

func (m *mockRecorder) Record(token shortener.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens = append(m.tokens, token)
}
