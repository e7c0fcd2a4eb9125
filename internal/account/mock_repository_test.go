package account_test

import (
	"context"
	"sync"

	"github.com/serroba/tiered-shortener/internal/account"
)

type mockRepository struct {
	mu        sync.Mutex
	accounts  map[string]*account.Account
	createErr error
	getErr    error
	lookups   []string
}

func newMockRepository() *mockRepository {
	return &mockRepository{accounts: make(map[string]*account.Account)}
}

func (m *mockRepository) CreateAccount(_ context.Context, acct *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}

	if _, ok := m.accounts[acct.Email]; ok {
		return account.ErrEmailTaken
	}

	stored := *acct
	m.accounts[acct.Email] = &stored

	return nil
}

func (m *mockRepository) GetAccountByEmail(_ context.Context, email string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lookups = append(m.lookups, email)

	if m.getErr != nil {
		return nil, m.getErr
	}

	acct, ok := m.accounts[email]
	if !ok {
		return nil, account.ErrNotFound
	}

	found := *acct

	return &found, nil
}

// spyHasher counts comparisons made by the code under test.
type spyHasher struct {
	account.Hasher

	compares int
}

func (s *spyHasher) Compare(hash, password string) error {
	s.compares++

	return s.Hasher.Compare(hash, password)
}
