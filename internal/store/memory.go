package store

import (
	"context"
	"sync"

	"github.com/serroba/tiered-shortener/internal/account"
	"github.com/serroba/tiered-shortener/internal/shortener"
)

type ownerURL struct {
	accountID string
	hash      shortener.URLHash
}

// MemoryStore is an in-memory implementation of account.Repository and
// shortener.Repository. A transaction holds the store lock until it finishes.
type MemoryStore struct {
	mu         sync.Mutex
	accounts   map[string]*account.Account // id -> account
	emails     map[string]string           // email -> id
	links      map[shortener.Token]*shortener.Link
	order      []shortener.Token
	byOwnerURL map[ownerURL]shortener.Token
	requestLog []*shortener.RequestLogEntry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[string]*account.Account),
		emails:     make(map[string]string),
		links:      make(map[shortener.Token]*shortener.Link),
		byOwnerURL: make(map[ownerURL]shortener.Token),
	}
}

func (m *MemoryStore) CreateAccount(_ context.Context, acct *account.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[acct.Email]; ok {
		return account.ErrEmailTaken
	}

	stored := *acct
	m.accounts[acct.ID] = &stored
	m.emails[acct.Email] = acct.ID

	return nil
}

func (m *MemoryStore) GetAccountByEmail(_ context.Context, email string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, account.ErrNotFound
	}

	acct := *m.accounts[id]

	return &acct, nil
}

func (m *MemoryStore) FindByLongURL(_ context.Context, accountID, longURL string) (*shortener.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.byOwnerURL[ownerURL{accountID: accountID, hash: shortener.HashURL(longURL)}]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	link := *m.links[token]

	return &link, nil
}

func (m *MemoryStore) FindByToken(_ context.Context, token shortener.Token) (*shortener.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.links[token]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	link := *stored

	return &link, nil
}

func (m *MemoryStore) ListByAccount(_ context.Context, accountID string) ([]*shortener.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	links := make([]*shortener.Link, 0)

	for _, token := range m.order {
		if stored := m.links[token]; stored.AccountID == accountID {
			link := *stored
			links = append(links, &link)
		}
	}

	return links, nil
}

func (m *MemoryStore) RecordHit(_ context.Context, token shortener.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[token]
	if !ok {
		return shortener.ErrNotFound
	}

	link.HitCount++

	return nil
}

// RequestLog returns the request log entries of an account.
func (m *MemoryStore) RequestLog(_ context.Context, accountID string) ([]*shortener.RequestLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]*shortener.RequestLogEntry, 0)

	for _, e := range m.requestLog {
		if e.AccountID == accountID {
			entry := *e
			entries = append(entries, &entry)
		}
	}

	return entries, nil
}

// WithinTx runs fn while holding the store lock and undoes its writes if it fails.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx shortener.Tx) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m}

	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}

		if err != nil {
			tx.rollback()
		}
	}()

	return fn(ctx, tx)
}

// memoryTx mutates the store directly and keeps an undo log. The store lock is
// held by WithinTx for its whole lifetime.
type memoryTx struct {
	store *MemoryStore
	undo  []func()
}

func (t *memoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}

	t.undo = nil
}

func (t *memoryTx) Reserve(_ context.Context, link *shortener.Link) error {
	m := t.store

	if _, ok := m.links[link.Token]; ok {
		return shortener.ErrTokenTaken
	}

	if _, ok := m.accounts[link.AccountID]; !ok {
		return account.ErrNotFound
	}

	stored := *link
	m.links[link.Token] = &stored
	m.order = append(m.order, link.Token)

	key := ownerURL{accountID: link.AccountID, hash: link.URLHash}
	_, indexed := m.byOwnerURL[key]

	if !indexed {
		m.byOwnerURL[key] = link.Token
	}

	t.undo = append(t.undo, func() {
		delete(m.links, link.Token)
		m.order = m.order[:len(m.order)-1]

		if !indexed {
			delete(m.byOwnerURL, key)
		}
	})

	return nil
}

func (t *memoryTx) IncrementRequestCount(_ context.Context, accountID string, limit int64) (bool, error) {
	acct, ok := t.store.accounts[accountID]
	if !ok {
		return false, account.ErrNotFound
	}

	if acct.RequestCount >= limit {
		return false, nil
	}

	acct.RequestCount++

	t.undo = append(t.undo, func() { acct.RequestCount-- })

	return true, nil
}

func (t *memoryTx) AppendRequestLog(_ context.Context, entry *shortener.RequestLogEntry) error {
	m := t.store

	if _, ok := m.accounts[entry.AccountID]; !ok {
		return account.ErrNotFound
	}

	stored := *entry
	m.requestLog = append(m.requestLog, &stored)

	t.undo = append(t.undo, func() { m.requestLog = m.requestLog[:len(m.requestLog)-1] })

	return nil
}

// Compile-time checks.
var (
	_ account.Repository   = (*MemoryStore)(nil)
	_ shortener.Repository = (*MemoryStore)(nil)
)
