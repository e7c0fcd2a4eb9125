package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/tiered-shortener/internal/account"
	"github.com/serroba/tiered-shortener/internal/shortener"
)

const foreignKeyViolation = "23503"

const linkColumns = `id, token, long_url, url_hash, account_id, hit_count, created_at`

// PostgresStore is a PostgreSQL implementation of account.Repository and shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) CreateAccount(ctx context.Context, acct *account.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, password_hash, tier, request_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO NOTHING
	`

	tag, err := p.pool.Exec(ctx, query,
		acct.ID,
		acct.Name,
		acct.Email,
		acct.PasswordHash,
		acct.Tier,
		acct.RequestCount,
		acct.CreatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return account.ErrEmailTaken
	}

	return nil
}

func (p *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `
		SELECT id, name, email, password_hash, tier, request_count, created_at
		FROM accounts
		WHERE email = $1
	`

	var acct account.Account

	err := p.pool.QueryRow(ctx, query, email).Scan(
		&acct.ID,
		&acct.Name,
		&acct.Email,
		&acct.PasswordHash,
		&acct.Tier,
		&acct.RequestCount,
		&acct.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, err
	}

	return &acct, nil
}

func (p *PostgresStore) FindByLongURL(ctx context.Context, accountID, longURL string) (*shortener.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE account_id = $1 AND url_hash = $2 AND long_url = $3
		ORDER BY created_at
		LIMIT 1
	`

	return scanLink(p.pool.QueryRow(ctx, query, accountID, string(shortener.HashURL(longURL)), longURL))
}

func (p *PostgresStore) FindByToken(ctx context.Context, token shortener.Token) (*shortener.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE token = $1
	`

	return scanLink(p.pool.QueryRow(ctx, query, string(token)))
}

func (p *PostgresStore) ListByAccount(ctx context.Context, accountID string) ([]*shortener.Link, error) {
	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE account_id = $1
		ORDER BY created_at, id
	`

	rows, err := p.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]*shortener.Link, 0)

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func (p *PostgresStore) RecordHit(ctx context.Context, token shortener.Token) error {
	tag, err := p.pool.Exec(ctx, `UPDATE links SET hit_count = hit_count + 1 WHERE token = $1`, string(token))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx shortener.Tx) error) error {
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, &postgresTx{tx: tx})
	})
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Reserve(ctx context.Context, link *shortener.Link) error {
	query := `
		INSERT INTO links (` + linkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token) DO NOTHING
	`

	tag, err := t.tx.Exec(ctx, query,
		link.ID,
		string(link.Token),
		link.LongURL,
		string(link.URLHash),
		link.AccountID,
		link.HitCount,
		link.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return account.ErrNotFound
		}

		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrTokenTaken
	}

	return nil
}

func (t *postgresTx) IncrementRequestCount(ctx context.Context, accountID string, limit int64) (bool, error) {
	query := `
		UPDATE accounts
		SET request_count = request_count + 1
		WHERE id = $1 AND request_count < $2
	`

	tag, err := t.tx.Exec(ctx, query, accountID, limit)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (t *postgresTx) AppendRequestLog(ctx context.Context, entry *shortener.RequestLogEntry) error {
	query := `
		INSERT INTO request_log (id, account_id, request_type, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := t.tx.Exec(ctx, query, entry.ID, entry.AccountID, string(entry.Type), entry.Timestamp)
	if err != nil && isForeignKeyViolation(err) {
		return account.ErrNotFound
	}

	return err
}

func scanLink(row pgx.Row) (*shortener.Link, error) {
	var (
		link    shortener.Link
		token   string
		urlHash string
	)

	err := row.Scan(
		&link.ID,
		&token,
		&link.LongURL,
		&urlHash,
		&link.AccountID,
		&link.HitCount,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	link.Token = shortener.Token(token)
	link.URLHash = shortener.URLHash(urlHash)

	return &link, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

// Compile-time checks.
var (
	_ account.Repository   = (*PostgresStore)(nil)
	_ shortener.Repository = (*PostgresStore)(nil)
)
