package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryable abstracts pgxpool.Pool and pgx.Tx.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type accountRepoPG struct {
	db queryable
}

func NewPostgresRepo(pool *pgxpool.Pool) Repository {
	return &accountRepoPG{db: pool}
}

const accountColumns = `id, username, display_name, password_hash, roles, created_at`

// Create relies on the unique index on username; the insert and the
// uniqueness check are a single statement.
func (r *accountRepoPG) Create(ctx context.Context, a *Account) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO account (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO NOTHING`,
		a.ID, a.Username, a.DisplayName, a.PasswordHash, a.Roles, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateUsername
	}
	return nil
}

func (r *accountRepoPG) GetByUsername(ctx context.Context, username string) (*Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM account WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *accountRepoPG) List(ctx context.Context) ([]*Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM account ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Username, &a.DisplayName, &a.PasswordHash, &a.Roles, &a.CreatedAt); err != nil {
		return nil, err
	}
	if a.Roles == nil {
		a.Roles = []string{}
	}
	return &a, nil
}
