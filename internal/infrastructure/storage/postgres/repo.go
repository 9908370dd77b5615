package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ledger struct {
	q querier
}

type Repo struct {
	ledger
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{ledger: ledger{q: db}, db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  user_name TEXT NOT NULL,
  password TEXT NOT NULL,
  usd_balance NUMERIC NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS positions (
  id BIGSERIAL PRIMARY KEY,
  symbol TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  user_id BIGINT NOT NULL REFERENCES users(id),
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE(user_id, symbol)
);
CREATE INDEX IF NOT EXISTS idx_positions_user ON positions(user_id);
`)
	return err
}

// RunInTransaction uses SERIALIZABLE isolation so two concurrent orders from
// the same user cannot interleave their read-modify-write steps. A
// serialization failure surfaces as an error; the command is not retried.
func (r *Repo) RunInTransaction(ctx context.Context, fn func(tx port.Ledger) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	if err := fn(&ledger{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (l *ledger) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	row := l.q.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, user_name, password, usd_balance::text
		FROM users WHERE id = $1
	`, id)

	var u domain.User
	var balance string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.UserName, &u.Password, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("user %d: bad usd_balance %q: %w", id, balance, err)
	}
	return &u, nil
}

func (l *ledger) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := l.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (l *ledger) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	var id int64
	err := l.q.QueryRowContext(ctx, `
		INSERT INTO users(email, first_name, last_name, user_name, password, usd_balance)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, u.Email, u.FirstName, u.LastName, u.UserName, u.Password, u.Balance.String()).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *ledger) UpdateUserBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := l.q.ExecContext(ctx, `UPDATE users SET usd_balance = $1 WHERE id = $2`, balance.String(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (l *ledger) GetPosition(ctx context.Context, userID int64, symbol string) (*domain.Position, error) {
	row := l.q.QueryRowContext(ctx, `
		SELECT id, symbol, name, quantity::text, user_id
		FROM positions WHERE user_id = $1 AND symbol = $2
	`, userID, symbol)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPositionNotFound
	}
	return p, err
}

func (l *ledger) GetAllPositions(ctx context.Context, userID int64) ([]*domain.Position, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT id, symbol, name, quantity::text, user_id
		FROM positions WHERE user_id = $1 ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (l *ledger) CreatePosition(ctx context.Context, p *domain.Position) (int64, error) {
	name := p.Name
	if name == "" {
		name = p.Symbol
	}
	var id int64
	err := l.q.QueryRowContext(ctx, `
		INSERT INTO positions(symbol, name, quantity, user_id)
		VALUES($1, $2, $3, $4)
		RETURNING id
	`, p.Symbol, name, p.Quantity.String(), p.UserID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *ledger) UpdatePositionQuantity(ctx context.Context, positionID int64, quantity decimal.Decimal) error {
	res, err := l.q.ExecContext(ctx, `
		UPDATE positions SET quantity = $1, updated_at = now() WHERE id = $2
	`, quantity.String(), positionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var p domain.Position
	var quantity string
	if err := row.Scan(&p.ID, &p.Symbol, &p.Name, &quantity, &p.UserID); err != nil {
		return nil, err
	}
	var err error
	if p.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("position %d: bad quantity %q: %w", p.ID, quantity, err)
	}
	return &p, nil
}

var _ port.LedgerStore = (*Repo)(nil)
