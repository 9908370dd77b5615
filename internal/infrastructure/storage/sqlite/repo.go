package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

// Balances and quantities are stored as canonical decimal strings so that
// conservation holds exactly; REAL columns would round fractional amounts.

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ledger runs the SQL against either the plain *sql.DB or an open *sql.Tx.
type ledger struct {
	q querier
}

type Repo struct {
	ledger
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serializes all transactions, which is the isolation
	// the engine relies on for concurrent orders against the same user.
	db.SetMaxOpenConns(1)

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
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  email TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  user_name TEXT NOT NULL,
  password TEXT NOT NULL,
  usd_balance TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity TEXT NOT NULL,
  user_id INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  UNIQUE(user_id, symbol)
);
CREATE INDEX IF NOT EXISTS idx_positions_user ON positions(user_id);
`)
	return err
}

func (r *Repo) RunInTransaction(ctx context.Context, fn func(tx port.Ledger) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
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
		SELECT id, email, first_name, last_name, user_name, password, usd_balance
		FROM users WHERE id = ?
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
		INSERT INTO users(email, first_name, last_name, user_name, password, usd_balance, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, u.Email, u.FirstName, u.LastName, u.UserName, u.Password, u.Balance.String(), time.Now().UnixMilli()).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *ledger) UpdateUserBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	res, err := l.q.ExecContext(ctx, `UPDATE users SET usd_balance = ? WHERE id = ?`, balance.String(), id)
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
		SELECT id, symbol, name, quantity, user_id
		FROM positions WHERE user_id = ? AND symbol = ?
	`, userID, symbol)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPositionNotFound
	}
	return p, err
}

func (l *ledger) GetAllPositions(ctx context.Context, userID int64) ([]*domain.Position, error) {
	rows, err := l.q.QueryContext(ctx, `
		SELECT id, symbol, name, quantity, user_id
		FROM positions WHERE user_id = ? ORDER BY id
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
	now := time.Now().UnixMilli()
	var id int64
	err := l.q.QueryRowContext(ctx, `
		INSERT INTO positions(symbol, name, quantity, user_id, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
		RETURNING id
	`, p.Symbol, name, p.Quantity.String(), p.UserID, now, now).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *ledger) UpdatePositionQuantity(ctx context.Context, positionID int64, quantity decimal.Decimal) error {
	res, err := l.q.ExecContext(ctx, `
		UPDATE positions SET quantity = ?, updated_at = ? WHERE id = ?
	`, quantity.String(), time.Now().UnixMilli(), positionID)
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
