package port

import (
	"context"

	"github.com/shopspring/decimal"

	"stockx/internal/domain"
)

// Ledger is the set of reads and writes the trading engine performs against
// the store. Lookups return domain.ErrUserNotFound / domain.ErrPositionNotFound
// when no row matches.
type Ledger interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, u *domain.User) (int64, error)
	UpdateUserBalance(ctx context.Context, id int64, balance decimal.Decimal) error

	GetPosition(ctx context.Context, userID int64, symbol string) (*domain.Position, error)
	GetAllPositions(ctx context.Context, userID int64) ([]*domain.Position, error)
	CreatePosition(ctx context.Context, p *domain.Position) (int64, error)
	UpdatePositionQuantity(ctx context.Context, positionID int64, quantity decimal.Decimal) error
}

// LedgerStore is a Ledger that can also scope a group of operations into one
// isolated transaction. RunInTransaction executes fn against a transactional
// Ledger; if fn returns an error every write inside it is rolled back.
// Concurrent transactions touching the same user serialize against each other.
type LedgerStore interface {
	Ledger
	RunInTransaction(ctx context.Context, fn func(tx Ledger) error) error
	Close() error
}
