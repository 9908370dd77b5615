// Package memory is an in-process ledger store. It backs the engine tests
// and the "memory" storage backend, where restarts lose all state.
package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

type state struct {
	nextUserID     int64
	nextPositionID int64
	users          map[int64]*domain.User
	positions      []*domain.Position // insertion order
}

// Repo guards all state with one mutex, so a transaction is simply the lock
// held across the whole callback. fn failures restore a pre-transaction
// snapshot, which gives the same all-or-nothing contract as the SQL backends.
type Repo struct {
	mu sync.Mutex
	st state
}

func New() *Repo {
	return &Repo{st: state{users: make(map[int64]*domain.User)}}
}

func (r *Repo) Close() error { return nil }

func (r *Repo) RunInTransaction(ctx context.Context, fn func(tx port.Ledger) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.st.clone()
	if err := fn(&r.st); err != nil {
		r.st = *snap
		return err
	}
	return nil
}

func (r *Repo) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.GetUserByID(ctx, id)
}

func (r *Repo) CountUsers(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.CountUsers(ctx)
}

func (r *Repo) CreateUser(ctx context.Context, u *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.CreateUser(ctx, u)
}

func (r *Repo) UpdateUserBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.UpdateUserBalance(ctx, id, balance)
}

func (r *Repo) GetPosition(ctx context.Context, userID int64, symbol string) (*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.GetPosition(ctx, userID, symbol)
}

func (r *Repo) GetAllPositions(ctx context.Context, userID int64) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.GetAllPositions(ctx, userID)
}

func (r *Repo) CreatePosition(ctx context.Context, p *domain.Position) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.CreatePosition(ctx, p)
}

func (r *Repo) UpdatePositionQuantity(ctx context.Context, positionID int64, quantity decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.UpdatePositionQuantity(ctx, positionID, quantity)
}

// state implements port.Ledger without locking; the caller holds the mutex.

func (s *state) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *state) CountUsers(_ context.Context) (int, error) {
	return len(s.users), nil
}

func (s *state) CreateUser(_ context.Context, u *domain.User) (int64, error) {
	s.nextUserID++
	cp := *u
	cp.ID = s.nextUserID
	s.users[cp.ID] = &cp
	return cp.ID, nil
}

func (s *state) UpdateUserBalance(_ context.Context, id int64, balance decimal.Decimal) error {
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Balance = balance
	return nil
}

func (s *state) GetPosition(_ context.Context, userID int64, symbol string) (*domain.Position, error) {
	for _, p := range s.positions {
		if p.UserID == userID && p.Symbol == symbol {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrPositionNotFound
}

func (s *state) GetAllPositions(_ context.Context, userID int64) ([]*domain.Position, error) {
	var out []*domain.Position
	for _, p := range s.positions {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *state) CreatePosition(_ context.Context, p *domain.Position) (int64, error) {
	s.nextPositionID++
	cp := *p
	cp.ID = s.nextPositionID
	if cp.Name == "" {
		cp.Name = cp.Symbol
	}
	s.positions = append(s.positions, &cp)
	return cp.ID, nil
}

func (s *state) UpdatePositionQuantity(_ context.Context, positionID int64, quantity decimal.Decimal) error {
	for _, p := range s.positions {
		if p.ID == positionID {
			p.Quantity = quantity
			return nil
		}
	}
	return domain.ErrPositionNotFound
}

func (s *state) clone() *state {
	cp := state{
		nextUserID:     s.nextUserID,
		nextPositionID: s.nextPositionID,
		users:          make(map[int64]*domain.User, len(s.users)),
		positions:      make([]*domain.Position, 0, len(s.positions)),
	}
	for id, u := range s.users {
		uc := *u
		cp.users[id] = &uc
	}
	for _, p := range s.positions {
		pc := *p
		cp.positions = append(cp.positions, &pc)
	}
	return &cp
}

var _ port.LedgerStore = (*Repo)(nil)
var _ port.Ledger = (*state)(nil)
