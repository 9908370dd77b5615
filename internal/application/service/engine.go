package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

// Engine applies validated orders against the ledger. It is pure business
// logic: parsing happens before it, serialization after it.
type Engine struct {
	store  port.LedgerStore
	events port.TradePublisher
}

func NewEngine(store port.LedgerStore, events port.TradePublisher) *Engine {
	if events == nil {
		events = NewNoopPublisher()
	}
	return &Engine{store: store, events: events}
}

// TradeResult is the outcome of a successful Buy or Sell.
type TradeResult struct {
	Symbol   string
	Quantity decimal.Decimal // position quantity after the trade
	Balance  decimal.Decimal // user balance after the trade
}

// BalanceResult is the outcome of a successful Balance query.
type BalanceResult struct {
	FirstName string
	LastName  string
	Balance   decimal.Decimal
}

// Buy debits amount*price from the user's balance and credits amount shares
// to the user's position for symbol, creating the position on first buy.
// Debit and position update happen in one transaction: either both take
// effect or neither.
func (e *Engine) Buy(ctx context.Context, symbol string, amount, price decimal.Decimal, userID int64) (*TradeResult, error) {
	var res TradeResult
	err := e.store.RunInTransaction(ctx, func(tx port.Ledger) error {
		u, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		cost := amount.Mul(price)
		if u.Balance.LessThan(cost) {
			return domain.ErrInsufficientFunds
		}

		newBalance := u.Balance.Sub(cost)
		if err := tx.UpdateUserBalance(ctx, userID, newBalance); err != nil {
			return err
		}

		pos, err := tx.GetPosition(ctx, userID, symbol)
		switch {
		case errors.Is(err, domain.ErrPositionNotFound):
			if _, err := tx.CreatePosition(ctx, &domain.Position{
				Symbol:   symbol,
				Name:     symbol,
				Quantity: amount,
				UserID:   userID,
			}); err != nil {
				return err
			}
			res = TradeResult{Symbol: symbol, Quantity: amount, Balance: newBalance}
		case err != nil:
			return err
		default:
			newQuantity := pos.Quantity.Add(amount)
			if err := tx.UpdatePositionQuantity(ctx, pos.ID, newQuantity); err != nil {
				return err
			}
			res = TradeResult{Symbol: symbol, Quantity: newQuantity, Balance: newBalance}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, domain.SideBuy, symbol, amount, price, userID, &res)
	return &res, nil
}

// Sell debits amount shares from the user's position for symbol and credits
// amount*price to the balance, again as one all-or-nothing transaction. The
// position row is retained when its quantity reaches zero.
func (e *Engine) Sell(ctx context.Context, symbol string, amount, price decimal.Decimal, userID int64) (*TradeResult, error) {
	var res TradeResult
	err := e.store.RunInTransaction(ctx, func(tx port.Ledger) error {
		u, err := tx.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}

		pos, err := tx.GetPosition(ctx, userID, symbol)
		if errors.Is(err, domain.ErrPositionNotFound) {
			return domain.ErrInsufficientHoldings
		}
		if err != nil {
			return err
		}
		if pos.Quantity.LessThan(amount) {
			return domain.ErrInsufficientHoldings
		}

		newQuantity := pos.Quantity.Sub(amount)
		if err := tx.UpdatePositionQuantity(ctx, pos.ID, newQuantity); err != nil {
			return err
		}

		newBalance := u.Balance.Add(amount.Mul(price))
		if err := tx.UpdateUserBalance(ctx, userID, newBalance); err != nil {
			return err
		}

		res = TradeResult{Symbol: symbol, Quantity: newQuantity, Balance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(ctx, domain.SideSell, symbol, amount, price, userID, &res)
	return &res, nil
}

// List returns the user's positions in insertion order. An unknown user id
// yields an empty list, matching the store contract.
func (e *Engine) List(ctx context.Context, userID int64) ([]*domain.Position, error) {
	return e.store.GetAllPositions(ctx, userID)
}

// Balance returns the user's name and current USD balance.
func (e *Engine) Balance(ctx context.Context, userID int64) (*BalanceResult, error) {
	u, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{FirstName: u.FirstName, LastName: u.LastName, Balance: u.Balance}, nil
}

func (e *Engine) publish(ctx context.Context, side, symbol string, amount, price decimal.Decimal, userID int64, res *TradeResult) {
	ev := &domain.TradeEvent{
		Side:     side,
		Symbol:   symbol,
		Amount:   amount,
		Price:    price,
		UserID:   userID,
		Quantity: res.Quantity,
		Balance:  res.Balance,
		Ts:       time.Now().UnixMilli(),
	}
	if err := e.events.PublishTrade(ctx, ev); err != nil {
		log.Error().Err(err).Str("side", side).Str("symbol", symbol).Int64("user_id", userID).Msg("publish trade failed")
	}
}
