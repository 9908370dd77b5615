package domain

import "github.com/shopspring/decimal"

// User is one account in the ledger. Password is an opaque credential kept
// for schema compatibility; the server never authenticates against it.
type User struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
	UserName  string
	Password  string
	Balance   decimal.Decimal // USD, never negative
}

// Position is a user's holding of one ticker symbol. A user has at most one
// position row per symbol; repeated buys accumulate into the same row.
type Position struct {
	ID       int64
	Symbol   string
	Name     string
	Quantity decimal.Decimal // shares, fractional allowed, never negative
	UserID   int64
}

// Trade sides as they appear in published events.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// TradeEvent describes one executed order. Published after the ledger
// transaction commits.
type TradeEvent struct {
	Side     string          `json:"side"`
	Symbol   string          `json:"symbol"`
	Amount   decimal.Decimal `json:"amount"`
	Price    decimal.Decimal `json:"price"`
	UserID   int64           `json:"user_id"`
	Quantity decimal.Decimal `json:"quantity"` // position quantity after the trade
	Balance  decimal.Decimal `json:"balance"`  // user balance after the trade
	Ts       int64           `json:"ts_ms"`
}
