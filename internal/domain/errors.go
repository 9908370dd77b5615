package domain

import "errors"

// Domain rule failures. Each one is terminal for a single command and is
// reported to the client as a single response line; the session stays open.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrPositionNotFound     = errors.New("position not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
)
