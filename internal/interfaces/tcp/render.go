package tcp

import (
	"bufio"
	"errors"
	"fmt"

	"stockx/internal/application/service"
	"stockx/internal/domain"
)

// Terminator is the sentinel line ending every response. Clients read lines
// until they see it, so response boundaries never depend on socket buffering.
const Terminator = "."

// writeResponse frames lines with the terminator and flushes in one write.
func writeResponse(w *bufio.Writer, lines ...string) error {
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	if _, err := w.WriteString(Terminator + "\n"); err != nil {
		return err
	}
	return w.Flush()
}

func renderTrade(verb string, res *service.TradeResult) []string {
	return []string{
		"200 OK",
		fmt.Sprintf("%s: New balance: %s %s. USD balance $%s",
			verb, res.Quantity.String(), res.Symbol, res.Balance.StringFixed(2)),
	}
}

func renderList(userID int64, positions []*domain.Position) []string {
	lines := []string{
		"200 OK",
		fmt.Sprintf("The list of records in the Stocks database for user %d:", userID),
	}
	for _, p := range positions {
		lines = append(lines, fmt.Sprintf("%d %s %s %d", p.ID, p.Symbol, p.Quantity.String(), p.UserID))
	}
	return lines
}

func renderBalance(res *service.BalanceResult) []string {
	return []string{
		"200 OK",
		fmt.Sprintf("Balance for user %s %s: $%s", res.FirstName, res.LastName, res.Balance.StringFixed(2)),
	}
}

// replyForError maps an engine failure to its single wire line. Anything
// outside the domain taxonomy is a store problem and stays opaque to the
// client.
func replyForError(cmd *Command, err error) string {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Insufficient funds."
	case errors.Is(err, domain.ErrInsufficientHoldings):
		return fmt.Sprintf("Not enough %s stock balance.", cmd.Symbol)
	default:
		return "500 Internal error."
	}
}
