package tcp

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseBuy(t *testing.T) {
	cmd, err := Parse("BUY AAPL 10 5.00 1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Kind != KindBuy {
		t.Errorf("expected KindBuy, got %v", cmd.Kind)
	}
	if cmd.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %q", cmd.Symbol)
	}
	if !cmd.Amount.Equal(decimal.NewFromInt(10)) || !cmd.Price.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected amount=10 price=5, got %v, %v", cmd.Amount, cmd.Price)
	}
	if cmd.UserID != 1 {
		t.Errorf("expected user 1, got %d", cmd.UserID)
	}
}

func TestParseCaseInsensitiveKeyword(t *testing.T) {
	cmd, err := Parse("  sell IBM 2.5 100.25 7  ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Kind != KindSell {
		t.Errorf("expected KindSell, got %v", cmd.Kind)
	}
	if !cmd.Amount.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("expected fractional amount 2.5, got %v", cmd.Amount)
	}
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		reply string
	}{
		{"empty line", "", "400 Invalid command"},
		{"unknown keyword", "HODL AAPL", "400 Invalid command"},
		{"buy missing args", "BUY AAPL 10", "400 Invalid BUY format"},
		{"buy extra args", "BUY AAPL 10 5.00 1 extra", "400 Invalid BUY format"},
		{"buy bad amount", "BUY AAPL ten 5.00 1", "400 Invalid BUY format"},
		{"buy zero amount", "BUY AAPL 0 5.00 1", "400 Invalid BUY format"},
		{"buy negative amount", "BUY AAPL -3 5.00 1", "400 Invalid BUY format"},
		{"buy bad price", "BUY AAPL 10 cheap 1", "400 Invalid BUY format"},
		{"buy bad user", "BUY AAPL 10 5.00 alice", "400 Invalid BUY format"},
		{"sell wrong arity", "SELL AAPL", "400 Invalid SELL format"},
		{"sell zero price", "SELL AAPL 1 0 1", "400 Invalid SELL format"},
		{"list missing user", "LIST", "400 Invalid LIST format"},
		{"list bad user", "LIST one", "400 Invalid LIST format"},
		{"balance wrong arity", "BALANCE 1 2", "400 Invalid BALANCE format"},
		{"quit with args", "QUIT now", "400 Invalid QUIT format"},
		{"shutdown with args", "SHUTDOWN -f", "400 Invalid SHUTDOWN format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.line)
			if err == nil {
				t.Fatalf("expected parse error for %q", tc.line)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Reply != tc.reply {
				t.Errorf("expected reply %q, got %q", tc.reply, perr.Reply)
			}
		})
	}
}

func TestParseSignals(t *testing.T) {
	cmd, err := Parse("quit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Kind != KindQuit {
		t.Errorf("expected KindQuit, got %v", cmd.Kind)
	}

	cmd, err = Parse("SHUTDOWN")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Kind != KindShutdown {
		t.Errorf("expected KindShutdown, got %v", cmd.Kind)
	}
}
