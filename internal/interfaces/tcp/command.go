package tcp

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind identifies one protocol command.
type Kind int

const (
	KindBuy Kind = iota
	KindSell
	KindList
	KindBalance
	KindQuit
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindBuy:
		return "BUY"
	case KindSell:
		return "SELL"
	case KindList:
		return "LIST"
	case KindBalance:
		return "BALANCE"
	case KindQuit:
		return "QUIT"
	case KindShutdown:
		return "SHUTDOWN"
	}
	return "UNKNOWN"
}

// Command is one parsed request line. Only the fields for the given Kind are
// set: Symbol/Amount/Price/UserID for trades, UserID for LIST and BALANCE.
type Command struct {
	Kind   Kind
	Symbol string
	Amount decimal.Decimal
	Price  decimal.Decimal
	UserID int64
}

// ParseError carries the single response line sent back for rejected input.
type ParseError struct {
	Reply string
}

func (e *ParseError) Error() string { return e.Reply }

func invalidFormat(keyword string) *ParseError {
	return &ParseError{Reply: "400 Invalid " + keyword + " format"}
}

// Parse tokenizes one request line into a typed command. The keyword is
// case-insensitive. Unknown keywords, wrong arity and unparseable arguments
// all come back as a *ParseError; nothing here touches the ledger.
func Parse(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, &ParseError{Reply: "400 Invalid command"}
	}
	keyword := strings.ToUpper(fields[0])
	args := fields[1:]

	switch keyword {
	case "BUY":
		return parseTrade(KindBuy, keyword, args)
	case "SELL":
		return parseTrade(KindSell, keyword, args)
	case "LIST":
		return parseUserQuery(KindList, keyword, args)
	case "BALANCE":
		return parseUserQuery(KindBalance, keyword, args)
	case "QUIT":
		if len(args) != 0 {
			return nil, invalidFormat(keyword)
		}
		return &Command{Kind: KindQuit}, nil
	case "SHUTDOWN":
		if len(args) != 0 {
			return nil, invalidFormat(keyword)
		}
		return &Command{Kind: KindShutdown}, nil
	default:
		return nil, &ParseError{Reply: "400 Invalid command"}
	}
}

// parseTrade handles BUY and SELL: symbol, amount, price, userId. Amount and
// price must be strictly positive; a non-positive amount would turn a buy
// into a withdrawal and break conservation.
func parseTrade(kind Kind, keyword string, args []string) (*Command, error) {
	if len(args) != 4 {
		return nil, invalidFormat(keyword)
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil || !amount.IsPositive() {
		return nil, invalidFormat(keyword)
	}
	price, err := decimal.NewFromString(args[2])
	if err != nil || !price.IsPositive() {
		return nil, invalidFormat(keyword)
	}
	userID, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return nil, invalidFormat(keyword)
	}
	return &Command{Kind: kind, Symbol: args[0], Amount: amount, Price: price, UserID: userID}, nil
}

func parseUserQuery(kind Kind, keyword string, args []string) (*Command, error) {
	if len(args) != 1 {
		return nil, invalidFormat(keyword)
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, invalidFormat(keyword)
	}
	return &Command{Kind: kind, UserID: userID}, nil
}
