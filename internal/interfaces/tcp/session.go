package tcp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"stockx/internal/application/service"
	"stockx/internal/domain"
)

// sessionState tracks where a connection is in its lifecycle. closing and
// shuttingDown are terminal.
type sessionState int

const (
	stateConnected sessionState = iota
	stateProcessing
	stateClosing
	stateShuttingDown
)

// session runs one connection: read a line, parse, dispatch to the engine,
// write the framed response, repeat until QUIT, SHUTDOWN, EOF or a read
// timeout.
type session struct {
	conn        net.Conn
	engine      *service.Engine
	readTimeout time.Duration
	shutdown    func() // supervisor stop, invoked on SHUTDOWN
	log         zerolog.Logger
}

func (s *session) run(ctx context.Context) {
	defer s.conn.Close()

	in := bufio.NewScanner(s.conn)
	out := bufio.NewWriter(s.conn)

	state := stateConnected
	for state == stateConnected {
		if s.readTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		if !in.Scan() {
			// EOF, peer reset or timeout. There is no client left to report to.
			if err := in.Err(); err != nil {
				s.log.Debug().Err(err).Msg("read failed")
			}
			state = stateClosing
			break
		}

		state = s.process(ctx, in.Text(), out)
	}

	if state == stateShuttingDown {
		// Acknowledged already; close this connection, then stop the whole
		// server.
		_ = s.conn.Close()
		s.shutdown()
	}
}

// process handles one line and returns the next session state.
func (s *session) process(ctx context.Context, line string, out *bufio.Writer) sessionState {
	s.log.Debug().Str("line", line).Msg("received")

	cmd, err := Parse(line)
	if err != nil {
		var perr *ParseError
		reply := "400 Invalid command"
		if errors.As(err, &perr) {
			reply = perr.Reply
		}
		if werr := writeResponse(out, reply); werr != nil {
			return stateClosing
		}
		return stateConnected
	}

	switch cmd.Kind {
	case KindQuit:
		_ = writeResponse(out, "200 OK")
		return stateClosing
	case KindShutdown:
		_ = writeResponse(out, "200 OK")
		return stateShuttingDown
	default:
		lines := s.dispatch(ctx, cmd)
		if werr := writeResponse(out, lines...); werr != nil {
			s.log.Debug().Err(werr).Msg("write failed")
			return stateClosing
		}
		return stateConnected
	}
}

func (s *session) dispatch(ctx context.Context, cmd *Command) []string {
	switch cmd.Kind {
	case KindBuy:
		res, err := s.engine.Buy(ctx, cmd.Symbol, cmd.Amount, cmd.Price, cmd.UserID)
		if err != nil {
			return []string{s.fail(cmd, err)}
		}
		return renderTrade("BOUGHT", res)
	case KindSell:
		res, err := s.engine.Sell(ctx, cmd.Symbol, cmd.Amount, cmd.Price, cmd.UserID)
		if err != nil {
			return []string{s.fail(cmd, err)}
		}
		return renderTrade("SOLD", res)
	case KindList:
		positions, err := s.engine.List(ctx, cmd.UserID)
		if err != nil {
			return []string{s.fail(cmd, err)}
		}
		return renderList(cmd.UserID, positions)
	case KindBalance:
		res, err := s.engine.Balance(ctx, cmd.UserID)
		if err != nil {
			return []string{s.fail(cmd, err)}
		}
		return renderBalance(res)
	}
	return []string{"400 Invalid command"}
}

func (s *session) fail(cmd *Command, err error) string {
	reply := replyForError(cmd, err)
	if !isDomainError(err) {
		s.log.Error().Err(err).Str("command", cmd.Kind.String()).Msg("store failure")
	}
	return reply
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound) ||
		errors.Is(err, domain.ErrInsufficientFunds) ||
		errors.Is(err, domain.ErrInsufficientHoldings)
}
