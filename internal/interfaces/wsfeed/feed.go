// Package wsfeed broadcasts executed trades to websocket subscribers. It is
// an optional observer surface; the trading protocol itself stays on TCP.
package wsfeed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"stockx/internal/application/port"
	"stockx/internal/domain"
)

const writeTimeout = 5 * time.Second

type Feed struct {
	upgrader websocket.Upgrader
	srv      *http.Server

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func New(addr string) *Feed {
	f := &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/trades", f.handleWS)
	f.srv = &http.Server{Addr: addr, Handler: mux}
	return f
}

// Start serves the feed in the background; subscription failures never block
// trading.
func (f *Feed) Start() {
	go func() {
		log.Info().Str("addr", f.srv.Addr).Msg("trade feed listening")
		if err := f.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("trade feed server exited")
		}
	}()
}

func (f *Feed) Close() error {
	f.mu.Lock()
	for c := range f.conns {
		_ = c.Close()
	}
	f.conns = make(map[*websocket.Conn]struct{})
	f.mu.Unlock()
	return f.srv.Close()
}

func (f *Feed) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	f.mu.Lock()
	f.conns[c] = struct{}{}
	f.mu.Unlock()

	// Drain the read side so we notice when the peer goes away.
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		f.drop(c)
	}()
}

func (f *Feed) drop(c *websocket.Conn) {
	f.mu.Lock()
	delete(f.conns, c)
	f.mu.Unlock()
	_ = c.Close()
}

func (f *Feed) PublishTrade(ctx context.Context, ev *domain.TradeEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.conns {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			delete(f.conns, c)
			_ = c.Close()
		}
	}
	return nil
}

var _ port.TradePublisher = (*Feed)(nil)
