package tcp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"stockx/internal/application/service"
)

type ServerDeps struct {
	Engine        *service.Engine
	ListenAddr    string
	ReadTimeout   time.Duration
	ShutdownGrace time.Duration
}

// Server owns the accept loop and the global shutdown. Each accepted
// connection gets its own goroutine; a SHUTDOWN command (or context cancel)
// stops accepting, gives in-flight sessions a grace period, then force-closes
// what is left.
type Server struct {
	deps ServerDeps

	ln       net.Listener
	stopped  chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		deps:    deps,
		stopped: make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Listen binds the listener. Split from Serve so callers can bind to ":0"
// and read the assigned address before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.deps.ListenAddr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop initiates shutdown: the accept loop unblocks and Serve begins
// draining. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
		case <-s.stopped:
		}
		_ = s.ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
			case <-s.stopped:
			default:
				log.Error().Err(err).Msg("accept failed")
			}
			break
		}
		s.track(conn)
		wg.Add(1)

		remote := conn.RemoteAddr().String()
		log.Info().Str("remote", remote).Msg("client connected")

		go func(conn net.Conn) {
			defer wg.Done()
			defer s.untrack(conn)
			sess := &session{
				conn:        conn,
				engine:      s.deps.Engine,
				readTimeout: s.deps.ReadTimeout,
				shutdown:    s.Stop,
				log:         log.With().Str("remote", remote).Logger(),
			}
			sess.run(ctx)
			log.Info().Str("remote", remote).Msg("client disconnected")
		}(conn)
	}

	// Drain in-flight sessions, bounded by the grace period.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.deps.ShutdownGrace):
		log.Warn().Msg("grace period elapsed, closing remaining connections")
		s.closeAll()
		<-done
	}

	log.Info().Msg("server stopped")
	return nil
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}
