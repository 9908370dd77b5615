package tcp

import (
	"bufio"
	"context"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockx/internal/application/service"
	"stockx/internal/domain"
	"stockx/internal/infrastructure/storage/memory"
)

func startTestServer(t *testing.T, readTimeout time.Duration) (*Server, <-chan struct{}) {
	t.Helper()

	store := memory.New()
	_, err := store.CreateUser(context.Background(), &domain.User{
		Email:     "default@example.com",
		FirstName: "John",
		LastName:  "Doe",
		UserName:  "johndoe",
		Password:  "password",
		Balance:   decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	srv := NewServer(ServerDeps{
		Engine:        service.NewEngine(store, nil),
		ListenAddr:    "127.0.0.1:0",
		ReadTimeout:   readTimeout,
		ShutdownGrace: time.Second,
	})
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		_ = srv.Serve(ctx)
		close(served)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-served:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv, served
}

type testClient struct {
	conn net.Conn
	in   *bufio.Scanner
	out  *bufio.Writer
}

func dialTest(t *testing.T, srv *Server) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{conn: conn, in: bufio.NewScanner(conn), out: bufio.NewWriter(conn)}
}

// send writes one command line and reads the response up to the sentinel.
func (c *testClient) send(t *testing.T, line string) []string {
	t.Helper()
	if _, err := c.out.WriteString(line + "\n"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := c.out.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	var lines []string
	for c.in.Scan() {
		if c.in.Text() == Terminator {
			return lines
		}
		lines = append(lines, c.in.Text())
	}
	t.Fatalf("connection closed before sentinel, got %q so far", lines)
	return nil
}

func (c *testClient) expect(t *testing.T, line string, want ...string) {
	t.Helper()
	got := c.send(t, line)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%q:\n  got  %q\n  want %q", line, got, want)
	}
}

func TestTradingSession(t *testing.T) {
	srv, _ := startTestServer(t, 0)
	c := dialTest(t, srv)

	c.expect(t, "BUY AAPL 10 5.00 1",
		"200 OK",
		"BOUGHT: New balance: 10 AAPL. USD balance $50.00")
	c.expect(t, "SELL AAPL 4 6.00 1",
		"200 OK",
		"SOLD: New balance: 6 AAPL. USD balance $74.00")
	c.expect(t, "BALANCE 1",
		"200 OK",
		"Balance for user John Doe: $74.00")
	c.expect(t, "LIST 1",
		"200 OK",
		"The list of records in the Stocks database for user 1:",
		"1 AAPL 6 1")

	// failures leave the session open
	c.expect(t, "BUY AAPL 10", "400 Invalid BUY format")
	c.expect(t, "BUY AAPL 10 5.00 999", "User not found.")
	c.expect(t, "BUY AAPL 100 100 1", "Insufficient funds.")
	c.expect(t, "SELL MSFT 1 1.00 1", "Not enough MSFT stock balance.")
	c.expect(t, "bogus", "400 Invalid command")
	c.expect(t, "BALANCE 1",
		"200 OK",
		"Balance for user John Doe: $74.00")
}

func TestSecondBuyIncrementsSameRow(t *testing.T) {
	srv, _ := startTestServer(t, 0)
	c := dialTest(t, srv)

	c.expect(t, "BUY AAPL 3 5.00 1",
		"200 OK",
		"BOUGHT: New balance: 3 AAPL. USD balance $85.00")
	c.expect(t, "BUY AAPL 2 5.00 1",
		"200 OK",
		"BOUGHT: New balance: 5 AAPL. USD balance $75.00")
	c.expect(t, "LIST 1",
		"200 OK",
		"The list of records in the Stocks database for user 1:",
		"1 AAPL 5 1")
}

func TestQuitClosesOnlyThisConnection(t *testing.T) {
	srv, _ := startTestServer(t, 0)

	c1 := dialTest(t, srv)
	c1.expect(t, "QUIT", "200 OK")

	// server closes the connection after the acknowledgement
	_ = c1.conn.SetReadDeadline(time.Now().Add(time.Second))
	if c1.in.Scan() {
		t.Errorf("expected EOF after QUIT, got %q", c1.in.Text())
	}

	// other clients are unaffected
	c2 := dialTest(t, srv)
	c2.expect(t, "BALANCE 1",
		"200 OK",
		"Balance for user John Doe: $100.00")
}

func TestShutdownStopsServer(t *testing.T) {
	srv, served := startTestServer(t, 0)

	c := dialTest(t, srv)
	c.expect(t, "SHUTDOWN", "200 OK")

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("server should stop after SHUTDOWN")
	}

	if conn, err := net.Dial("tcp", srv.Addr().String()); err == nil {
		conn.Close()
		t.Error("dial should fail after SHUTDOWN")
	}
}

func TestReadTimeoutReclaimsStalledConnection(t *testing.T) {
	srv, _ := startTestServer(t, 100*time.Millisecond)

	c := dialTest(t, srv)
	// send nothing; the server should drop us once the deadline passes
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if c.in.Scan() {
		t.Errorf("expected connection close, got %q", c.in.Text())
	}
}
