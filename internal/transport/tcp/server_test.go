package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wireboard/internal/core"
	"github.com/vovakirdan/wireboard/internal/dispatch"
	"github.com/vovakirdan/wireboard/internal/proto"
	"github.com/vovakirdan/wireboard/internal/session"
)

func newTestServer(t *testing.T) (*Server, *core.Directory) {
	t.Helper()
	logger := zerolog.Nop()
	dir := core.NewDirectory()
	store := core.NewGroupStore("public", []core.GroupSpec{
		{ID: "public", Name: "Public Message Board"},
		{ID: "tech", Name: "Technology Discussion"},
	}, core.NewNotifier(dir, &logger))
	handler := session.NewHandler(dir, store, dispatch.New(store, &logger), session.Options{WriteTimeout: time.Second}, &logger)

	srv := NewServer(handler, 4096, &logger)
	require.NoError(t, srv.Listen("127.0.0.1:0"))
	return srv, dir
}

func startServer(t *testing.T) (*Server, *core.Directory, context.CancelFunc, chan error) {
	t.Helper()
	srv, dir := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(cancel)
	return srv, dir, cancel, done
}

type client struct {
	t    *testing.T
	conn net.Conn
	sc   *bufio.Scanner
}

func dial(t *testing.T, srv *Server) *client {
	t.Helper()
	c, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return &client{t: t, conn: c, sc: bufio.NewScanner(c)}
}

func (c *client) send(doc string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(doc + "\n"))
	require.NoError(c.t, err)
}

func (c *client) next() map[string]any {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.True(c.t, c.sc.Scan(), "read: %v", c.sc.Err())
	var doc map[string]any
	require.NoError(c.t, json.Unmarshal(c.sc.Bytes(), &doc))
	return doc
}

func (c *client) do(doc string) map[string]any {
	c.t.Helper()
	c.send(doc)
	return c.next()
}

func TestTCPEndToEnd(t *testing.T) {
	srv, _, _, _ := startServer(t)

	a := dial(t, srv)
	require.Equal(t, "Welcome to the Bulletin Board, A!", a.do(`{"command":"REGISTER","username":"A"}`)["message"])
	a.do(`{"command":"JOIN"}`)
	require.Equal(t, float64(1), a.do(`{"command":"POST","subject":"Hi","content":"hello"}`)["msg_id"])

	b := dial(t, srv)
	b.do(`{"command":"REGISTER","username":"B"}`)
	r := b.do(`{"command":"JOIN"}`)
	require.Equal(t, []any{"A", "B"}, r["users"])
	require.Len(t, r["recent_messages"], 1)

	n := a.next()
	require.Equal(t, proto.TypeNotification, n["type"])
	require.Equal(t, "B has joined the group", n["message"])

	r = b.do(`{"command":"GROUPS"}`)
	groups := r["groups"].([]any)
	require.Len(t, groups, 1)
	require.Equal(t, "tech", groups[0].(map[string]any)["group_id"])
}

func TestTCPClientDropNotifiesPeers(t *testing.T) {
	srv, dir, _, _ := startServer(t)

	a := dial(t, srv)
	a.do(`{"command":"REGISTER","username":"A"}`)
	a.do(`{"command":"JOIN"}`)

	b := dial(t, srv)
	b.do(`{"command":"REGISTER","username":"B"}`)
	b.do(`{"command":"JOIN"}`)
	require.Equal(t, "B has joined the group", a.next()["message"])

	require.NoError(t, b.conn.Close())
	require.Equal(t, "B has disconnected", a.next()["message"])
	require.Eventually(t, func() bool { return dir.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestTCPShutdownDrainsSessions(t *testing.T) {
	srv, dir, cancel, done := startServer(t)

	a := dial(t, srv)
	a.do(`{"command":"REGISTER","username":"A"}`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return")
	}
	require.Equal(t, 0, dir.Len())

	_ = a.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.False(t, a.sc.Scan())
}

func TestListenRejectsBusyPort(t *testing.T) {
	srv, _, _, _ := startServer(t)

	logger := zerolog.Nop()
	other := NewServer(nil, 4096, &logger)
	require.Error(t, other.Listen(srv.Addr().String()))
}

// scriptedListener fails Accept with the queued errors, a nil entry meaning
// "accept for real".
type scriptedListener struct {
	net.Listener

	mu     sync.Mutex
	script []error
}

func (l *scriptedListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	var err error
	if len(l.script) > 0 {
		err, l.script = l.script[0], l.script[1:]
	}
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return l.Listener.Accept()
}

func TestServeRetriesOnFileDescriptorExhaustion(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.ln = &scriptedListener{Listener: srv.ln, script: []error{
		&net.OpError{Op: "accept", Net: "tcp", Err: syscall.EMFILE},
		&net.OpError{Op: "accept", Net: "tcp", Err: syscall.ENFILE},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx) }()

	c := dial(t, srv)
	require.Equal(t, proto.StatusSuccess, c.do(`{"command":"REGISTER","username":"A"}`)["status"])
}

func TestServeReturnsOnFatalAcceptError(t *testing.T) {
	srv, _ := newTestServer(t)
	broken := errors.New("listener broken")
	srv.ln = &scriptedListener{Listener: srv.ln, script: []error{nil, broken}}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	// The first connection is accepted; the next Accept fails while its
	// session is still open.
	c := dial(t, srv)

	select {
	case err := <-done:
		require.ErrorIs(t, err, broken)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after a fatal accept error")
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.False(t, c.sc.Scan())
}
