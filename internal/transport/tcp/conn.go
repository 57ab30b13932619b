package tcp

import (
	"context"
	"net"
	"time"

	"github.com/vovakirdan/wireboard/internal/proto"
	"github.com/vovakirdan/wireboard/internal/session"
)

// conn frames a stream socket as newline-delimited JSON documents.
type conn struct {
	c net.Conn
	r *proto.FrameReader
	w *proto.FrameWriter
}

var _ session.Conn = (*conn)(nil)

func newConn(c net.Conn, maxFrameBytes int) *conn {
	return &conn{
		c: c,
		r: proto.NewFrameReader(c, maxFrameBytes),
		w: proto.NewFrameWriter(c),
	}
}

// ReadFrame blocks until a full line arrives. Cancellation is handled by the
// session closing the socket.
func (c *conn) ReadFrame(context.Context) ([]byte, error) {
	return c.r.ReadFrame()
}

func (c *conn) WriteFrame(ctx context.Context, frame []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		if err := c.c.SetWriteDeadline(dl); err != nil {
			return err
		}
		defer c.c.SetWriteDeadline(time.Time{})
	}
	return c.w.WriteFrame(frame)
}

func (c *conn) Close() error { return c.c.Close() }

func (c *conn) RemoteAddr() string { return c.c.RemoteAddr().String() }
