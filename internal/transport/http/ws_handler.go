package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireboard/internal/session"
)

// WSHandler upgrades HTTP connections and runs a session over each.
type WSHandler struct {
	handler       *session.Handler
	maxFrameBytes int
	log           *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(handler *session.Handler, maxFrameBytes int, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{handler: handler, maxFrameBytes: maxFrameBytes, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	conn.SetReadLimit(int64(h.maxFrameBytes))

	h.handler.Serve(r.Context(), &wsConn{c: conn, remote: r.RemoteAddr})
}

// wsConn carries one JSON document per text message.
type wsConn struct {
	c      *websocket.Conn
	remote string
}

var _ session.Conn = (*wsConn)(nil)

func (w *wsConn) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := w.c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil, io.EOF
			}
			return nil, err
		}
		if typ != websocket.MessageText {
			continue
		}
		return data, nil
	}
}

func (w *wsConn) WriteFrame(ctx context.Context, frame []byte) error {
	return w.c.Write(ctx, websocket.MessageText, frame)
}

func (w *wsConn) Close() error {
	err := w.c.Close(websocket.StatusNormalClosure, "closing")
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return nil
	}
	return err
}

func (w *wsConn) RemoteAddr() string { return w.remote }
