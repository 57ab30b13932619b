// Package http exposes the board over HTTP: a health probe, a read-only group
// listing and a WebSocket endpoint that speaks the same protocol as TCP.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wireboard/internal/config"
	"github.com/vovakirdan/wireboard/internal/core"
	"github.com/vovakirdan/wireboard/internal/dispatch"
	"github.com/vovakirdan/wireboard/internal/session"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the HTTP server. Sessions opened over /ws live as long as
// the server's BaseContext, so callers that need shutdown to reach them set it.
func NewServer(store *core.GroupStore, handler *session.Handler, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	router.GET("/groups", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, dispatch.GroupInfos(store.Groups()))
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
	})

	// /ws stays off the gin router: the upgrade hijacks the connection after
	// the handshake headers are written.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(handler, cfg.MaxFrameBytes, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
