// Package http exposes the relay over HTTP: the chat page, the websocket
// upgrade endpoint, and the message history API.
package http

import (
	stdhttp "net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/chat"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/store"
)

// NewServer builds the HTTP server with all routes registered.
func NewServer(relay chat.Handle, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(relay, st, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine; split out so tests can mount it directly.
func NewRouter(relay chat.Handle, st store.Store, cfg config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(logger))

	router.StaticFile("/", filepath.Join(cfg.StaticDir, "index.html"))
	router.GET("/health", healthHandler)
	router.GET("/ws", NewWSHandler(relay, logger))

	api := NewAPIHandlers(st, logger)
	router.GET("/messages/:room", api.Messages)

	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
