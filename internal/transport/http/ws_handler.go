package http

import (
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/chat"
)

// NewWSHandler upgrades the connection and runs a chat session on it. The
// handler returns only when the session ends; gin keeps one request goroutine
// alive per client, which is the session's scheduling unit.
func NewWSHandler(relay chat.Handle, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error().Err(err).Msg("ws accept error")
			return
		}

		chat.NewSession(conn, relay, logger).Run(c.Request.Context())
	}
}
