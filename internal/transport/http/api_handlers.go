package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/store"
)

// APIHandlers provides HTTP handlers for the REST endpoints.
type APIHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(st store.Store, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{store: st, log: logger}
}

// MessageResponse is one row of the message history endpoint.
type MessageResponse struct {
	RoomName string    `json:"roomname"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Messages returns a room's message history ascending by send time.
// GET /messages/:room
func (h *APIHandlers) Messages(c *gin.Context) {
	room := c.Param("room")

	messages, err := h.store.MessagesByRoom(c.Request.Context(), room)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to fetch messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, MessageResponse{
			RoomName: m.Room,
			Content:  m.Content,
			SentAt:   m.SentAt,
		})
	}

	c.JSON(http.StatusOK, response)
}
