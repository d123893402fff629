// Package store defines the persistence contract for the chat relay.
package store

import (
	"context"
	"time"
)

// Message is one persisted chat line.
type Message struct {
	ID      int64
	Room    string
	Content string
	SentAt  time.Time
}

// Store is the message log collaborator. The table is append-only: nothing
// ever updates or deletes a row.
type Store interface {
	// SaveMessage appends one message; the send timestamp is assigned by the
	// store.
	SaveMessage(ctx context.Context, room, content string) error

	// MessagesByRoom returns the room's messages ascending by send time.
	MessagesByRoom(ctx context.Context, room string) ([]Message, error)

	// Close releases the underlying datasource.
	Close() error
}
