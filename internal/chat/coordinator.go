// Package chat implements the relay core: a single coordinator goroutine that
// owns all membership state, reached through a command queue, plus the
// per-connection session loops that bridge it to websocket clients.
package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// DefaultRoom is created at startup and receives every new connection.
const DefaultRoom = "main"

// outboundBuffer sizes a connection's delivery channel. The coordinator never
// blocks on delivery; a full channel means the peer is skipped.
const outboundBuffer = 32

// systemSender is the ConnID used for system notices. No real connection ever
// holds it, so system broadcasts reach every room member.
const systemSender ConnID = 0

// ConnID identifies one connected session. Ids are issued only by the
// coordinator, monotonically from 1, so they are unique by construction.
type ConnID uint64

// Store is the slice of persistence the coordinator calls into. Failures are
// logged and never surface to chat delivery.
type Store interface {
	SaveMessage(ctx context.Context, room, content string) error
}

// Coordinator serializes all mutations of chat membership state. Its maps are
// touched only from Run's goroutine; the command queue is the sole entry point,
// which gives mutual exclusion without any locking.
type Coordinator struct {
	sessions map[ConnID]chan<- string
	rooms    map[string]map[ConnID]struct{}
	visitors uint64
	nextID   ConnID

	store    Store
	commands chan command
	log      *zerolog.Logger
}

// New builds a coordinator and the handle used to reach it. The store may be
// nil, in which case messages are delivered but not persisted.
func New(store Store, logger *zerolog.Logger) (*Coordinator, Handle) {
	c := &Coordinator{
		sessions: make(map[ConnID]chan<- string),
		rooms:    map[string]map[ConnID]struct{}{DefaultRoom: {}},
		store:    store,
		commands: make(chan command),
		log:      logger,
	}
	return c, Handle{commands: c.commands}
}

// Run consumes commands in submission order until ctx is cancelled. This is
// the only goroutine that reads or writes the membership maps.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case cmd := <-c.commands:
			c.dispatch(cmd)
		case <-ctx.Done():
			c.log.Info().Msg("coordinator stopped")
			return
		}
	}
}

func (c *Coordinator) dispatch(cmd command) {
	switch cmd := cmd.(type) {
	case connectCmd:
		cmd.reply <- c.connect(cmd.outbound)
	case disconnectCmd:
		c.disconnect(cmd.id)
		cmd.reply <- struct{}{}
	case listRoomsCmd:
		cmd.reply <- c.listRooms()
	case joinRoomCmd:
		c.joinRoom(cmd.id, cmd.room)
		cmd.reply <- struct{}{}
	case sendMessageCmd:
		c.sendMessage(cmd.id, cmd.text)
		cmd.reply <- struct{}{}
	}
}

// broadcast delivers text to every member of room except skip. Delivery is
// fire-and-forget: a full or missing channel means the peer is skipped.
func (c *Coordinator) broadcast(room string, skip ConnID, text string) {
	for id := range c.rooms[room] {
		if id == skip {
			continue
		}
		out, ok := c.sessions[id]
		if !ok {
			continue
		}
		select {
		case out <- text:
		default:
		}
	}
}

// room returns the member set for name, creating the room on first use.
func (c *Coordinator) room(name string) map[ConnID]struct{} {
	members, ok := c.rooms[name]
	if !ok {
		members = make(map[ConnID]struct{})
		c.rooms[name] = members
	}
	return members
}

// leaveAll removes id from every room and notifies each vacated room.
func (c *Coordinator) leaveAll(id ConnID) {
	var vacated []string
	for name, members := range c.rooms {
		if _, ok := members[id]; ok {
			delete(members, id)
			vacated = append(vacated, name)
		}
	}
	for _, name := range vacated {
		c.broadcast(name, systemSender, "Someone disconnected")
	}
}

func (c *Coordinator) connect(outbound chan<- string) ConnID {
	// Announced before insertion so the newcomer does not see its own arrival.
	c.broadcast(DefaultRoom, systemSender, "Someone joined")

	c.nextID++
	id := c.nextID
	c.sessions[id] = outbound
	c.room(DefaultRoom)[id] = struct{}{}

	c.visitors++
	c.broadcast(DefaultRoom, systemSender, fmt.Sprintf("Total visitors %d", c.visitors))

	c.log.Info().Uint64("conn", uint64(id)).Uint64("visitors", c.visitors).Msg("someone joined")
	return id
}

func (c *Coordinator) disconnect(id ConnID) {
	// Unknown ids fall through harmlessly; disconnect never fails the caller.
	delete(c.sessions, id)
	c.leaveAll(id)

	c.log.Info().Uint64("conn", uint64(id)).Msg("someone disconnected")
}

func (c *Coordinator) listRooms() []string {
	names := make([]string, 0, len(c.rooms))
	for name := range c.rooms {
		names = append(names, name)
	}
	return names
}

func (c *Coordinator) joinRoom(id ConnID, name string) {
	c.leaveAll(id)

	c.room(name)[id] = struct{}{}
	c.broadcast(name, id, "Someone connected")

	c.log.Info().Uint64("conn", uint64(id)).Str("room", name).Msg("joined room")
}

func (c *Coordinator) sendMessage(id ConnID, text string) {
	room, ok := c.roomOf(id)
	if !ok {
		// Sender belongs to no room; drop silently.
		return
	}

	c.broadcast(room, id, text)

	if c.store == nil {
		return
	}
	// Persistence must never hold up command processing, so it runs detached.
	go func() {
		if err := c.store.SaveMessage(context.Background(), room, text); err != nil {
			c.log.Error().Err(err).Str("room", room).Msg("failed to store message")
		}
	}()
}

// roomOf finds the single room containing id. Membership in more than one room
// is impossible: joinRoom and connect both clear prior membership first.
func (c *Coordinator) roomOf(id ConnID) (string, bool) {
	for name, members := range c.rooms {
		if _, ok := members[id]; ok {
			return name, true
		}
	}
	return "", false
}
