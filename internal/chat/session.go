package chat

import (
	"context"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

const (
	// heartbeatInterval is how often the session checks liveness and pings.
	heartbeatInterval = 5 * time.Second

	// clientTimeout disconnects a client with no liveness signal for this long.
	clientTimeout = 10 * time.Second

	// maxMessageSize bounds one reassembled inbound message.
	maxMessageSize = 2 * 1024 * 1024
)

// frame is one inbound websocket message, or the read error that ended the
// read pump.
type frame struct {
	typ  websocket.MessageType
	data []byte
	err  error
}

// Session drives one client connection from upgrade to close: it multiplexes
// inbound frames, broadcast delivery, and heartbeat ticks in a single loop.
type Session struct {
	conn  *websocket.Conn
	relay Handle
	log   *zerolog.Logger

	// name prefixes outgoing chat text once the client sets it via /name.
	name string

	heartbeat time.Duration
	timeout   time.Duration
}

// NewSession wraps an accepted connection. The caller invokes Run exactly once
// and the session takes care of closing the connection.
func NewSession(conn *websocket.Conn, relay Handle, logger *zerolog.Logger) *Session {
	conn.SetReadLimit(maxMessageSize)
	return &Session{
		conn:      conn,
		relay:     relay,
		log:       logger,
		heartbeat: heartbeatInterval,
		timeout:   clientTimeout,
	}
}

// Run blocks until the client closes, errors out, or misses its liveness
// window. The connection is always deregistered before the transport closes,
// whatever the exit path.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outbound := make(chan string, outboundBuffer)
	id := s.relay.Connect(outbound)
	s.log.Info().Uint64("conn", uint64(id)).Msg("session connected")

	frames := make(chan frame)
	go s.readPump(ctx, frames)

	status, reason := s.loop(ctx, id, outbound, frames)

	s.relay.Disconnect(id)
	_ = s.conn.Close(status, reason)
}

// readPump feeds inbound messages into frames until the connection dies. The
// terminating error is delivered as the last frame.
func (s *Session) readPump(ctx context.Context, frames chan<- frame) {
	for {
		typ, data, err := s.conn.Read(ctx)
		select {
		case frames <- frame{typ: typ, data: data, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) loop(ctx context.Context, id ConnID, outbound <-chan string, frames <-chan frame) (websocket.StatusCode, string) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	alive := time.Now()
	pongs := make(chan struct{}, 1)

	for {
		select {
		case f := <-frames:
			if f.err != nil {
				if status := websocket.CloseStatus(f.err); status != -1 {
					s.log.Info().Uint64("conn", uint64(id)).Int("status", int(status)).Msg("client closed connection")
					return status, ""
				}
				s.log.Warn().Err(f.err).Uint64("conn", uint64(id)).Msg("read failed")
				return websocket.StatusInternalError, ""
			}
			alive = time.Now()
			switch f.typ {
			case websocket.MessageText:
				s.handleText(ctx, id, string(f.data))
			case websocket.MessageBinary:
				s.log.Warn().Uint64("conn", uint64(id)).Msg("unexpected binary message")
			}

		case text, ok := <-outbound:
			if !ok {
				// The coordinator never drops a live connection's channel
				// without disconnecting it first; a closed channel here means
				// the invariant is broken and continuing would silently lose
				// messages.
				panic("chat: outbound channel closed for live session")
			}
			if err := s.write(ctx, text); err != nil {
				s.log.Warn().Err(err).Uint64("conn", uint64(id)).Msg("write failed")
				return websocket.StatusInternalError, ""
			}

		case <-pongs:
			alive = time.Now()

		case <-ticker.C:
			if time.Since(alive) > s.timeout {
				s.log.Info().Uint64("conn", uint64(id)).Dur("timeout", s.timeout).Msg("client missed liveness window; disconnecting")
				return websocket.StatusGoingAway, "liveness timeout"
			}
			go s.ping(ctx, pongs)

		case <-ctx.Done():
			return websocket.StatusGoingAway, "server shutting down"
		}
	}
}

// ping records a liveness signal once the peer answers. The websocket library
// consumes ping and pong frames itself, so a completed round-trip is how pongs
// are observed.
func (s *Session) ping(ctx context.Context, pongs chan<- struct{}) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.conn.Ping(ctx); err != nil {
		return
	}
	select {
	case pongs <- struct{}{}:
	default:
	}
}

// handleText dispatches one text frame: slash commands are handled locally or
// via the coordinator, anything else is chat text for the current room.
func (s *Session) handleText(ctx context.Context, id ConnID, text string) {
	msg := strings.TrimSpace(text)

	if !strings.HasPrefix(msg, "/") {
		if s.name != "" {
			msg = s.name + ": " + msg
		}
		s.relay.SendMessage(id, msg)
		return
	}

	cmd, arg, _ := strings.Cut(msg, " ")
	switch cmd {
	case "/list":
		s.log.Info().Uint64("conn", uint64(id)).Msg("listing rooms")
		for _, room := range s.relay.ListRooms() {
			s.send(ctx, room)
		}

	case "/join":
		if arg == "" {
			s.send(ctx, "!!! room name is required")
			return
		}
		s.log.Info().Uint64("conn", uint64(id)).Str("room", arg).Msg("joining room")
		s.relay.JoinRoom(id, arg)
		s.send(ctx, "joined "+arg)

	case "/name":
		if arg == "" {
			s.send(ctx, "!!! name is required")
			return
		}
		s.log.Info().Uint64("conn", uint64(id)).Str("name", arg).Msg("setting name")
		s.name = arg

	default:
		s.send(ctx, "!!! unknown command: "+msg)
	}
}

func (s *Session) send(ctx context.Context, text string) {
	if err := s.write(ctx, text); err != nil {
		s.log.Warn().Err(err).Msg("write failed")
	}
}

func (s *Session) write(ctx context.Context, text string) error {
	return s.conn.Write(ctx, websocket.MessageText, []byte(text))
}
