package chat

// Handle is the submission side of the coordinator's command queue. It is a
// plain value and may be copied freely; every copy feeds the same queue. Each
// call blocks until the coordinator has applied the command, so callers can
// rely on the effect being visible when the call returns. There is no per-call
// timeout: the coordinator is expected to outlive every session, and it never
// blocks on I/O while processing the queue.
type Handle struct {
	commands chan<- command
}

// Connect registers outbound as a new connection's delivery channel and
// returns the assigned id. The connection starts out in the default room.
func (h Handle) Connect(outbound chan<- string) ConnID {
	reply := make(chan ConnID, 1)
	h.commands <- connectCmd{outbound: outbound, reply: reply}
	return <-reply
}

// Disconnect deregisters the connection and removes it from all rooms. Safe to
// call with an id the coordinator no longer knows.
func (h Handle) Disconnect(id ConnID) {
	reply := make(chan struct{}, 1)
	h.commands <- disconnectCmd{id: id, reply: reply}
	<-reply
}

// ListRooms returns a snapshot of current room names, in no particular order.
func (h Handle) ListRooms() []string {
	reply := make(chan []string, 1)
	h.commands <- listRoomsCmd{reply: reply}
	return <-reply
}

// JoinRoom moves the connection into room, leaving any room it was in before.
// The room is created if it does not exist yet.
func (h Handle) JoinRoom(id ConnID, room string) {
	reply := make(chan struct{}, 1)
	h.commands <- joinRoomCmd{id: id, room: room, reply: reply}
	<-reply
}

// SendMessage broadcasts text to the other members of the sender's room and
// persists it. A sender that belongs to no room produces nothing.
func (h Handle) SendMessage(id ConnID, text string) {
	reply := make(chan struct{}, 1)
	h.commands <- sendMessageCmd{id: id, text: text, reply: reply}
	<-reply
}
