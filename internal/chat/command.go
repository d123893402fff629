package chat

// command is a request consumed by the coordinator loop. Every variant carries
// a reply channel so the submitter can observe completion before proceeding.
type command interface{ isCommand() }

type connectCmd struct {
	outbound chan<- string
	reply    chan ConnID
}

type disconnectCmd struct {
	id    ConnID
	reply chan struct{}
}

type listRoomsCmd struct {
	reply chan []string
}

type joinRoomCmd struct {
	id    ConnID
	room  string
	reply chan struct{}
}

type sendMessageCmd struct {
	id    ConnID
	text  string
	reply chan struct{}
}

func (connectCmd) isCommand()     {}
func (disconnectCmd) isCommand()  {}
func (listRoomsCmd) isCommand()   {}
func (joinRoomCmd) isCommand()    {}
func (sendMessageCmd) isCommand() {}
