package server

import "github.com/hg192/tankGPT/internal/protocol"

// Join asks the session to admit a connection. The result is sent on Reply,
// which must be buffered.
type Join struct {
	Conn  Conn
	Msg   protocol.JoinLobby
	Reply chan<- JoinResult
}

type JoinResult struct {
	PlayerID string
	Err      error
}

// Message is a raw frame from a joined player.
type Message struct {
	PlayerID string
	Data     []byte
}

// Leave removes a player. Conn guards against a stale leave arriving after
// the same id rejoined on a new connection.
type Leave struct {
	PlayerID string
	Conn     Conn
}
