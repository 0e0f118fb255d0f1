package client

import "github.com/nodecrypt/nodecrypt/lib/protocol"

// EventType discriminates the client event stream.
type EventType int

const (
	// EventSecured fires once the outer AES session with the relay is up.
	EventSecured EventType = iota

	// EventJoined fires after the membership view has stabilized (the two
	// list frames of the join warmup); Roster holds the members seen so far.
	EventJoined

	// EventPeerJoined and EventPeerLeft report membership changes observed
	// after the warmup.
	EventPeerJoined
	EventPeerLeft

	// EventPeerEstablished fires when the inner key with a peer is ready.
	EventPeerEstablished

	// EventMessage delivers one decrypted chat payload.
	EventMessage

	// EventClosed is the final event; Err carries the terminal error, if any.
	EventClosed
)

// Event is the single sum type delivered to the consumer, replacing the
// callback set of the original design.
type Event struct {
	Type    EventType
	Peer    protocol.ClientInfo
	Roster  []protocol.ClientInfo
	Payload *protocol.ChatPayload
	Err     error
}
