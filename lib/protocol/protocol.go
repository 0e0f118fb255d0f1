// Package protocol implements the NodeCrypt wire envelopes.
//
// Every transport frame is one envelope: a small text-keyed JSON record with a
// single-byte action tag. Binary fields (keys, ciphertexts) are standard
// base64. The handshake tags travel in the clear because no session key exists
// yet; every envelope after that is carried inside an AES-wrapped 'e' frame.
//
// Action tags:
//   - 's' server hello  (server -> client): client_id + relay RSA public key
//   - 'k' key exchange  (both ways): RSA-OAEP-wrapped P-384 public points
//   - 'e' encrypted     (both ways): outer AES envelope, base64 in data
//   - 'j' join          (client -> server, inner): user_name + channel
//   - 'c' client        (client <-> server, inner): unicast to target
//   - 'w' channel       (client <-> server, inner): broadcast to channel
//   - 'l' list          (server -> client, inner): current membership
package protocol

import (
	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/samber/oops"
)

var log = logger.GetNodeCryptLogger()

// Action is a single-byte envelope tag.
type Action byte

// Envelope action tags.
const (
	ActionServerHello Action = 's'
	ActionKeyExchange Action = 'k'
	ActionEncrypted   Action = 'e'
	ActionJoin        Action = 'j'
	ActionClient      Action = 'c'
	ActionChannel     Action = 'w'
	ActionList        Action = 'l'
)

// Protocol limits.
const (
	// DefaultMaxEnvelopeBytes bounds a single decoded frame. Large enough for
	// a 256 KiB file chunk after base64 and envelope overhead.
	DefaultMaxEnvelopeBytes = 512 * 1024

	// ClientIDSize is the length of the random client identifier.
	ClientIDSize = 16
)

// Error kinds. All of them except ErrUnknownTarget are fatal to the session.
var (
	// ErrMalformedFrame covers bad base64, missing required fields, unknown
	// action tags and oversized payloads. The receiver closes the transport.
	ErrMalformedFrame = oops.Errorf("malformed frame")

	// ErrProtocolViolation is an envelope out of sequence for the session
	// state. The receiver closes the transport.
	ErrProtocolViolation = oops.Errorf("protocol violation")

	// ErrBadCipher is an outer-layer decryption failure. The receiver closes
	// the transport. Inner ChaCha20 failures are not errors of this kind;
	// they are dropped locally.
	ErrBadCipher = oops.Errorf("bad cipher")

	// ErrUnknownTarget is a unicast to a client_id not present in the
	// channel. The relay drops the envelope silently; senders must tolerate
	// the drop because the relay cannot signal through the opaque inner
	// layer.
	ErrUnknownTarget = oops.Errorf("unknown target")
)

// Name returns a human-readable tag name for logging.
func (a Action) Name() string {
	switch a {
	case ActionServerHello:
		return "server_hello"
	case ActionKeyExchange:
		return "key_exchange"
	case ActionEncrypted:
		return "encrypted"
	case ActionJoin:
		return "join"
	case ActionClient:
		return "client"
	case ActionChannel:
		return "channel"
	case ActionList:
		return "list"
	default:
		return "unknown"
	}
}

func (a Action) valid() bool {
	switch a {
	case ActionServerHello, ActionKeyExchange, ActionEncrypted,
		ActionJoin, ActionClient, ActionChannel, ActionList:
		return true
	}
	return false
}
