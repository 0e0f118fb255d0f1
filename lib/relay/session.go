package relay

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nodecrypt/nodecrypt/lib/crypto/aes"
	"github.com/nodecrypt/nodecrypt/lib/crypto/ecdh"
	"github.com/nodecrypt/nodecrypt/lib/crypto/rsa"
	"github.com/nodecrypt/nodecrypt/lib/crypto/types"
	"github.com/nodecrypt/nodecrypt/lib/keys"
	"github.com/nodecrypt/nodecrypt/lib/protocol"
	"github.com/nodecrypt/nodecrypt/lib/transport"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// SessionState tracks a client session through the outer handshake.
type SessionState int

const (
	StateAccepted SessionState = iota
	StateRsaAnnounced
	StateEcdhPending
	StateSecured
	StateJoined
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateRsaAnnounced:
		return "rsa_announced"
	case StateEcdhPending:
		return "ecdh_pending"
	case StateSecured:
		return "secured"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ClientSession is the relay's per-connection state machine:
//
//	Accepted -> RsaAnnounced -> EcdhPending -> Secured -> Joined -> Closed
//
// The session owns the outer AES key once Secured; every later frame on the
// transport is an AES-wrapped envelope. All protocol violations and cipher
// failures are fatal to the session.
type ClientSession struct {
	ID       string
	UserName string
	Channel  string

	transport transport.Transport
	identity  *keys.RelayIdentity

	aesEnc types.Encrypter
	aesDec types.Decrypter

	maxEnvelope int
	joinedAt    time.Time

	// state and lastSeen are atomic: the connection goroutine drives the
	// machine and stamps lastSeen on every frame, while the room loop reads
	// both for the idle sweep and may Close the session from its side.
	state    atomic.Int32
	lastSeen atomic.Int64
}

// NewClientSession creates a session for a freshly accepted transport. The
// session keeps its own reference to the relay identity so a rotation during
// the handshake does not tear it.
func NewClientSession(t transport.Transport, ident *keys.RelayIdentity, maxEnvelope int) *ClientSession {
	s := &ClientSession{
		ID:          uuid.NewString(),
		transport:   t,
		identity:    ident,
		maxEnvelope: maxEnvelope,
	}
	s.state.Store(int32(StateAccepted))
	s.lastSeen.Store(time.Now().UnixNano())
	return s
}

// Announce sends the server hello: the session's client_id and the relay's
// RSA public key.
func (s *ClientSession) Announce() error {
	if s.State() != StateAccepted {
		return oops.Wrapf(protocol.ErrProtocolViolation, "announce in state %s", s.State())
	}
	err := s.sendClear(&protocol.Envelope{
		Action:   protocol.ActionServerHello,
		ClientID: s.ID,
		RSAPub:   s.identity.Public.Bytes(),
	})
	if err != nil {
		return err
	}
	s.state.Store(int32(StateRsaAnnounced))
	log.WithFields(logrus.Fields{
		"at":        "relay.ClientSession.Announce",
		"client_id": s.ID,
	}).Debug("sent_server_hello")
	return nil
}

// HandleFrame advances the state machine with one received frame. It returns
// the decrypted inner envelope once the session is secured; handshake frames
// return nil. Any error is fatal: the caller closes the transport.
func (s *ClientSession) HandleFrame(raw []byte) (*protocol.Envelope, error) {
	s.lastSeen.Store(time.Now().UnixNano())

	switch s.State() {
	case StateRsaAnnounced:
		return nil, s.handleKeyExchange(raw)
	case StateSecured:
		inner, err := s.openEnvelope(raw)
		if err != nil {
			return nil, err
		}
		if inner.Action != protocol.ActionJoin {
			return nil, oops.Wrapf(protocol.ErrProtocolViolation,
				"expected join, got %s", inner.Action.Name())
		}
		s.UserName = inner.UserName
		s.Channel = inner.Channel
		s.joinedAt = time.Now()
		s.state.Store(int32(StateJoined))
		return inner, nil
	case StateJoined:
		inner, err := s.openEnvelope(raw)
		if err != nil {
			return nil, err
		}
		switch inner.Action {
		case protocol.ActionClient, protocol.ActionChannel:
			return inner, nil
		default:
			// A second join never produces duplicate membership.
			return nil, oops.Wrapf(protocol.ErrProtocolViolation,
				"unexpected %s after join", inner.Action.Name())
		}
	default:
		return nil, oops.Wrapf(protocol.ErrProtocolViolation,
			"frame in state %s", s.State())
	}
}

// handleKeyExchange processes the client's RSA-wrapped P-384 point, derives
// the outer AES key and replies with the relay's own point wrapped under the
// client-supplied RSA key.
func (s *ClientSession) handleKeyExchange(raw []byte) error {
	env, err := protocol.Decode(raw, s.maxEnvelope)
	if err != nil {
		return err
	}
	if env.Action != protocol.ActionKeyExchange {
		return oops.Wrapf(protocol.ErrProtocolViolation,
			"expected key exchange, got %s", env.Action.Name())
	}
	if len(env.RSAPub) == 0 {
		return oops.Wrapf(protocol.ErrMalformedFrame, "key exchange missing client rsa_pub")
	}
	clientRSA, err := rsa.LoadPublicKey(env.RSAPub)
	if err != nil {
		return oops.Wrapf(protocol.ErrMalformedFrame, "client rsa_pub: %v", err)
	}
	s.state.Store(int32(StateEcdhPending))

	clientPoint, err := s.identity.Private.Decrypt(env.ECDHPub)
	if err != nil {
		return protocol.ErrBadCipher
	}

	kp, err := ecdh.GenerateKeyPair()
	if err != nil {
		return err
	}
	outerKey, err := kp.DeriveOuterKey(clientPoint)
	if err != nil {
		return oops.Wrapf(protocol.ErrMalformedFrame, "client ecdh point: %v", err)
	}
	if err := s.installOuterKey(outerKey); err != nil {
		return err
	}

	wrappedPoint, err := clientRSA.Encrypt(kp.PublicBytes())
	if err != nil {
		return err
	}
	if err := s.sendClear(&protocol.Envelope{
		Action:  protocol.ActionKeyExchange,
		ECDHPub: wrappedPoint,
	}); err != nil {
		return err
	}
	s.state.Store(int32(StateSecured))
	log.WithFields(logrus.Fields{
		"at":        "relay.ClientSession.handleKeyExchange",
		"client_id": s.ID,
	}).Debug("session_secured")
	return nil
}

func (s *ClientSession) installOuterKey(key []byte) error {
	aesKey, err := aes.NewKey(key)
	if err != nil {
		return err
	}
	if s.aesEnc, err = aesKey.NewEncrypter(); err != nil {
		return err
	}
	if s.aesDec, err = aesKey.NewDecrypter(); err != nil {
		return err
	}
	return nil
}

// openEnvelope unwraps one AES-protected frame into its inner envelope.
func (s *ClientSession) openEnvelope(raw []byte) (*protocol.Envelope, error) {
	env, err := protocol.Decode(raw, s.maxEnvelope)
	if err != nil {
		return nil, err
	}
	if env.Action != protocol.ActionEncrypted {
		return nil, oops.Wrapf(protocol.ErrProtocolViolation,
			"expected encrypted envelope, got %s", env.Action.Name())
	}
	plaintext, err := s.aesDec.Decrypt(env.Data)
	if err != nil {
		log.WithFields(logrus.Fields{
			"at":        "relay.ClientSession.openEnvelope",
			"client_id": s.ID,
		}).Debug("outer_decrypt_failed")
		return nil, protocol.ErrBadCipher
	}
	return protocol.Decode(plaintext, s.maxEnvelope)
}

// SendInner encrypts an inner envelope under this session's outer key and
// writes it to the transport.
func (s *ClientSession) SendInner(inner *protocol.Envelope) error {
	if s.aesEnc == nil {
		return oops.Wrapf(protocol.ErrProtocolViolation, "session %s not secured", s.ID)
	}
	plaintext, err := protocol.Encode(inner)
	if err != nil {
		return err
	}
	ciphertext, err := s.aesEnc.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return s.sendClear(&protocol.Envelope{
		Action: protocol.ActionEncrypted,
		Data:   ciphertext,
	})
}

func (s *ClientSession) sendClear(env *protocol.Envelope) error {
	raw, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	return s.transport.WriteMessage(raw)
}

// State returns the session's current handshake state.
func (s *ClientSession) State() SessionState {
	return SessionState(s.state.Load())
}

// IdleExpired reports whether no frame has arrived within timeout.
func (s *ClientSession) IdleExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(time.Unix(0, s.lastSeen.Load())) >= timeout
}

// Close marks the session closed and tears down its transport. Safe from
// any goroutine; the room loop uses it to cancel idle sessions.
func (s *ClientSession) Close() {
	if SessionState(s.state.Swap(int32(StateClosed))) == StateClosed {
		return
	}
	s.transport.Close()
}
