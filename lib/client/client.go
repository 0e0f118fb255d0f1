// Package client implements the chat endpoint: the outer handshake with the
// relay, the per-peer inner key exchanges and the two-stage encryption of
// chat payloads. Events are delivered to the consumer on a single channel.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nodecrypt/nodecrypt/lib/crypto/aes"
	"github.com/nodecrypt/nodecrypt/lib/crypto/curve25519"
	"github.com/nodecrypt/nodecrypt/lib/crypto/ecdh"
	"github.com/nodecrypt/nodecrypt/lib/crypto/rsa"
	"github.com/nodecrypt/nodecrypt/lib/crypto/types"
	"github.com/nodecrypt/nodecrypt/lib/protocol"
	"github.com/nodecrypt/nodecrypt/lib/transport"
	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

var log = logger.GetNodeCryptLogger()

// clientState tracks the outer handshake from the client side.
type clientState int

const (
	stateConnecting clientState = iota
	stateKeySent
	stateJoined
	stateClosed
)

// Config identifies one chat endpoint.
type Config struct {
	// URL is the relay WebSocket endpoint, used by Dial.
	URL string

	// UserName is announced at join and carried in list broadcasts.
	UserName string

	// Channel is the group to join; an opaque exact-match name.
	Channel string

	// Password keys the inner layer. The relay never sees it; a mismatched
	// password surfaces only as undecryptable chat.
	Password string

	// MaxEnvelopeBytes bounds one wire frame; zero applies the default.
	MaxEnvelopeBytes int
}

// ChatClient owns the single outer session with the relay and one
// PeerSession per other member of the channel.
type ChatClient struct {
	cfg Config

	transport transport.Transport

	rsaPriv rsa.RSAPrivateKey
	ecdhKP  *ecdh.KeyPair
	curveKP *curve25519.KeyPair

	aesEnc types.Encrypter
	aesDec types.Decrypter

	// writeMu serializes sends: the run loop emits key frames while the
	// application calls Send from its own goroutine.
	writeMu sync.Mutex

	mu        sync.Mutex
	state     clientState
	selfID    string
	peers     map[string]*PeerSession
	listsSeen int

	events chan Event
}

// Dial connects to the relay and returns a client ready to Run.
func Dial(cfg Config) (*ChatClient, error) {
	max := cfg.MaxEnvelopeBytes
	if max <= 0 {
		max = protocol.DefaultMaxEnvelopeBytes
	}
	t, err := transport.Dial(cfg.URL, int64(max))
	if err != nil {
		return nil, oops.Errorf("failed to dial relay: %w", err)
	}
	return NewChatClient(cfg, t)
}

// NewChatClient wraps an established transport. The client generates its own
// RSA keypair so the relay can wrap its P-384 point on the way back, and a
// Curve25519 keypair for the inner exchanges.
func NewChatClient(cfg Config, t transport.Transport) (*ChatClient, error) {
	if cfg.MaxEnvelopeBytes <= 0 {
		cfg.MaxEnvelopeBytes = protocol.DefaultMaxEnvelopeBytes
	}
	rsaPriv, err := rsa.GenerateKey()
	if err != nil {
		return nil, err
	}
	curveKP, err := curve25519.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &ChatClient{
		cfg:       cfg,
		transport: t,
		rsaPriv:   rsaPriv,
		curveKP:   curveKP,
		state:     stateConnecting,
		peers:     make(map[string]*PeerSession),
		events:    make(chan Event, 64),
	}, nil
}

// Events returns the client's event stream. It is closed after EventClosed.
func (c *ChatClient) Events() <-chan Event {
	return c.events
}

// SelfID returns the relay-assigned client id, empty before the hello.
func (c *ChatClient) SelfID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfID
}

// Run drives the connection until the transport ends or ctx is cancelled.
// It emits EventClosed last and closes the event channel; like any event,
// EventClosed is dropped if the consumer has let the event buffer fill.
func (c *ChatClient) Run(ctx context.Context) {
	var terminal error
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			c.transport.Close()
		case <-done:
		}
	}()

	for {
		raw, err := c.transport.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				terminal = err
			}
			break
		}
		if err := c.handleFrame(raw); err != nil {
			terminal = err
			break
		}
	}

	c.mu.Lock()
	c.state = stateClosed
	c.mu.Unlock()
	c.transport.Close()
	c.emit(Event{Type: EventClosed, Err: terminal})
	close(c.events)
}

// handleFrame processes one frame from the relay. Errors are fatal to the
// connection; inner chat decode failures are not errors.
func (c *ChatClient) handleFrame(raw []byte) error {
	env, err := protocol.Decode(raw, c.cfg.MaxEnvelopeBytes)
	if err != nil {
		return err
	}

	switch env.Action {
	case protocol.ActionServerHello:
		return c.handleServerHello(env)
	case protocol.ActionKeyExchange:
		return c.handleServerKey(env)
	case protocol.ActionEncrypted:
		inner, err := c.openEnvelope(env)
		if err != nil {
			return err
		}
		return c.handleInner(inner)
	default:
		return oops.Wrapf(protocol.ErrProtocolViolation,
			"unexpected %s from relay", env.Action.Name())
	}
}

// handleServerHello starts the outer exchange: remember our id, wrap a fresh
// P-384 point under the relay's RSA key and attach our own RSA public key
// for the reply path.
func (c *ChatClient) handleServerHello(env *protocol.Envelope) error {
	c.mu.Lock()
	if c.state != stateConnecting {
		c.mu.Unlock()
		return oops.Wrapf(protocol.ErrProtocolViolation, "repeated server hello")
	}
	c.selfID = env.ClientID
	c.mu.Unlock()

	serverRSA, err := rsa.LoadPublicKey(env.RSAPub)
	if err != nil {
		return err
	}
	c.ecdhKP, err = ecdh.GenerateKeyPair()
	if err != nil {
		return err
	}
	wrapped, err := serverRSA.Encrypt(c.ecdhKP.PublicBytes())
	if err != nil {
		return err
	}
	rsaPub, err := c.rsaPriv.Public()
	if err != nil {
		return err
	}
	if err := c.sendClear(&protocol.Envelope{
		Action:  protocol.ActionKeyExchange,
		ECDHPub: wrapped,
		RSAPub:  rsaPub.Bytes(),
	}); err != nil {
		return err
	}
	c.mu.Lock()
	c.state = stateKeySent
	c.mu.Unlock()
	return nil
}

// handleServerKey finishes the outer exchange and sends the join envelope.
func (c *ChatClient) handleServerKey(env *protocol.Envelope) error {
	c.mu.Lock()
	if c.state != stateKeySent {
		c.mu.Unlock()
		return oops.Wrapf(protocol.ErrProtocolViolation, "key exchange out of order")
	}
	c.mu.Unlock()

	serverPoint, err := c.rsaPriv.Decrypt(env.ECDHPub)
	if err != nil {
		return err
	}
	outerKey, err := c.ecdhKP.DeriveOuterKey(serverPoint)
	if err != nil {
		return err
	}
	aesKey, err := aes.NewKey(outerKey)
	if err != nil {
		return err
	}
	if c.aesEnc, err = aesKey.NewEncrypter(); err != nil {
		return err
	}
	if c.aesDec, err = aesKey.NewDecrypter(); err != nil {
		return err
	}

	c.emit(Event{Type: EventSecured})

	if err := c.sendInner(&protocol.Envelope{
		Action:   protocol.ActionJoin,
		UserName: c.cfg.UserName,
		Channel:  c.cfg.Channel,
	}); err != nil {
		return err
	}
	c.mu.Lock()
	c.state = stateJoined
	c.mu.Unlock()
	log.WithFields(logrus.Fields{
		"at":      "client.ChatClient.handleServerKey",
		"channel": c.cfg.Channel,
	}).Debug("outer_session_secured")
	return nil
}

func (c *ChatClient) handleInner(inner *protocol.Envelope) error {
	switch inner.Action {
	case protocol.ActionList:
		return c.handleList(inner)
	case protocol.ActionClient, protocol.ActionChannel:
		return c.handlePeerFrame(inner)
	default:
		return oops.Wrapf(protocol.ErrProtocolViolation,
			"unexpected inner %s", inner.Action.Name())
	}
}

// handleList diffs the membership list against the local peer map, starts
// key exchanges with new peers and tears down departed ones. Join and leave
// events are suppressed until the two-frame warmup has passed: the first
// list is the joiner's individual copy, the second is the broadcast that
// confirms the local view has stabilized.
func (c *ChatClient) handleList(inner *protocol.Envelope) error {
	c.mu.Lock()
	c.listsSeen++
	settled := c.listsSeen > 2

	seen := make(map[string]bool, len(inner.Clients))
	var added []protocol.ClientInfo
	for _, info := range inner.Clients {
		if info.ClientID == c.selfID {
			continue
		}
		seen[info.ClientID] = true
		if p, ok := c.peers[info.ClientID]; ok {
			p.UserName = info.UserName
			continue
		}
		c.peers[info.ClientID] = NewPeerSession(info.ClientID, info.UserName)
		added = append(added, info)
	}
	var removed []protocol.ClientInfo
	for id, p := range c.peers {
		if !seen[id] {
			removed = append(removed, protocol.ClientInfo{ClientID: id, UserName: p.UserName})
			delete(c.peers, id)
		}
	}
	emitJoined := c.listsSeen == 2
	roster := make([]protocol.ClientInfo, 0, len(c.peers))
	for _, p := range c.peers {
		roster = append(roster, protocol.ClientInfo{ClientID: p.ID, UserName: p.UserName})
	}
	c.mu.Unlock()

	// Announce our Curve25519 key to every newly seen peer.
	for _, info := range added {
		if err := c.sendPeerKey(info.ClientID); err != nil {
			return err
		}
	}

	if emitJoined {
		c.emit(Event{Type: EventJoined, Roster: roster})
	}
	if settled {
		for _, info := range added {
			c.emit(Event{Type: EventPeerJoined, Peer: info})
		}
		for _, info := range removed {
			c.emit(Event{Type: EventPeerLeft, Peer: info})
		}
	}
	return nil
}

// sendPeerKey sends our Curve25519 public key to one peer through the relay.
func (c *ChatClient) sendPeerKey(peerID string) error {
	err := c.sendInner(&protocol.Envelope{
		Action: protocol.ActionClient,
		Target: peerID,
		Key:    c.curveKP.PublicBytes(),
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	if p, ok := c.peers[peerID]; ok {
		p.MarkKeySent()
	}
	c.mu.Unlock()
	return nil
}

// handlePeerFrame processes an inner 'c' or 'w' envelope from another client:
// either the peer's public key or a chat ciphertext.
func (c *ChatClient) handlePeerFrame(inner *protocol.Envelope) error {
	sender := inner.ClientID
	if sender == "" {
		return oops.Wrapf(protocol.ErrMalformedFrame, "peer frame without client_id")
	}

	if len(inner.Key) > 0 {
		return c.handlePeerKey(sender, inner.UserName, inner.Key)
	}
	c.handleChat(sender, inner.UserName, inner.Data)
	return nil
}

// handlePeerKey derives the shared chat key with a peer. A key frame may
// arrive before the list naming the peer; the session is created on demand
// and our own key answered back so both sides converge.
func (c *ChatClient) handlePeerKey(sender, userName string, peerPub []byte) error {
	chatKey, err := c.curveKP.DeriveChatKey(peerPub, c.cfg.Password)
	if err != nil {
		// A garbage key point is a malformed peer, not a broken session.
		log.WithFields(logrus.Fields{
			"at":   "client.ChatClient.handlePeerKey",
			"peer": sender,
		}).Warn("dropping_invalid_peer_key")
		return nil
	}

	c.mu.Lock()
	p, ok := c.peers[sender]
	if !ok {
		p = NewPeerSession(sender, userName)
		c.peers[sender] = p
	}
	needOwnKey := p.State() == PeerAnnounced
	buffered, err := p.Establish(chatKey)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if needOwnKey {
		if err := c.sendPeerKey(sender); err != nil {
			return err
		}
	}
	c.emit(Event{Type: EventPeerEstablished, Peer: protocol.ClientInfo{ClientID: sender, UserName: userName}})

	for _, ct := range buffered {
		c.deliverChat(p, ct)
	}
	return nil
}

// handleChat routes one inbound ciphertext. Frames from peers whose key has
// not arrived yet are buffered until establishment.
func (c *ChatClient) handleChat(sender, userName string, ciphertext []byte) {
	if len(ciphertext) == 0 {
		return
	}
	c.mu.Lock()
	p, ok := c.peers[sender]
	if !ok {
		p = NewPeerSession(sender, userName)
		c.peers[sender] = p
	}
	if p.State() != PeerEstablished {
		p.Buffer(ciphertext)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.deliverChat(p, ciphertext)
}

// deliverChat decrypts and emits one message. Decryption or parse failure is
// expected from wrong-password peers: log and drop, never close the session.
func (c *ChatClient) deliverChat(p *PeerSession, ciphertext []byte) {
	plaintext, err := p.Decrypt(ciphertext)
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"at":   "client.ChatClient.deliverChat",
			"peer": p.ID,
		}).Debug("dropping_undecryptable_message")
		return
	}
	payload, err := protocol.DecodeChatPayload(plaintext)
	if err != nil {
		log.WithFields(logrus.Fields{
			"at":   "client.ChatClient.deliverChat",
			"peer": p.ID,
		}).Debug("dropping_unparseable_message")
		return
	}
	c.emit(Event{
		Type:    EventMessage,
		Peer:    protocol.ClientInfo{ClientID: p.ID, UserName: payload.UserName},
		Payload: payload,
	})
}

// SendText broadcasts a text message to every established peer.
func (c *ChatClient) SendText(text string) error {
	data, _ := json.Marshal(text)
	return c.SendPayload(protocol.PayloadText, data, "")
}

// SendPrivateText sends a text message to a single peer.
func (c *ChatClient) SendPrivateText(target, text string) error {
	data, _ := json.Marshal(text)
	return c.SendPayload(protocol.PayloadText, data, target)
}

// SendPayload encrypts one payload per recipient and hands the relay opaque
// ciphertext only. An empty target broadcasts to the channel; a non-empty
// target sends privately to that peer with the private type suffix.
func (c *ChatClient) SendPayload(payloadType string, data json.RawMessage, target string) error {
	c.mu.Lock()
	if c.state != stateJoined {
		c.mu.Unlock()
		return oops.Errorf("not joined to a channel")
	}
	selfID := c.selfID
	c.mu.Unlock()

	payload := &protocol.ChatPayload{
		Type:      payloadType,
		Data:      data,
		UserName:  c.cfg.UserName,
		ClientID:  selfID,
		Timestamp: time.Now().UnixMilli(),
	}

	if target != "" {
		payload.Type = payloadType + protocol.PrivateSuffix
		plaintext, err := protocol.EncodeChatPayload(payload)
		if err != nil {
			return err
		}
		c.mu.Lock()
		p, ok := c.peers[target]
		if !ok || p.State() != PeerEstablished {
			c.mu.Unlock()
			return oops.Errorf("peer %s not established", target)
		}
		ct, err := p.Encrypt(plaintext)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		return c.sendInner(&protocol.Envelope{
			Action: protocol.ActionClient,
			Target: target,
			Data:   ct,
		})
	}

	plaintext, err := protocol.EncodeChatPayload(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	cts := make(map[string][]byte, len(c.peers))
	for id, p := range c.peers {
		if p.State() != PeerEstablished {
			continue
		}
		ct, err := p.Encrypt(plaintext)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		cts[id] = ct
	}
	c.mu.Unlock()
	if len(cts) == 0 {
		// Alone in the channel; nothing to carry.
		return nil
	}
	return c.sendInner(&protocol.Envelope{
		Action:      protocol.ActionChannel,
		Ciphertexts: cts,
	})
}

// openEnvelope unwraps one AES frame from the relay.
func (c *ChatClient) openEnvelope(env *protocol.Envelope) (*protocol.Envelope, error) {
	if c.aesDec == nil {
		return nil, oops.Wrapf(protocol.ErrProtocolViolation, "encrypted frame before key exchange")
	}
	plaintext, err := c.aesDec.Decrypt(env.Data)
	if err != nil {
		return nil, protocol.ErrBadCipher
	}
	return protocol.Decode(plaintext, c.cfg.MaxEnvelopeBytes)
}

// sendInner wraps an inner envelope in the outer AES layer.
func (c *ChatClient) sendInner(inner *protocol.Envelope) error {
	if c.aesEnc == nil {
		return oops.Wrapf(protocol.ErrProtocolViolation, "send before key exchange")
	}
	plaintext, err := protocol.Encode(inner)
	if err != nil {
		return err
	}
	ciphertext, err := c.aesEnc.Encrypt(plaintext)
	if err != nil {
		return err
	}
	return c.sendClear(&protocol.Envelope{
		Action: protocol.ActionEncrypted,
		Data:   ciphertext,
	})
}

func (c *ChatClient) sendClear(env *protocol.Envelope) error {
	raw, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.transport.WriteMessage(raw)
}

// emit delivers one event without ever blocking the protocol loop; a slow
// consumer loses events rather than stalling the transport.
func (c *ChatClient) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		log.WithFields(logrus.Fields{
			"at":   "client.ChatClient.emit",
			"type": ev.Type,
		}).Warn("event_dropped_slow_consumer")
	}
}

// Close tears down the transport; Run returns and emits EventClosed.
func (c *ChatClient) Close() {
	c.transport.Close()
}
