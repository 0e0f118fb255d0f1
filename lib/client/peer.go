package client

import (
	"github.com/nodecrypt/nodecrypt/lib/crypto/chacha20"
	"github.com/nodecrypt/nodecrypt/lib/crypto/types"
	"github.com/samber/oops"
)

// PeerState tracks the inner key exchange with one other client.
type PeerState int

const (
	// PeerAnnounced: the peer is known but we have not sent our key yet.
	PeerAnnounced PeerState = iota
	// PeerAwaitingKey: our Curve25519 public key is out, theirs is pending.
	PeerAwaitingKey
	// PeerEstablished: the shared ChaCha20 key is derived.
	PeerEstablished
)

// maxPendingCiphertexts bounds how many inbound frames are buffered for a
// peer whose key has not arrived yet.
const maxPendingCiphertexts = 32

var errPeerNotEstablished = oops.Errorf("peer session not established")

// PeerSession is the client-side cryptographic state for one other member of
// the channel. No plaintext is ever sent to a peer that is not established.
type PeerSession struct {
	ID       string
	UserName string

	state   PeerState
	enc     types.Encrypter
	dec     types.Decrypter
	pending [][]byte
}

// NewPeerSession creates the state for a peer just observed in a list or an
// early key frame.
func NewPeerSession(id, userName string) *PeerSession {
	return &PeerSession{ID: id, UserName: userName, state: PeerAnnounced}
}

// State returns the exchange state.
func (p *PeerSession) State() PeerState {
	return p.state
}

// MarkKeySent records that our public key went out to this peer.
func (p *PeerSession) MarkKeySent() {
	if p.state == PeerAnnounced {
		p.state = PeerAwaitingKey
	}
}

// Establish installs the derived ChaCha20 key and returns any ciphertexts
// buffered while the exchange was in flight.
func (p *PeerSession) Establish(key *chacha20.ChaCha20Key) ([][]byte, error) {
	enc, err := key.NewEncrypter()
	if err != nil {
		return nil, err
	}
	dec, err := key.NewDecrypter()
	if err != nil {
		return nil, err
	}
	p.enc, p.dec = enc, dec
	p.state = PeerEstablished
	buffered := p.pending
	p.pending = nil
	return buffered, nil
}

// Encrypt seals one chat plaintext for this peer.
func (p *PeerSession) Encrypt(plaintext []byte) ([]byte, error) {
	if p.state != PeerEstablished {
		return nil, errPeerNotEstablished
	}
	return p.enc.Encrypt(plaintext)
}

// Decrypt opens one chat ciphertext from this peer.
func (p *PeerSession) Decrypt(ciphertext []byte) ([]byte, error) {
	if p.state != PeerEstablished {
		return nil, errPeerNotEstablished
	}
	return p.dec.Decrypt(ciphertext)
}

// Buffer stores an inbound ciphertext until the key arrives. Past the bound
// the oldest frames are discarded.
func (p *PeerSession) Buffer(ciphertext []byte) {
	if len(p.pending) >= maxPendingCiphertexts {
		p.pending = p.pending[1:]
	}
	buf := make([]byte, len(ciphertext))
	copy(buf, ciphertext)
	p.pending = append(p.pending, buf)
}
