package protocol

import (
	"encoding/json"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

// ClientInfo is one membership entry in a list envelope.
type ClientInfo struct {
	ClientID string `json:"client_id"`
	UserName string `json:"user_name"`
}

// MarshalJSON writes the action tag as a one-character string.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(rune(a)))
}

// UnmarshalJSON parses a one-character action tag.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) != 1 {
		return oops.Errorf("bad action tag %q", s)
	}
	*a = Action(s[0])
	return nil
}

// Envelope is one wire frame. Which fields are populated depends on the
// action tag; Encode and Decode enforce the per-action required set.
type Envelope struct {
	Action Action `json:"action"`

	// Identity fields. The relay fills ClientID and UserName on forwarded
	// chat envelopes from its own session state; values supplied by the
	// sender are overwritten.
	ClientID string `json:"client_id,omitempty"`
	UserName string `json:"user_name,omitempty"`

	// Join fields.
	Channel string `json:"channel,omitempty"`

	// Unicast routing.
	Target string `json:"target,omitempty"`

	// Key material. RSAPub is PKCS#1 DER; ECDHPub is an RSA-OAEP-wrapped
	// P-384 point during the handshake; Key is a raw Curve25519 point on
	// inner 'c' envelopes.
	RSAPub  []byte `json:"rsa_pub,omitempty"`
	ECDHPub []byte `json:"ecdh_pub,omitempty"`
	Key     []byte `json:"key,omitempty"`

	// Data is opaque ciphertext: the outer AES envelope on 'e' frames, a
	// ChaCha20 ciphertext on inner chat envelopes. The relay never inspects
	// or mutates it beyond copying.
	Data []byte `json:"data,omitempty"`

	// Ciphertexts is the per-recipient map on an outbound 'w' envelope,
	// keyed by client_id. The relay splits it, delivering each recipient
	// only its own entry in Data.
	Ciphertexts map[string][]byte `json:"ciphertexts,omitempty"`

	// Clients is the membership list on 'l' envelopes.
	Clients []ClientInfo `json:"clients,omitempty"`
}

// Encode serializes an envelope to its wire form.
func Encode(env *Envelope) ([]byte, error) {
	if !env.Action.valid() {
		return nil, oops.Wrapf(ErrMalformedFrame, "unknown action tag %q", env.Action)
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, oops.Wrapf(ErrMalformedFrame, "encode: %v", err)
	}
	return b, nil
}

// Decode parses a wire frame, enforcing the size limit and the per-action
// required field set. maxBytes <= 0 applies DefaultMaxEnvelopeBytes.
func Decode(data []byte, maxBytes int) (*Envelope, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxEnvelopeBytes
	}
	if len(data) > maxBytes {
		log.WithFields(logrus.Fields{
			"at":        "protocol.Decode",
			"frame_len": len(data),
			"max":       maxBytes,
		}).Warn("oversized_frame")
		return nil, oops.Wrapf(ErrMalformedFrame, "frame of %d bytes exceeds limit %d", len(data), maxBytes)
	}

	env := &Envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, oops.Wrapf(ErrMalformedFrame, "decode: %v", err)
	}
	if !env.Action.valid() {
		return nil, oops.Wrapf(ErrMalformedFrame, "unknown action tag %q", env.Action)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// validate checks the required fields for the envelope's action.
func (env *Envelope) validate() error {
	switch env.Action {
	case ActionServerHello:
		if env.ClientID == "" || len(env.RSAPub) == 0 {
			return oops.Wrapf(ErrMalformedFrame, "server hello missing client_id or rsa_pub")
		}
	case ActionKeyExchange:
		if len(env.ECDHPub) == 0 {
			return oops.Wrapf(ErrMalformedFrame, "key exchange missing ecdh_pub")
		}
	case ActionEncrypted:
		if len(env.Data) == 0 {
			return oops.Wrapf(ErrMalformedFrame, "encrypted envelope missing data")
		}
	case ActionJoin:
		if env.UserName == "" || env.Channel == "" {
			return oops.Wrapf(ErrMalformedFrame, "join missing user_name or channel")
		}
	case ActionClient:
		if env.Target == "" {
			return oops.Wrapf(ErrMalformedFrame, "client envelope missing target")
		}
		if len(env.Key) == 0 && len(env.Data) == 0 {
			return oops.Wrapf(ErrMalformedFrame, "client envelope carries neither key nor data")
		}
	case ActionChannel:
		if len(env.Ciphertexts) == 0 && len(env.Data) == 0 {
			return oops.Wrapf(ErrMalformedFrame, "channel envelope carries no ciphertext")
		}
	case ActionList:
		// An empty channel list is legal.
	}
	return nil
}
