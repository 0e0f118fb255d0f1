package protocol

import (
	"encoding/json"
	"strings"

	"github.com/samber/oops"
)

// Chat payload types. A "_private" suffix means the payload was addressed to
// a single peer rather than the channel.
const (
	PayloadText       = "text"
	PayloadImage      = "image"
	PayloadFileStart  = "file_start"
	PayloadFileVolume = "file_volume"
	PayloadFileEnd    = "file_end"

	PrivateSuffix = "_private"
)

// ChatPayload is the inner plaintext carried under the ChaCha20 layer.
// Data is opaque to the core: UTF-8 text, a base64 chunk, or a structured
// file descriptor, depending on Type. The relay never sees this struct.
type ChatPayload struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	UserName  string          `json:"user_name,omitempty"`
	ClientID  string          `json:"client_id,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// IsPrivate reports whether the payload was addressed to a single peer.
func (p *ChatPayload) IsPrivate() bool {
	return strings.HasSuffix(p.Type, PrivateSuffix)
}

// BaseType returns the payload type with any private suffix stripped.
func (p *ChatPayload) BaseType() string {
	return strings.TrimSuffix(p.Type, PrivateSuffix)
}

func validPayloadType(base string) bool {
	switch base {
	case PayloadText, PayloadImage, PayloadFileStart, PayloadFileVolume, PayloadFileEnd:
		return true
	}
	return false
}

// EncodeChatPayload serializes the inner plaintext before encryption.
func EncodeChatPayload(p *ChatPayload) ([]byte, error) {
	if !validPayloadType(p.BaseType()) {
		return nil, oops.Errorf("unknown chat payload type %q", p.Type)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, oops.Errorf("encode chat payload: %w", err)
	}
	return b, nil
}

// DecodeChatPayload parses a decrypted inner plaintext. A wrong-password peer
// produces ChaCha20 garbage here; the resulting error is the caller's signal
// to drop the message without touching the session.
func DecodeChatPayload(data []byte) (*ChatPayload, error) {
	var p ChatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, oops.Errorf("decode chat payload: %w", err)
	}
	if !validPayloadType(p.BaseType()) {
		return nil, oops.Errorf("unknown chat payload type %q", p.Type)
	}
	return &p, nil
}
