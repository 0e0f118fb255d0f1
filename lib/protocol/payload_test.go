package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatPayloadRoundTrip(t *testing.T) {
	text, _ := json.Marshal("hi there")
	p := &ChatPayload{
		Type:      PayloadText,
		Data:      text,
		UserName:  "alice",
		ClientID:  "c1",
		Timestamp: 1700000000000,
	}
	raw, err := EncodeChatPayload(p)
	require.NoError(t, err)

	got, err := DecodeChatPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, p.Type, got.Type)
	assert.JSONEq(t, string(p.Data), string(got.Data))
	assert.Equal(t, p.UserName, got.UserName)
}

func TestChatPayloadPrivateSuffix(t *testing.T) {
	p := &ChatPayload{Type: PayloadText + PrivateSuffix}
	assert.True(t, p.IsPrivate())
	assert.Equal(t, PayloadText, p.BaseType())

	p = &ChatPayload{Type: PayloadFileVolume}
	assert.False(t, p.IsPrivate())
	assert.Equal(t, PayloadFileVolume, p.BaseType())
}

func TestChatPayloadFileTypes(t *testing.T) {
	// File payloads carry opaque descriptors and chunks; the codec only
	// checks the type tag.
	for _, typ := range []string{
		PayloadFileStart, PayloadFileVolume, PayloadFileEnd, PayloadImage,
		PayloadFileStart + PrivateSuffix,
	} {
		raw, err := EncodeChatPayload(&ChatPayload{
			Type: typ,
			Data: json.RawMessage(`{"name":"a.bin","size":1}`),
		})
		require.NoError(t, err, typ)
		_, err = DecodeChatPayload(raw)
		require.NoError(t, err, typ)
	}
}

func TestChatPayloadRejectsUnknownType(t *testing.T) {
	_, err := EncodeChatPayload(&ChatPayload{Type: "sms"})
	assert.Error(t, err)

	_, err = DecodeChatPayload([]byte(`{"type":"sms","data":"1"}`))
	assert.Error(t, err)
}

func TestDecodeChatPayloadGarbage(t *testing.T) {
	// What a wrong-password peer's ChaCha20 output looks like.
	_, err := DecodeChatPayload([]byte{0x9f, 0x03, 0x54, 0xff, 0x00, 0x17})
	assert.Error(t, err)
}
