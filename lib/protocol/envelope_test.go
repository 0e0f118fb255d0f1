package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		env  *Envelope
	}{
		{"server hello", &Envelope{
			Action:   ActionServerHello,
			ClientID: "c1",
			RSAPub:   []byte{0x30, 0x82, 0x01},
		}},
		{"key exchange", &Envelope{
			Action:  ActionKeyExchange,
			ECDHPub: bytes.Repeat([]byte{0xaa}, 256),
			RSAPub:  []byte{0x30},
		}},
		{"encrypted", &Envelope{
			Action: ActionEncrypted,
			Data:   []byte("opaque"),
		}},
		{"join", &Envelope{
			Action:   ActionJoin,
			UserName: "alice",
			Channel:  "#test",
		}},
		{"client key", &Envelope{
			Action: ActionClient,
			Target: "c2",
			Key:    bytes.Repeat([]byte{1}, 32),
		}},
		{"client data", &Envelope{
			Action:   ActionClient,
			ClientID: "c1",
			UserName: "alice",
			Target:   "c2",
			Data:     []byte("ciphertext"),
		}},
		{"channel", &Envelope{
			Action: ActionChannel,
			Ciphertexts: map[string][]byte{
				"c2": []byte("for c2"),
				"c3": []byte("for c3"),
			},
		}},
		{"list", &Envelope{
			Action: ActionList,
			Clients: []ClientInfo{
				{ClientID: "c1", UserName: "alice"},
				{ClientID: "c2", UserName: "bob"},
			},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := Encode(tc.env)
			require.NoError(t, err)

			got, err := Decode(raw, 0)
			require.NoError(t, err)
			assert.Equal(t, tc.env, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"not json", "][{"},
		{"no action", `{"data":"aGk="}`},
		{"multi-byte action", `{"action":"jw"}`},
		{"unknown action", `{"action":"z"}`},
		{"bad base64", `{"action":"e","data":"%%%"}`},
		{"hello without rsa", `{"action":"s","client_id":"c1"}`},
		{"key exchange without point", `{"action":"k"}`},
		{"encrypted without data", `{"action":"e"}`},
		{"join without channel", `{"action":"j","user_name":"alice"}`},
		{"client without target", `{"action":"c","data":"aGk="}`},
		{"client without body", `{"action":"c","target":"c2"}`},
		{"channel without ciphertext", `{"action":"w"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.raw), 0)
			assert.ErrorIs(t, err, ErrMalformedFrame)
		})
	}
}

func TestDecodeOversizedFrame(t *testing.T) {
	env := &Envelope{Action: ActionEncrypted, Data: bytes.Repeat([]byte{7}, 1024)}
	raw, err := Encode(env)
	require.NoError(t, err)

	_, err = Decode(raw, 256)
	assert.ErrorIs(t, err, ErrMalformedFrame)

	// The default limit applies when maxBytes is unset.
	_, err = Decode(raw, 0)
	assert.NoError(t, err)
}

func TestEncodeRejectsUnknownAction(t *testing.T) {
	_, err := Encode(&Envelope{Action: Action('z')})
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestActionNames(t *testing.T) {
	assert.Equal(t, "join", ActionJoin.Name())
	assert.Equal(t, "channel", ActionChannel.Name())
	assert.Equal(t, "unknown", Action('x').Name())
}
