package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avlasov/Parley/internal/protocol"
)

func TestDecodeClientFrame(t *testing.T) {
	tests := []struct {
		name string
		data string
		ok   bool
	}{
		{name: "message frame", data: `{"message":"hi"}`, ok: true},
		{name: "empty message still routes", data: `{"message":""}`, ok: true},
		{name: "typing on", data: `{"typing":true}`, ok: true},
		{name: "typing off", data: `{"typing":false}`, ok: true},
		{name: "unknown extra keys tolerated", data: `{"message":"hi","v":2}`, ok: true},
		{name: "both recognized keys", data: `{"message":"hi","typing":true}`, ok: false},
		{name: "no recognized key", data: `{"ping":1}`, ok: false},
		{name: "empty object", data: `{}`, ok: false},
		{name: "not json", data: `hello`, ok: false},
		{name: "wrong types", data: `{"message":5}`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, ok := protocol.DecodeClientFrame([]byte(tt.data))
			require.Equal(t, tt.ok, ok)
			if ok {
				require.True(t, (frame.Message != nil) != (frame.Typing != nil))
			}
		})
	}
}

func TestEncodeFrames(t *testing.T) {
	data, err := protocol.EncodeMessageFrame("hi")
	require.NoError(t, err)
	frame, ok := protocol.DecodeClientFrame(data)
	require.True(t, ok)
	require.Equal(t, "hi", *frame.Message)

	data, err = protocol.EncodeTypingFrame(true)
	require.NoError(t, err)
	frame, ok = protocol.DecodeClientFrame(data)
	require.True(t, ok)
	require.True(t, *frame.Typing)
}
