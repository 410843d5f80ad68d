package scatter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGatewayMessageShapes(t *testing.T) {
	tests := []struct {
		name string
		msg  *GatewayMessage
		want string
	}{
		{"identify", newIdentifyMessage("tok-1"), `{"type":"identify","token":"tok-1"}`},
		{"subscribe", newSubscribeMessage("c1"), `{"type":"subscribe","channel_id":"c1"}`},
		{"unsubscribe", newUnsubscribeMessage("c1"), `{"type":"unsubscribe","channel_id":"c1"}`},
		{"subscribe_space", newSubscribeSpaceMessage("s1"), `{"type":"subscribe_space","space_id":"s1"}`},
		{"unsubscribe_space", newUnsubscribeSpaceMessage("s1"), `{"type":"unsubscribe_space","space_id":"s1"}`},
		{"typing", newTypingMessage("c1"), `{"type":"typing","channel_id":"c1"}`},
		{"ping", newPingMessage(), `{"type":"ping"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestDecodeEnvelope(t *testing.T) {
	frame := `{"type":"message_create","id":"m1","content":"hi"}`
	env, err := decodeEnvelope([]byte(frame))
	require.NoError(t, err)
	require.Equal(t, "message_create", env.Type)

	// The payload keeps the whole frame for the parsers.
	require.JSONEq(t, frame, string(env.Data))
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	_, err := decodeEnvelope([]byte(`not json`))
	require.Error(t, err)
}

func TestDecodeEnvelope_MissingType(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"id":"m1"}`))
	require.NoError(t, err)
	require.Empty(t, env.Type)
}
