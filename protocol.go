package scatter

import "encoding/json"

// Gateway message types (client -> server).
const (
	msgIdentify         = "identify"
	msgSubscribe        = "subscribe"
	msgUnsubscribe      = "unsubscribe"
	msgSubscribeSpace   = "subscribe_space"
	msgUnsubscribeSpace = "unsubscribe_space"
	msgTyping           = "typing"
	msgPing             = "ping"
)

// Gateway frame types consumed by the session itself (server -> client).
const (
	frameReady = "ready"
	framePong  = "pong"
)

// --- Messages (Client -> Server) ---

// GatewayMessage represents a control message sent to the gateway.
type GatewayMessage struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	SpaceID   string `json:"space_id,omitempty"`
}

// newIdentifyMessage creates the authentication message sent on connect.
func newIdentifyMessage(token string) *GatewayMessage {
	return &GatewayMessage{Type: msgIdentify, Token: token}
}

// newSubscribeMessage creates a channel subscribe message.
func newSubscribeMessage(channelID string) *GatewayMessage {
	return &GatewayMessage{Type: msgSubscribe, ChannelID: channelID}
}

// newUnsubscribeMessage creates a channel unsubscribe message.
func newUnsubscribeMessage(channelID string) *GatewayMessage {
	return &GatewayMessage{Type: msgUnsubscribe, ChannelID: channelID}
}

// newSubscribeSpaceMessage creates a space subscribe message.
func newSubscribeSpaceMessage(spaceID string) *GatewayMessage {
	return &GatewayMessage{Type: msgSubscribeSpace, SpaceID: spaceID}
}

// newUnsubscribeSpaceMessage creates a space unsubscribe message.
func newUnsubscribeSpaceMessage(spaceID string) *GatewayMessage {
	return &GatewayMessage{Type: msgUnsubscribeSpace, SpaceID: spaceID}
}

// newTypingMessage creates a single typing indicator message.
func newTypingMessage(channelID string) *GatewayMessage {
	return &GatewayMessage{Type: msgTyping, ChannelID: channelID}
}

// newPingMessage creates a heartbeat liveness message. The gateway answers
// with a pong frame.
func newPingMessage() *GatewayMessage {
	return &GatewayMessage{Type: msgPing}
}

// --- Envelopes (Server -> Client) ---

// Envelope is one inbound gateway frame: the raw event kind plus the
// undecoded frame. Payload fields live alongside "type" in the same JSON
// object, so Data holds the whole frame and parsers ignore the kind field.
type Envelope struct {
	Type string
	Data json.RawMessage
}

// decodeEnvelope splits a raw frame into its kind and payload.
func decodeEnvelope(data []byte) (*Envelope, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	return &Envelope{Type: head.Type, Data: json.RawMessage(data)}, nil
}
