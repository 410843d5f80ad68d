package scatter

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mockTransport implements Transport for testing.
type mockTransport struct {
	mu     sync.Mutex
	sent   []*GatewayMessage
	events chan *Envelope
	closed bool

	// Channel signaled for every message sent.
	onSend chan *GatewayMessage
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		events: make(chan *Envelope, 100),
		onSend: make(chan *GatewayMessage, 100),
	}
}

func (m *mockTransport) Send(ctx context.Context, msg *GatewayMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.sent = append(m.sent, msg)

	select {
	case m.onSend <- msg:
	default:
	}
	return nil
}

func (m *mockTransport) Receive(ctx context.Context) (*Envelope, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case env, ok := <-m.events:
		if !ok {
			return nil, &ConnectionError{Op: "read", Err: net.ErrClosed}
		}
		return env, nil
	}
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}

// push delivers a raw frame to the session.
func (m *mockTransport) push(frame string) {
	env, err := decodeEnvelope([]byte(frame))
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.events <- env
}

func (m *mockTransport) sentMessages() []*GatewayMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*GatewayMessage(nil), m.sent...)
}

func (m *mockTransport) sentTypes() []string {
	var types []string
	for _, msg := range m.sentMessages() {
		types = append(types, msg.Type)
	}
	return types
}

func (m *mockTransport) countSent(msgType string) int {
	n := 0
	for _, msg := range m.sentMessages() {
		if msg.Type == msgType {
			n++
		}
	}
	return n
}

// autoRespond answers identify with ready and ping with pong, like a
// healthy gateway.
func autoRespond(t *testing.T, m *mockTransport, userID string) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		for {
			select {
			case <-done:
				return
			case msg := <-m.onSend:
				switch msg.Type {
				case msgIdentify:
					m.push(`{"type":"ready","user_id":"` + userID + `"}`)
				case msgPing:
					m.push(`{"type":"pong"}`)
				}
			}
		}
	}()
}

// fakeDialer hands scripted transports to the session, blocking until the
// test supplies the next one.
type fakeDialer struct {
	transports chan Transport
	calls      atomic.Int32
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{transports: make(chan Transport, 4)}
}

func (d *fakeDialer) dial(ctx context.Context) (Transport, error) {
	d.calls.Add(1)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case tr := <-d.transports:
		return tr, nil
	}
}

func newTestClient(t *testing.T, d *fakeDialer, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{
		WithDialFunc(d.dial),
		WithHeartbeatInterval(50 * time.Millisecond),
		WithHeartbeatTimeout(100 * time.Millisecond),
		WithTypingInterval(20 * time.Millisecond),
		WithReconnectWait(10*time.Millisecond, 50*time.Millisecond),
	}, opts...)
	c := New("test-token", opts...)
	t.Cleanup(func() { c.Close() })
	return c
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func waitForState(t *testing.T, c *Client, want ConnState) {
	t.Helper()
	waitFor(t, func() bool { return c.State() == want },
		"timeout waiting for state "+string(want))
}

func TestClient_StartConnects(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d)

	tr := newMockTransport()
	autoRespond(t, tr, "bot-1")
	d.transports <- tr

	go c.Start(context.Background())
	waitForState(t, c, StateConnected)

	require.Equal(t, "bot-1", c.UserID())

	sent := tr.sentMessages()
	require.NotEmpty(t, sent)
	require.Equal(t, msgIdentify, sent[0].Type)
	require.Equal(t, "test-token", sent[0].Token)
}

func TestClient_SubscribePairsTrackAndSend(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d)

	tr := newMockTransport()
	autoRespond(t, tr, "bot-1")
	d.transports <- tr

	ctx := context.Background()
	go c.Start(ctx)
	waitForState(t, c, StateConnected)

	require.NoError(t, c.SubscribeChannel(ctx, "chan-a"))
	require.NoError(t, c.SubscribeSpace(ctx, "space-s"))

	var sub, subSpace *GatewayMessage
	for _, msg := range tr.sentMessages() {
		switch msg.Type {
		case msgSubscribe:
			sub = msg
		case msgSubscribeSpace:
			subSpace = msg
		}
	}
	require.NotNil(t, sub)
	require.Equal(t, "chan-a", sub.ChannelID)
	require.NotNil(t, subSpace)
	require.Equal(t, "space-s", subSpace.SpaceID)

	channels, spaces := c.subs.snapshot()
	require.Equal(t, []string{"chan-a"}, channels)
	require.Equal(t, []string{"space-s"}, spaces)
}

func TestClient_SubscribeBeforeConnectTracksAndFails(t *testing.T) {
	c := newTestClient(t, newFakeDialer())

	err := c.SubscribeChannel(context.Background(), "chan-a")
	require.ErrorIs(t, err, ErrNotConnected)

	// Intent is recorded even though the live send failed.
	channels, _ := c.subs.snapshot()
	require.Equal(t, []string{"chan-a"}, channels)
}

func TestClient_ReconnectReplaysSubscriptions(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d)

	tr1 := newMockTransport()
	autoRespond(t, tr1, "bot-1")
	d.transports <- tr1

	ctx := context.Background()
	go c.Start(ctx)
	waitForState(t, c, StateConnected)

	require.NoError(t, c.SubscribeChannel(ctx, "chan-a"))
	require.NoError(t, c.SubscribeChannel(ctx, "chan-b"))
	require.NoError(t, c.SubscribeSpace(ctx, "space-s"))

	// The second gateway sends ready immediately followed by an event.
	// By the time that event reaches a handler, the replayed subscribes
	// must already be on the wire.
	tr2 := newMockTransport()
	var replayed []*GatewayMessage
	dispatched := make(chan struct{})
	c.On(EventMessage, func(Event) {
		replayed = tr2.sentMessages()
		close(dispatched)
	})

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		<-tr2.onSend // identify
		tr2.push(`{"type":"ready","user_id":"bot-1"}`)
		tr2.push(`{"type":"message_create","id":"m1","channel_id":"chan-a","content":"hi","author":{"id":"u1"}}`)
		for {
			select {
			case <-done:
				return
			case msg := <-tr2.onSend:
				if msg.Type == msgPing {
					tr2.push(`{"type":"pong"}`)
				}
			}
		}
	}()

	// Drop the first connection.
	tr1.Close()
	d.transports <- tr2

	select {
	case <-dispatched:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for post-reconnect dispatch")
	}

	var types []string
	var args []string
	for _, msg := range replayed {
		types = append(types, msg.Type)
		args = append(args, msg.ChannelID+msg.SpaceID)
	}
	require.Equal(t, []string{msgIdentify, msgSubscribe, msgSubscribe, msgSubscribeSpace}, types)
	require.Equal(t, []string{"", "chan-a", "chan-b", "space-s"}, args)

	waitForState(t, c, StateConnected)
}

func TestClient_NoReplayOnFirstConnect(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d)

	// Tracked before the first connect: nothing to replay, the platform
	// never saw these subscriptions.
	c.subs.trackChannel("chan-a")

	tr := newMockTransport()
	autoRespond(t, tr, "bot-1")
	d.transports <- tr

	go c.Start(context.Background())
	waitForState(t, c, StateConnected)

	require.Zero(t, tr.countSent(msgSubscribe))
}

func TestClient_HeartbeatTimeoutReconnects(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d)

	// First gateway acknowledges identify but never answers pings.
	tr1 := newMockTransport()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		for {
			select {
			case <-done:
				return
			case msg := <-tr1.onSend:
				if msg.Type == msgIdentify {
					tr1.push(`{"type":"ready","user_id":"bot-1"}`)
				}
			}
		}
	}()
	d.transports <- tr1

	go c.Start(context.Background())
	waitForState(t, c, StateConnected)

	tr2 := newMockTransport()
	autoRespond(t, tr2, "bot-1")
	d.transports <- tr2

	// The missed heartbeat ack must force exactly one reconnect.
	waitFor(t, func() bool {
		return d.calls.Load() == 2 && c.State() == StateConnected
	}, "timeout waiting for reconnect after missed heartbeat")

	require.GreaterOrEqual(t, tr1.countSent(msgPing), 1)
}

func TestClient_CloseIsTerminal(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d)

	tr := newMockTransport()
	autoRespond(t, tr, "bot-1")
	d.transports <- tr

	ctx := context.Background()
	go c.Start(ctx)
	waitForState(t, c, StateConnected)

	require.NoError(t, c.Close())
	require.Equal(t, StateClosed, c.State())

	err := c.SendTyping(ctx, "chan-a")
	require.ErrorIs(t, err, ErrClosed)

	// Double close is a no-op.
	require.NoError(t, c.Close())
	require.Equal(t, StateClosed, c.State())
}

func TestClient_CloseStopsTyping(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d)

	tr := newMockTransport()
	autoRespond(t, tr, "bot-1")
	d.transports <- tr

	ctx := context.Background()
	go c.Start(ctx)
	waitForState(t, c, StateConnected)

	_, err := c.Typing(ctx, "chan-a")
	require.NoError(t, err)

	require.NoError(t, c.Close())
	after := tr.countSent(msgTyping)

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, after, tr.countSent(msgTyping))

	_, err = c.Typing(ctx, "chan-a")
	require.ErrorIs(t, err, ErrClosed)
}

func TestClient_WithTypingStopsOnError(t *testing.T) {
	d := newFakeDialer()
	c := newTestClient(t, d)

	tr := newMockTransport()
	autoRespond(t, tr, "bot-1")
	d.transports <- tr

	ctx := context.Background()
	go c.Start(ctx)
	waitForState(t, c, StateConnected)

	boom := errors.New("boom")
	err := c.WithTyping(ctx, "chan-a", func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// At least the immediate signal plus one keepalive went out, and
	// nothing more after the scope ended.
	sentDuring := tr.countSent(msgTyping)
	require.GreaterOrEqual(t, sentDuring, 2)

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, sentDuring, tr.countSent(msgTyping))
}

func TestClient_ObservabilityHooks(t *testing.T) {
	d := newFakeDialer()

	var mu sync.Mutex
	var sent, received []string

	c := newTestClient(t, d,
		WithOnSend(func(msg *GatewayMessage) {
			mu.Lock()
			sent = append(sent, msg.Type)
			mu.Unlock()
		}),
		WithOnReceive(func(env *Envelope) {
			mu.Lock()
			received = append(received, env.Type)
			mu.Unlock()
		}),
	)

	tr := newMockTransport()
	autoRespond(t, tr, "bot-1")
	d.transports <- tr

	go c.Start(context.Background())
	waitForState(t, c, StateConnected)

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, sent, msgIdentify)
	require.Contains(t, received, frameReady)
}
