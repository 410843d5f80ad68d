package scatter

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Transport provides the interface for sending and receiving gateway frames.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, msg *GatewayMessage) error
	Receive(ctx context.Context) (*Envelope, error)
	Close() error
}

// DialFunc opens a new gateway connection. The session calls it for the
// initial connect and again for every reconnect attempt.
type DialFunc func(ctx context.Context) (Transport, error)

// DialOptions configures the WebSocket connection.
type DialOptions struct {
	// HTTPHeader specifies additional HTTP headers to send during handshake.
	HTTPHeader http.Header

	// HTTPClient is the HTTP client used for the handshake.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client
}

// Dial connects to the Scatter gateway and returns a Transport.
func Dial(ctx context.Context, url string, token string, opts *DialOptions) (Transport, error) {
	headers := http.Header{}
	if opts != nil && opts.HTTPHeader != nil {
		headers = opts.HTTPHeader.Clone()
	}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	dialOpts := &websocket.DialOptions{
		HTTPHeader: headers,
	}
	if opts != nil && opts.HTTPClient != nil {
		dialOpts.HTTPClient = opts.HTTPClient
	}

	conn, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", URL: url, Err: err}
	}

	// Message bursts with attachments and embeds can get large.
	conn.SetReadLimit(16 * 1024 * 1024) // 16MB

	return &wsTransport{conn: conn}, nil
}

// wsTransport implements Transport over WebSocket.
type wsTransport struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// Send sends a control message to the gateway.
func (t *wsTransport) Send(ctx context.Context, msg *GatewayMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return &SendError{Op: "marshal", Err: err}
	}

	if err := t.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}

	return nil
}

// Receive receives one frame from the gateway.
func (t *wsTransport) Receive(ctx context.Context) (*Envelope, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		return nil, &ConnectionError{Op: "read", Err: err}
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, &SendError{Op: "unmarshal", Err: err}
	}

	return env, nil
}

// Close closes the transport.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	return t.conn.Close(websocket.StatusNormalClosure, "")
}
