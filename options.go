package scatter

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the production REST API endpoint.
	DefaultBaseURL = "https://scatter.starforge.games/api"

	// DefaultGatewayURL is the production gateway endpoint.
	DefaultGatewayURL = "wss://scatter.starforge.games/gateway"
)

const (
	defaultHeartbeatInterval = 15 * time.Second
	defaultHeartbeatTimeout  = 5 * time.Second

	// Typing indicators expire platform-side after ~5s; resending every 4s
	// leaves margin for one late tick without the indicator dropping.
	defaultTypingInterval = 4 * time.Second

	defaultReconnectInitial = time.Second
	defaultReconnectMax     = 30 * time.Second
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL           string
	gatewayURL        string
	httpClient        *http.Client
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	typingInterval    time.Duration
	reconnectInitial  time.Duration
	reconnectMax      time.Duration
	dial              DialFunc
	onSend            func(*GatewayMessage)
	onReceive         func(*Envelope)
}

func defaultConfig() clientConfig {
	return clientConfig{
		baseURL:           DefaultBaseURL,
		gatewayURL:        DefaultGatewayURL,
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		heartbeatInterval: defaultHeartbeatInterval,
		heartbeatTimeout:  defaultHeartbeatTimeout,
		typingInterval:    defaultTypingInterval,
		reconnectInitial:  defaultReconnectInitial,
		reconnectMax:      defaultReconnectMax,
	}
}

// WithBaseURL overrides the REST API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithGatewayURL overrides the gateway websocket endpoint.
func WithGatewayURL(url string) ClientOption {
	return func(c *clientConfig) {
		c.gatewayURL = url
	}
}

// WithHTTPClient sets the HTTP client used for REST calls and the websocket
// handshake.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithLogger sets a structured logger for the client. Frames and dropped
// events are logged at debug level, handler panics and connection failures
// at error/info.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHeartbeatInterval sets how often the session pings the gateway.
func WithHeartbeatInterval(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.heartbeatInterval = d
	}
}

// WithHeartbeatTimeout sets how long the session waits for a heartbeat ack
// before dropping the connection and reconnecting.
func WithHeartbeatTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.heartbeatTimeout = d
	}
}

// WithTypingInterval sets how often an open typing indicator re-sends its
// signal. It must be shorter than the platform's ~5s expiry to keep the
// indicator visible.
func WithTypingInterval(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.typingInterval = d
	}
}

// WithReconnectWait bounds the exponential backoff between reconnect
// attempts. The delay starts at initial, doubles with jitter, and never
// exceeds max.
func WithReconnectWait(initial, max time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.reconnectInitial = initial
		c.reconnectMax = max
	}
}

// WithDialFunc replaces how the session opens gateway connections. This is
// useful for testing or custom transport implementations.
func WithDialFunc(dial DialFunc) ClientOption {
	return func(c *clientConfig) {
		c.dial = dial
	}
}

// WithOnSend sets a callback invoked before each gateway message is sent.
func WithOnSend(fn func(*GatewayMessage)) ClientOption {
	return func(c *clientConfig) {
		c.onSend = fn
	}
}

// WithOnReceive sets a callback invoked for each frame received from the
// gateway, including frames the session consumes itself.
func WithOnReceive(fn func(*Envelope)) ClientOption {
	return func(c *clientConfig) {
		c.onReceive = fn
	}
}
