package scatter

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ConnState is the lifecycle state of the gateway session.
type ConnState string

const (
	StateDisconnected   ConnState = "disconnected"
	StateConnecting     ConnState = "connecting"
	StateAuthenticating ConnState = "authenticating"
	StateConnected      ConnState = "connected"
	StateReconnecting   ConnState = "reconnecting"
	StateClosed         ConnState = "closed"
)

// How long to wait for the ready ack after identifying.
const readyTimeout = 30 * time.Second

type sessionConfig struct {
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	reconnectInitial  time.Duration
	reconnectMax      time.Duration
	onSend            func(*GatewayMessage)
	onReceive         func(*Envelope)
}

// session keeps exactly one logical gateway connection alive, hiding
// transient network failures from callers. It owns the connection state and
// the authenticated user ID; background tasks interact with it only by
// sending outbound messages or by forcing the reconnect transition.
type session struct {
	token    string
	dial     DialFunc
	subs     *subscriptionTracker
	dispatch func(*Envelope)
	logger   *slog.Logger
	cfg      sessionConfig

	mu        sync.RWMutex
	state     ConnState
	transport Transport
	userID    string
	everReady bool

	started   atomic.Bool
	closeOnce sync.Once
	closing   chan struct{} // closed by close()
	done      chan struct{} // closed when run returns
}

func newSession(token string, dial DialFunc, subs *subscriptionTracker, dispatch func(*Envelope), cfg sessionConfig, logger *slog.Logger) *session {
	return &session{
		token:    token,
		dial:     dial,
		subs:     subs,
		dispatch: dispatch,
		logger:   logger,
		cfg:      cfg,
		state:    StateDisconnected,
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// State returns the current connection state.
func (s *session) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UserID returns the authenticated bot user ID, or "" before the first
// ready ack.
func (s *session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *session) setState(state ConnState) {
	s.mu.Lock()
	prev := s.state
	if prev == StateClosed {
		// Closed is terminal.
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()
	if prev != state {
		s.logger.Debug("gateway state changed", "from", prev, "to", state)
	}
}

func (s *session) setUserID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}

func (s *session) setTransport(t Transport) {
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
}

// markReady records that a connection reached the ready state and reports
// whether one had before, which decides whether subscriptions are replayed.
func (s *session) markReady() (resumed bool) {
	s.mu.Lock()
	resumed = s.everReady
	s.everReady = true
	s.mu.Unlock()
	return resumed
}

// run drives the connect/reconnect loop until the session is closed or the
// context is cancelled. It blocks, so callers run it on its own goroutine
// or directly from Client.Start.
func (s *session) run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrClosed
	}
	defer close(s.done)

	select {
	case <-s.closing:
		return ErrClosed
	default:
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.reconnectInitial
	bo.MaxInterval = s.cfg.reconnectMax
	bo.MaxElapsedTime = 0 // retry until closed

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		s.setState(StateConnecting)
		t, err := s.dial(ctx)
		if err == nil {
			err = s.runConnection(ctx, t, bo)
			t.Close()
			s.setTransport(nil)
		}

		if ctx.Err() != nil {
			return nil
		}

		s.logger.Info("gateway disconnected, reconnecting", "error", err)
		s.setState(StateReconnecting)
		if !s.sleep(ctx, bo.NextBackOff()) {
			return nil
		}
	}
}

// runConnection handles one connection from identify to failure. It returns
// the error that ended the connection.
func (s *session) runConnection(ctx context.Context, t Transport, bo *backoff.ExponentialBackOff) error {
	s.setTransport(t)
	s.setState(StateAuthenticating)

	if err := s.sendOn(ctx, t, newIdentifyMessage(s.token)); err != nil {
		return err
	}

	// Wait for the ready ack. Anything else that arrives first is held
	// back and dispatched after subscription replay.
	var ready *Envelope
	var held []*Envelope
	authCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	for ready == nil {
		env, err := t.Receive(authCtx)
		if err != nil {
			cancel()
			return err
		}
		if s.cfg.onReceive != nil {
			s.cfg.onReceive(env)
		}
		switch env.Type {
		case frameReady:
			ready = env
		case framePong:
		default:
			held = append(held, env)
		}
	}
	cancel()

	var ack struct {
		UserID string `json:"user_id"`
	}
	_ = json.Unmarshal(ready.Data, &ack)
	s.setUserID(ack.UserID)

	resumed := s.markReady()
	s.setState(StateConnected)
	bo.Reset()

	// After a reconnect the platform's view of our subscriptions is empty;
	// replay the tracked sets before any further event is dispatched so the
	// seam is invisible to handlers.
	if resumed {
		if err := s.replaySubscriptions(ctx, t); err != nil {
			return err
		}
	}

	s.dispatch(ready)
	for _, env := range held {
		s.dispatch(env)
	}

	// The heartbeat runs on its own goroutine, driven by a timer
	// independent of inbound traffic, so a slow handler cannot stall
	// failure detection. A missed ack closes the transport, which surfaces
	// below as a read error and triggers exactly one reconnect.
	ackCh := make(chan struct{}, 1)
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		s.heartbeat(hbCtx, t, ackCh)
	}()
	defer func() {
		stopHeartbeat()
		<-hbDone
	}()

	for {
		env, err := t.Receive(ctx)
		if err != nil {
			return err
		}
		if s.cfg.onReceive != nil {
			s.cfg.onReceive(env)
		}
		if env.Type == framePong {
			select {
			case ackCh <- struct{}{}:
			default:
			}
			continue
		}
		s.dispatch(env)
	}
}

// heartbeat sends a liveness ping on a fixed interval and drops the
// connection if the ack does not arrive within the configured timeout.
func (s *session) heartbeat(ctx context.Context, t Transport, ack <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := s.sendOn(ctx, t, newPingMessage()); err != nil {
			return
		}

		timer := time.NewTimer(s.cfg.heartbeatTimeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-ack:
			timer.Stop()
		case <-timer.C:
			s.logger.Info("heartbeat ack timed out, dropping connection")
			t.Close()
			return
		}
	}
}

// replaySubscriptions re-sends subscribe messages for every tracked channel
// and space, channels first, in tracking order.
func (s *session) replaySubscriptions(ctx context.Context, t Transport) error {
	channels, spaces := s.subs.snapshot()
	for _, id := range channels {
		if err := s.sendOn(ctx, t, newSubscribeMessage(id)); err != nil {
			return err
		}
	}
	for _, id := range spaces {
		if err := s.sendOn(ctx, t, newSubscribeSpaceMessage(id)); err != nil {
			return err
		}
	}
	return nil
}

// send sends a message on the live connection. It fails with ErrClosed
// after close and ErrNotConnected while the session is between connections.
func (s *session) send(ctx context.Context, msg *GatewayMessage) error {
	s.mu.RLock()
	state := s.state
	t := s.transport
	s.mu.RUnlock()

	select {
	case <-s.closing:
		return ErrClosed
	default:
	}
	if state == StateClosed {
		return ErrClosed
	}
	if t == nil || (state != StateConnected && state != StateAuthenticating) {
		return ErrNotConnected
	}
	return s.sendOn(ctx, t, msg)
}

func (s *session) sendOn(ctx context.Context, t Transport, msg *GatewayMessage) error {
	if s.cfg.onSend != nil {
		s.cfg.onSend(msg)
	}
	s.logger.Debug("sending gateway message", "type", msg.Type)
	return t.Send(ctx, msg)
}

// close stops the run loop and waits for it and the heartbeat to terminate.
// Idempotent; the session is unusable afterwards.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.mu.RLock()
		t := s.transport
		s.mu.RUnlock()
		if t != nil {
			t.Close()
		}
	})
	if s.started.Load() {
		<-s.done
	}
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
}

// sleep waits for the backoff delay, ending early when the session closes.
func (s *session) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
