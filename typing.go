package scatter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// TypingIndicator keeps the typing signal for one channel alive until
// stopped. Obtain one from Client.Typing; every indicator must be stopped,
// or it runs until the client closes. Indicators for different channels are
// independent, and two indicators for the same channel are simply two
// redundant senders.
type TypingIndicator struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Stop cancels the keepalive loop and waits for it to fully stop. No typing
// signal is sent after Stop returns. Safe to call more than once.
func (ti *TypingIndicator) Stop() {
	ti.stopOnce.Do(ti.cancel)
	<-ti.done
}

// typingSupervisor owns the background keepalive tasks so client shutdown
// can cancel them all, and wait for them, before the gateway goes away.
type typingSupervisor struct {
	interval time.Duration
	send     func(ctx context.Context, channelID string) error
	logger   *slog.Logger

	mu     sync.Mutex
	tasks  map[*TypingIndicator]struct{}
	closed bool
}

func newTypingSupervisor(interval time.Duration, send func(context.Context, string) error, logger *slog.Logger) *typingSupervisor {
	return &typingSupervisor{
		interval: interval,
		send:     send,
		logger:   logger,
		tasks:    make(map[*TypingIndicator]struct{}),
	}
}

// start sends one immediate typing signal, then spawns the keepalive loop.
// The loop stops when the indicator is stopped, the given context is
// cancelled, or the supervisor closes.
func (ts *typingSupervisor) start(ctx context.Context, channelID string) (*TypingIndicator, error) {
	ts.mu.Lock()
	closed := ts.closed
	ts.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if err := ts.send(ctx, channelID); err != nil {
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ti := &TypingIndicator{cancel: cancel, done: make(chan struct{})}

	ts.mu.Lock()
	if ts.closed {
		ts.mu.Unlock()
		cancel()
		close(ti.done)
		return nil, ErrClosed
	}
	ts.tasks[ti] = struct{}{}
	ts.mu.Unlock()

	go ts.loop(loopCtx, channelID, ti)
	return ti, nil
}

// loop re-sends the typing signal on a fixed interval, checking for
// cancellation at every wait boundary.
func (ts *typingSupervisor) loop(ctx context.Context, channelID string, ti *TypingIndicator) {
	defer func() {
		ts.mu.Lock()
		delete(ts.tasks, ti)
		ts.mu.Unlock()
		close(ti.done)
	}()

	ticker := time.NewTicker(ts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := ts.send(ctx, channelID); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrClosed) {
				return
			}
			// The gateway may be mid-reconnect; keep ticking so the
			// indicator resumes once the session is back.
			ts.logger.Debug("typing keepalive send failed",
				"channel_id", channelID, "error", err)
		}
	}
}

// close cancels every live task and waits for all loops to stop.
func (ts *typingSupervisor) close() {
	ts.mu.Lock()
	ts.closed = true
	tasks := make([]*TypingIndicator, 0, len(ts.tasks))
	for ti := range ts.tasks {
		tasks = append(tasks, ti)
	}
	ts.mu.Unlock()

	for _, ti := range tasks {
		ti.Stop()
	}
}
