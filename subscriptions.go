package scatter

import "sync"

// subscriptionTracker records which channels and spaces the client wants
// events for. It is pure state: pairing a track call with the outbound
// subscribe message is the Client's job, and the session replays the
// tracked sets after every reconnect so subscriptions survive transparently.
//
// Insertion order is preserved so replay emits subscribes in the order the
// caller declared them.
type subscriptionTracker struct {
	mu       sync.Mutex
	channels []string
	chanSet  map[string]struct{}
	spaces   []string
	spaceSet map[string]struct{}
}

func newSubscriptionTracker() *subscriptionTracker {
	return &subscriptionTracker{
		chanSet:  make(map[string]struct{}),
		spaceSet: make(map[string]struct{}),
	}
}

// trackChannel records interest in a channel. Idempotent.
func (t *subscriptionTracker) trackChannel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.chanSet[id]; ok {
		return
	}
	t.chanSet[id] = struct{}{}
	t.channels = append(t.channels, id)
}

// untrackChannel removes interest in a channel. A no-op for untracked IDs.
func (t *subscriptionTracker) untrackChannel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.chanSet[id]; !ok {
		return
	}
	delete(t.chanSet, id)
	t.channels = remove(t.channels, id)
}

// trackSpace records interest in a space. Idempotent.
func (t *subscriptionTracker) trackSpace(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.spaceSet[id]; ok {
		return
	}
	t.spaceSet[id] = struct{}{}
	t.spaces = append(t.spaces, id)
}

// untrackSpace removes interest in a space. A no-op for untracked IDs.
func (t *subscriptionTracker) untrackSpace(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.spaceSet[id]; !ok {
		return
	}
	delete(t.spaceSet, id)
	t.spaces = remove(t.spaces, id)
}

// snapshot returns copies of the tracked channel and space IDs, in the
// order they were tracked.
func (t *subscriptionTracker) snapshot() (channels, spaces []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	channels = append([]string(nil), t.channels...)
	spaces = append([]string(nil), t.spaces...)
	return channels, spaces
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
