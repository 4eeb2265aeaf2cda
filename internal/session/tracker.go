package session

import (
	"context"
	"sync"

	"kknotes/internal/models"
)

// IdentitySource emits identity changes: a non-nil identity on sign-in and nil on sign-out.
type IdentitySource interface {
	OnAuthChange(fn func(identity *models.Identity)) (unsubscribe func())
}

// Tracker holds the current Session of a client. Each identity event replaces the session
// whole. An event whose resolution finishes after a newer event has started is dropped.
type Tracker struct {
	resolver *Resolver

	mu          sync.Mutex
	current     models.Session
	generation  uint64
	subscribers map[int]chan models.Session
	nextID      int
}

func NewTracker(resolver *Resolver) *Tracker {
	return &Tracker{
		resolver:    resolver,
		subscribers: make(map[int]chan models.Session),
	}
}

// Current returns the latest resolved session.
func (t *Tracker) Current() models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// HandleIdentity resolves identity and publishes the result unless a newer event arrived in the
// meantime. It reports whether the session was published.
func (t *Tracker) HandleIdentity(ctx context.Context, identity *models.Identity) (models.Session, bool) {
	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	s := t.resolver.Resolve(ctx, identity)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation {
		return s, false
	}
	t.current = s
	for _, ch := range t.subscribers {
		// Keep only the latest session in each buffer.
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
	return s, true
}

// Follow feeds every event from src into the tracker until ctx is done.
func (t *Tracker) Follow(ctx context.Context, src IdentitySource) {
	unsubscribe := src.OnAuthChange(func(identity *models.Identity) {
		go t.HandleIdentity(ctx, identity)
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
}

// Subscribe returns a channel that receives the current session and then every published one.
// Slow readers only see the latest session. The channel is closed when ctx is done.
func (t *Tracker) Subscribe(ctx context.Context) <-chan models.Session {
	ch := make(chan models.Session, 1)

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.subscribers[id] = ch
	ch <- t.current
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		delete(t.subscribers, id)
		close(ch)
		t.mu.Unlock()
	}()
	return ch
}
