package auth

import (
	"slices"
	"sync"
)

// Broadcaster fans auth state changes out to subscribers. The zero value is ready to use.
type Broadcaster struct {
	mu      sync.RWMutex
	current State
	nextID  int
	subs    map[int]func(State)
}

// NewBroadcaster returns a Broadcaster seeded with initial.
func NewBroadcaster(initial State) *Broadcaster {
	return &Broadcaster{current: initial}
}

// Subscribe registers fn and returns a function that removes it. fn is invoked
// synchronously on every Publish.
func (b *Broadcaster) Subscribe(fn func(State)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(State))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish replaces the current state and notifies subscribers in registration order.
func (b *Broadcaster) Publish(state State) {
	b.mu.Lock()
	b.current = state
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	fns := make([]func(State), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Current returns the last published state.
func (b *Broadcaster) Current() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Token implements backend.TokenSource.
func (b *Broadcaster) Token() string {
	return b.Current().Token
}
