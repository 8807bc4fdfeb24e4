package booking

import (
	"context"
	"sync"
)

// Locker grants exclusive scopes keyed by an arbitrary string. Lock blocks
// until the scope for key is free or ctx is done; the returned function
// releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// KeyedMutex is an in-process Locker. Distinct keys never contend; entries
// are dropped once no goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	token chan struct{} // holds one value while the scope is taken
	refs  int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

// Lock acquires the scope for key. If ctx ends first, nothing is held.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	s := k.acquireRef(key)

	select {
	case s.token <- struct{}{}:
	case <-ctx.Done():
		k.releaseRef(key, s)
		return nil, ctx.Err()
	}
	// select picks at random when both cases are ready.
	if err := ctx.Err(); err != nil {
		<-s.token
		k.releaseRef(key, s)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.token
			k.releaseRef(key, s)
		})
	}, nil
}

func (k *KeyedMutex) acquireRef(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{token: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *KeyedMutex) releaseRef(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

// size reports how many keys are currently tracked.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.slots)
}
