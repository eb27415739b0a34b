package store

import "sync"

// observable holds one store's state. Every change is a single replacement made
// under the lock; subscribers see the resulting snapshot after the lock is released.
type observable[S any] struct {
	mu     sync.Mutex
	state  S
	gen    uint64
	closed bool
	subs   map[int]func(S)
	nextID int
}

func (o *observable[S]) snapshot() S {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// set applies fn to the state. It is a no-op once the store is closed.
func (o *observable[S]) set(fn func(*S)) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	fn(&o.state)
	o.notifyLocked()
	return true
}

// commit applies a mutation confirmed by the server. It also starts a new
// generation, so a fetch that began before the mutation cannot overwrite it.
func (o *observable[S]) commit(fn func(*S)) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.gen++
	fn(&o.state)
	o.notifyLocked()
	return true
}

// beginFetch starts a new fetch generation. Results of older generations are
// dropped by finishFetch.
func (o *observable[S]) beginFetch(fn func(*S)) uint64 {
	o.mu.Lock()
	o.gen++
	gen := o.gen
	if o.closed {
		o.mu.Unlock()
		return gen
	}
	fn(&o.state)
	o.notifyLocked()
	return gen
}

// finishFetch applies fn only if gen is still the latest fetch.
func (o *observable[S]) finishFetch(gen uint64, fn func(*S)) bool {
	o.mu.Lock()
	if o.closed || gen != o.gen {
		o.mu.Unlock()
		return false
	}
	fn(&o.state)
	o.notifyLocked()
	return true
}

// notifyLocked releases the lock and then calls subscribers with the new snapshot.
func (o *observable[S]) notifyLocked() {
	state := o.state
	subs := make([]func(S), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// Subscribe registers fn for every state replacement and returns a function
// that removes it.
func (o *observable[S]) Subscribe(fn func(S)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = map[int]func(S){}
	}
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// close stops all further updates. Work still in flight finishes without
// touching the state.
func (o *observable[S]) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.subs = nil
}
