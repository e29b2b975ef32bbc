package service

import "sync"

// observers fans a manager's snapshots out to its subscribers.
// Callbacks run synchronously on the goroutine that changed the state and
// must not call back into the manager's mutating methods.
type observers[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

// subscribe registers fn and returns a function that unregisters it.
func (o *observers[T]) subscribe(fn func(T)) (cancel func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = map[int]func(T){}
	}
	id := o.next
	o.next++
	o.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers[T]) publish(v T) {
	o.mu.Lock()
	fns := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
