package observe

import "sync"

// Observable delivers values to registered callbacks synchronously, in
// subscription order. Safe for concurrent use; callbacks run without the lock
// held so they may subscribe or unsubscribe.
type Observable[T any] struct {
	mutex sync.Mutex

	callbacks map[uint64]func(T)
	order     []uint64
	lastID    uint64
	closed    bool
}

func New[T any]() *Observable[T] {
	return &Observable[T]{
		callbacks: make(map[uint64]func(T)),
	}
}

func (o *Observable[T]) Publish(val T) {
	o.mutex.Lock()
	callbacks := make([]func(T), 0, len(o.order))
	for _, id := range o.order {
		callbacks = append(callbacks, o.callbacks[id])
	}
	o.mutex.Unlock()

	for _, cb := range callbacks {
		cb(val)
	}
}

func (o *Observable[T]) Len() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return len(o.order)
}

// must be called under o.mutex
func (o *Observable[T]) removeImpl(id uint64) {
	if _, ok := o.callbacks[id]; !ok {
		return
	}
	delete(o.callbacks, id)
	for i, other := range o.order {
		if other == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

func (o *Observable[T]) remove(id uint64) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.removeImpl(id)
}

// Close drops every subscriber. Later subscriptions are ignored.
func (o *Observable[T]) Close() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.callbacks = make(map[uint64]func(T))
	o.order = nil
	o.closed = true
}

type Subscription[T any] struct {
	id    uint64
	owner *Observable[T]
	once  sync.Once
}

// Close unsubscribes. Calling it more than once is harmless.
func (s *Subscription[T]) Close() {
	if s == nil || s.owner == nil {
		return
	}
	s.once.Do(func() {
		s.owner.remove(s.id)
	})
}

func (o *Observable[T]) Subscribe(cb func(T)) *Subscription[T] {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.closed {
		return &Subscription[T]{}
	}

	id := o.lastID
	o.lastID++
	o.callbacks[id] = cb
	o.order = append(o.order, id)

	return &Subscription[T]{
		id:    id,
		owner: o,
	}
}
