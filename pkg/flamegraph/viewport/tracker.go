package viewport

import (
	"sync"

	"github.com/yandex/perforator-flame/pkg/flamegraph/observe"
)

// Snapshot is the viewport state applied at the last frame.
type Snapshot struct {
	ScrollTop       float64
	ScrollLeft      float64
	ContainerWidth  float64
	ContainerHeight float64
}

// ScrollSource delivers container scroll notifications until cancelled.
type ScrollSource interface {
	ObserveScroll(fn func(top, left float64)) (cancel func())
}

// ResizeSource delivers container size notifications until cancelled.
type ResizeSource interface {
	ObserveResize(fn func(width, height float64)) (cancel func())
}

// Tracker coalesces scroll and resize notifications into at most one
// snapshot update per frame. A newer notification cancels the pending frame
// and requests a new one.
type Tracker struct {
	scheduler FrameScheduler

	mutex    sync.Mutex
	current  Snapshot
	pending  Snapshot
	token    FrameToken
	hasToken bool
	releases []func()
	closed   bool
	applied  uint64

	updates *observe.Observable[Snapshot]
}

func NewTracker(scheduler FrameScheduler, initial Snapshot) *Tracker {
	initial = sanitize(initial)
	return &Tracker{
		scheduler: scheduler,
		current:   initial,
		pending:   initial,
		updates:   observe.New[Snapshot](),
	}
}

func sanitize(s Snapshot) Snapshot {
	s.ScrollTop = max(s.ScrollTop, 0)
	s.ScrollLeft = max(s.ScrollLeft, 0)
	s.ContainerWidth = max(s.ContainerWidth, 0)
	s.ContainerHeight = max(s.ContainerHeight, 0)
	return s
}

// Observe attaches event sources. Either may be nil. Observers are released
// by Close.
func (t *Tracker) Observe(scroll ScrollSource, resize ResizeSource) {
	var releases []func()
	if scroll != nil {
		releases = append(releases, scroll.ObserveScroll(t.HandleScroll))
	}
	if resize != nil {
		releases = append(releases, resize.ObserveResize(t.HandleResize))
	}

	t.mutex.Lock()
	closed := t.closed
	if !closed {
		t.releases = append(t.releases, releases...)
	}
	t.mutex.Unlock()

	if closed {
		for _, release := range releases {
			release()
		}
	}
}

func (t *Tracker) HandleScroll(top, left float64) {
	t.update(func(s *Snapshot) {
		s.ScrollTop = top
		s.ScrollLeft = left
	})
}

func (t *Tracker) HandleResize(width, height float64) {
	t.update(func(s *Snapshot) {
		s.ContainerWidth = width
		s.ContainerHeight = height
	})
}

func (t *Tracker) update(mutate func(*Snapshot)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.closed {
		return
	}

	mutate(&t.pending)
	t.pending = sanitize(t.pending)

	if t.hasToken {
		t.scheduler.CancelFrame(t.token)
	}
	t.token = t.scheduler.RequestFrame(t.applyFrame)
	t.hasToken = true
}

func (t *Tracker) applyFrame() {
	t.mutex.Lock()
	if t.closed {
		t.mutex.Unlock()
		return
	}
	t.current = t.pending
	t.hasToken = false
	t.applied++
	snapshot := t.current
	t.mutex.Unlock()

	t.updates.Publish(snapshot)
}

// Snapshot returns the state applied at the last frame.
func (t *Tracker) Snapshot() Snapshot {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.current
}

// Frames is the number of applied frames.
func (t *Tracker) Frames() uint64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.applied
}

// Subscribe registers fn to be called after each applied frame.
func (t *Tracker) Subscribe(fn func(Snapshot)) *observe.Subscription[Snapshot] {
	return t.updates.Subscribe(fn)
}

// Close releases event sources, cancels the pending frame and drops
// subscribers.
func (t *Tracker) Close() {
	t.mutex.Lock()
	if t.closed {
		t.mutex.Unlock()
		return
	}
	t.closed = true
	releases := t.releases
	t.releases = nil
	if t.hasToken {
		t.scheduler.CancelFrame(t.token)
		t.hasToken = false
	}
	t.mutex.Unlock()

	for _, release := range releases {
		release()
	}
	t.updates.Close()
}
