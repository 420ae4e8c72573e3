package viewport

import (
	"slices"
	"sync"
	"time"
)

// FrameToken identifies a requested frame callback.
type FrameToken uint64

// FrameScheduler runs callbacks at display frame granularity.
type FrameScheduler interface {
	RequestFrame(fn func()) FrameToken
	CancelFrame(token FrameToken)
}

////////////////////////////////////////////////////////////////////////////////

// ManualScheduler runs requested frames on Flush. Frames requested while
// flushing run on the next Flush.
type ManualScheduler struct {
	mutex   sync.Mutex
	lastID  FrameToken
	pending map[FrameToken]func()
	order   []FrameToken
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		pending: make(map[FrameToken]func()),
	}
}

func (s *ManualScheduler) RequestFrame(fn func()) FrameToken {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastID++
	s.pending[s.lastID] = fn
	s.order = append(s.order, s.lastID)
	return s.lastID
}

func (s *ManualScheduler) CancelFrame(token FrameToken) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.pending[token]; !ok {
		return
	}
	delete(s.pending, token)
	// Tokens are appended in increasing order.
	if i, found := slices.BinarySearch(s.order, token); found {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Flush runs every pending frame and returns how many ran.
func (s *ManualScheduler) Flush() int {
	s.mutex.Lock()
	order := s.order
	s.order = nil
	callbacks := make([]func(), 0, len(order))
	for _, token := range order {
		if fn, ok := s.pending[token]; ok {
			callbacks = append(callbacks, fn)
			delete(s.pending, token)
		}
	}
	s.mutex.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	return len(callbacks)
}

func (s *ManualScheduler) Pending() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.pending)
}

////////////////////////////////////////////////////////////////////////////////

const DefaultFrameInterval = time.Second / 60

// TimerScheduler fires frames on fixed interval boundaries, so cancelling and
// re-requesting inside one interval does not postpone the frame.
type TimerScheduler struct {
	interval time.Duration
	epoch    time.Time

	mutex  sync.Mutex
	lastID FrameToken
	timers map[FrameToken]*time.Timer
}

func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &TimerScheduler{
		interval: interval,
		epoch:    time.Now(),
		timers:   make(map[FrameToken]*time.Timer),
	}
}

func (s *TimerScheduler) untilNextFrame() time.Duration {
	elapsed := time.Since(s.epoch)
	return s.interval - elapsed%s.interval
}

func (s *TimerScheduler) RequestFrame(fn func()) FrameToken {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastID++
	token := s.lastID
	s.timers[token] = time.AfterFunc(s.untilNextFrame(), func() {
		s.mutex.Lock()
		_, live := s.timers[token]
		delete(s.timers, token)
		s.mutex.Unlock()
		if live {
			fn()
		}
	})
	return token
}

func (s *TimerScheduler) CancelFrame(token FrameToken) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if timer, ok := s.timers[token]; ok {
		timer.Stop()
		delete(s.timers, token)
	}
}

// Stop cancels every pending frame.
func (s *TimerScheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for token, timer := range s.timers {
		timer.Stop()
		delete(s.timers, token)
	}
}
