package geometry

import (
	"sync"

	"github.com/yandex/perforator-flame/pkg/flamegraph/observe"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
)

// DepthLimit tracks the user frame-count limit and the effective max depth
// derived from it. Changes are applied on the next scheduler frame; until
// then Effective reports the previous value.
type DepthLimit struct {
	scheduler viewport.FrameScheduler

	mutex     sync.Mutex
	limit     int
	tableMax  int
	effective int
	token     viewport.FrameToken
	hasToken  bool
	closed    bool

	changes *observe.Observable[int]
}

// NewDepthLimit computes the initial effective depth synchronously. A
// non-positive limit means no limit.
func NewDepthLimit(scheduler viewport.FrameScheduler, limit, tableMaxDepth int) *DepthLimit {
	return &DepthLimit{
		scheduler: scheduler,
		limit:     limit,
		tableMax:  tableMaxDepth,
		effective: effectiveDepth(limit, tableMaxDepth),
		changes:   observe.New[int](),
	}
}

func effectiveDepth(limit, tableMax int) int {
	if limit <= 0 {
		return tableMax
	}
	return min(limit, tableMax)
}

func (d *DepthLimit) Limit() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.limit
}

func (d *DepthLimit) Effective() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.effective
}

// Pending reports whether a recompute is scheduled.
func (d *DepthLimit) Pending() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.hasToken
}

func (d *DepthLimit) SetLimit(limit int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.limit = limit
	d.scheduleLocked()
}

func (d *DepthLimit) SetTableMaxDepth(depth int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.tableMax = depth
	d.scheduleLocked()
}

func (d *DepthLimit) scheduleLocked() {
	if d.closed {
		return
	}
	if d.hasToken {
		d.scheduler.CancelFrame(d.token)
	}
	d.token = d.scheduler.RequestFrame(d.recompute)
	d.hasToken = true
}

func (d *DepthLimit) recompute() {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return
	}
	d.hasToken = false
	prev := d.effective
	d.effective = effectiveDepth(d.limit, d.tableMax)
	next := d.effective
	d.mutex.Unlock()

	if next != prev {
		d.changes.Publish(next)
	}
}

// Subscribe is notified with the new effective depth when it changes.
func (d *DepthLimit) Subscribe(fn func(int)) *observe.Subscription[int] {
	return d.changes.Subscribe(fn)
}

func (d *DepthLimit) Close() {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return
	}
	d.closed = true
	if d.hasToken {
		d.scheduler.CancelFrame(d.token)
		d.hasToken = false
	}
	d.mutex.Unlock()
	d.changes.Close()
}
