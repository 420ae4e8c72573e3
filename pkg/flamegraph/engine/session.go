package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/viewport"
)

// Session hosts one engine at a time and replaces it whenever a new table
// arrives. Nothing is carried from one table to the next except the options.
type Session struct {
	tracker   *viewport.Tracker
	scheduler viewport.FrameScheduler
	opts      *options
	raw       []Option

	current *Engine
	owned   *table.Table
}

func NewSession(tracker *viewport.Tracker, scheduler viewport.FrameScheduler, opts ...Option) *Session {
	o := collectOptions(opts...)
	// Engines of one session share the palette cache.
	raw := append(append([]Option{}, opts...), WithPaletteCache(o.colors))
	return &Session{
		tracker:   tracker,
		scheduler: scheduler,
		opts:      o,
		raw:       raw,
	}
}

// Load takes ownership of t, closes the previous engine and releases its
// table.
func (s *Session) Load(t *table.Table) *Engine {
	s.closeCurrent()

	s.owned = t
	s.current = New(t, s.tracker, s.scheduler, s.raw...)
	s.opts.logger.Debug(context.Background(), "Loaded profile table",
		zap.Uint64("table", uint64(t.ID())),
		zap.Int("rows", t.NumRows()),
		zap.Int("max_depth", t.MaxDepth()),
	)
	return s.current
}

// Engine returns the current engine or nil before the first Load.
func (s *Session) Engine() *Engine {
	return s.current
}

func (s *Session) closeCurrent() {
	if s.current != nil {
		s.current.Close()
		s.current = nil
	}
	if s.owned != nil {
		s.owned.Release()
		s.owned = nil
	}
}

func (s *Session) Close() {
	s.closeCurrent()
}
