package hours

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const DefaultInterval = 60 * time.Second

// Watcher re-evaluates a Gate on a fixed interval and publishes each status.
type Watcher struct {
	gate     Gate
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu      sync.Mutex
	last    Status
	subs    map[int]func(Status)
	nextSub int
}

func NewWatcher(gate Gate, interval time.Duration, now func() time.Time, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Watcher{
		gate:     gate,
		interval: interval,
		now:      now,
		logger:   logger.With().Str("component", "hours").Logger(),
		subs:     make(map[int]func(Status)),
	}
}

func (w *Watcher) Subscribe(fn func(Status)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.mu.Unlock()
	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Status returns the last published status.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Run publishes immediately, then once per interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick()
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug().Msg("hours.watcher_stopped")
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Watcher) tick() {
	st := w.gate.Evaluate(w.now())

	w.mu.Lock()
	changed := st.Open != w.last.Open
	w.last = st
	subs := make([]func(Status), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	if changed {
		w.logger.Info().Bool("open", st.Open).Msg("hours.changed")
	}
	for _, fn := range subs {
		fn(st)
	}
}
