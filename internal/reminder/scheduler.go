package reminder

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/eventplanner/internal/clock"
)

const defaultTickInterval = time.Second

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for firing and driver diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers a lifecycle observer, typically metrics.
func WithObserver(observer Observer) Option {
	return func(s *Scheduler) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithTickInterval sets how often the cron driver calls Tick. Intervals below
// one second are rounded up by cron.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// Scheduler holds pending one-shot timers and fires them when due.
type Scheduler struct {
	clock    clock.Clock
	logger   *slog.Logger
	observer Observer
	tick     time.Duration

	mu     sync.Mutex
	queue  timerQueue
	timers map[uint64]*entry
	nextID uint64

	inflight sync.WaitGroup

	driverMu sync.Mutex
	driver   *cron.Cron
}

// New constructs a scheduler reading time from clk.
func New(clk clock.Clock, opts ...Option) *Scheduler {
	if clk == nil {
		clk = clock.System{}
	}
	s := &Scheduler{
		clock:    clk,
		logger:   slog.Default(),
		observer: nopObserver{},
		tick:     defaultTickInterval,
		timers:   make(map[uint64]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms fn to run once, no earlier than fireAt. fireAt must be
// strictly after the current clock reading.
func (s *Scheduler) Schedule(fireAt time.Time, fn Callback) (Handle, error) {
	if s == nil {
		return Handle{}, fmt.Errorf("reminder: Scheduler is nil")
	}
	if fn == nil {
		return Handle{}, s.reject(ErrNilCallback)
	}
	if fireAt.IsZero() {
		return Handle{}, s.reject(ErrInvalidInstant)
	}
	now := s.clock.Now()
	if !fireAt.After(now) {
		return Handle{}, s.reject(fmt.Errorf("%w: %s is not after %s", ErrPastInstant, fireAt.Format(time.RFC3339), now.Format(time.RFC3339)))
	}

	s.mu.Lock()
	s.nextID++
	e := &entry{id: s.nextID, fireAt: fireAt, fn: fn, state: StatePending}
	heap.Push(&s.queue, e)
	s.timers[e.id] = e
	s.mu.Unlock()

	s.observer.TimerArmed(fireAt)
	s.logger.Debug("reminder timer armed", "timer_id", e.id, "fire_at", fireAt)

	return Handle{id: e.id, fireAt: fireAt}, nil
}

// Cancel moves a pending timer to the cancelled state. It reports whether the
// timer was pending; cancelling a fired, cancelled or unknown timer is a no-op.
func (s *Scheduler) Cancel(h Handle) bool {
	if s == nil || h.IsZero() {
		return false
	}

	s.mu.Lock()
	e, ok := s.timers[h.id]
	if !ok || e.state != StatePending {
		s.mu.Unlock()
		return false
	}
	heap.Remove(&s.queue, e.index)
	e.state = StateCancelled
	e.fn = nil
	s.mu.Unlock()

	s.observer.TimerCancelled()
	s.logger.Debug("reminder timer cancelled", "timer_id", h.id)
	return true
}

// State reports the lifecycle state of the timer behind h.
func (s *Scheduler) State(h Handle) State {
	if s == nil || h.IsZero() {
		return StateUnknown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[h.id]
	if !ok {
		return StateUnknown
	}
	return e.state
}

// Pending returns the pending timers ordered by fire instant.
func (s *Scheduler) Pending() []Timer {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	out := make([]Timer, 0, len(s.queue))
	for _, e := range s.queue {
		out = append(out, Timer{ID: e.id, FireAt: e.fireAt, State: e.state})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

type firing struct {
	id     uint64
	fireAt time.Time
	fn     Callback
}

// Tick fires every pending timer whose instant is at or before the clock
// reading. Callbacks run on their own goroutines in fire-instant order of
// dispatch. It returns the number of timers fired.
func (s *Scheduler) Tick(ctx context.Context) int {
	if s == nil {
		return 0
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := s.clock.Now()

	s.mu.Lock()
	var due []firing
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if next.fireAt.After(now) {
			break
		}
		heap.Pop(&s.queue)
		next.state = StateFired
		due = append(due, firing{id: next.id, fireAt: next.fireAt, fn: next.fn})
		next.fn = nil
	}
	s.mu.Unlock()

	for _, f := range due {
		s.observer.TimerFired(f.fireAt, now.Sub(f.fireAt))
		s.dispatch(ctx, f)
	}
	return len(due)
}

func (s *Scheduler) dispatch(ctx context.Context, f firing) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.ErrorContext(ctx, "reminder callback panicked", "timer_id", f.id, "panic", r)
			}
		}()
		s.logger.DebugContext(ctx, "reminder timer fired", "timer_id", f.id, "fire_at", f.fireAt)
		f.fn(ctx)
	}()
}

// Wait blocks until every callback dispatched so far has returned.
func (s *Scheduler) Wait() {
	if s == nil {
		return
	}
	s.inflight.Wait()
}

func (s *Scheduler) reject(err error) error {
	s.observer.TimerRejected(err)
	s.logger.Warn("reminder timer rejected", "error", err)
	return err
}
