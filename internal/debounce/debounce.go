// Package debounce delays a rapidly changing value until it has been stable
// for a quiet period.
//
// Value is meant to be owned by a single Bubble Tea model. Every Set bumps a
// version and schedules a tick; only the tick carrying the latest version
// resolves, and it resolves once. Older ticks are dropped, so values are
// never emitted out of order.
//
//	type Model struct{ query debounce.Value[string] }
//
//	case tea.KeyMsg:
//	    return m, m.query.Set(m.input.Value())
//	case debounce.SettledMsg:
//	    if q, ok := m.query.Resolve(msg); ok {
//	        return m, search(q)
//	    }
package debounce

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SettledMsg is delivered when a quiet period scheduled by Value.Set elapses.
type SettledMsg struct {
	ID      string
	Version uint64
}

// Value debounces a value of type T inside an event loop.
// The zero Value is not usable; construct with New.
type Value[T any] struct {
	id      string
	delay   time.Duration
	version uint64
	pending bool
	latest  T
	current T
}

// New creates a debouncer. id distinguishes SettledMsgs when a model owns
// several debouncers.
func New[T any](id string, delay time.Duration) Value[T] {
	return Value[T]{id: id, delay: delay}
}

// Set records v and restarts the quiet period.
func (d *Value[T]) Set(v T) tea.Cmd {
	d.version++
	d.latest = v
	d.pending = true
	id, version := d.id, d.version
	return tea.Tick(d.delay, func(time.Time) tea.Msg {
		return SettledMsg{ID: id, Version: version}
	})
}

// Resolve returns the settled value when msg belongs to this debouncer and
// carries the latest version. A given version resolves at most once.
func (d *Value[T]) Resolve(msg SettledMsg) (T, bool) {
	var zero T
	if msg.ID != d.id || msg.Version != d.version || !d.pending {
		return zero, false
	}
	d.pending = false
	d.current = d.latest
	return d.current, true
}

// Owns reports whether msg was scheduled by this debouncer.
func (d *Value[T]) Owns(msg SettledMsg) bool {
	return msg.ID == d.id
}

// Cancel invalidates any pending tick.
func (d *Value[T]) Cancel() {
	d.version++
	d.pending = false
}

// Pending reports whether a Set is waiting for its quiet period.
func (d *Value[T]) Pending() bool { return d.pending }

// Current returns the last resolved value.
func (d *Value[T]) Current() T { return d.current }

// Func runs a callback after calls to Call stop arriving for the quiet
// period. It is safe for concurrent use and does not need an event loop.
type Func[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	version uint64
	stopped bool
}

// NewFunc creates a goroutine-safe debouncer that invokes fn with the last
// value passed to Call.
func NewFunc[T any](delay time.Duration, fn func(T)) *Func[T] {
	return &Func[T]{delay: delay, fn: fn}
}

// Call restarts the quiet period with v as the pending value.
func (f *Func[T]) Call(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.version++
	version := f.version
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.delay, func() {
		f.mu.Lock()
		if f.stopped || version != f.version {
			f.mu.Unlock()
			return
		}
		f.mu.Unlock()
		f.fn(v)
	})
}

// Stop discards any pending call. Calls after Stop are ignored.
func (f *Func[T]) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.version++
	if f.timer != nil {
		f.timer.Stop()
	}
}
