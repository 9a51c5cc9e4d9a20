package trace

import (
	"io"
	"slices"
	"sync"
)

const defaultRingSize = 4096

// RingTracer keeps the most recent events in memory so they can be dumped
// after a run fails.
type RingTracer struct {
	level Level

	mu      sync.Mutex
	buf     []Event
	written uint64 // total events stored; buf[written%len(buf)] is the oldest once full
}

// NewRingTracer returns a RingTracer holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{level: level, buf: make([]Event, capacity)}
}

func (t *RingTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) {
		return
	}
	stored := *ev
	stored.Seq = NextSeq()
	t.mu.Lock()
	t.buf[t.written%uint64(len(t.buf))] = stored
	t.written++
	t.mu.Unlock()
}

// Snapshot returns the stored events oldest first. With programs given,
// only events labeled with one of them are returned.
func (t *RingTracer) Snapshot(programs ...string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	size := uint64(len(t.buf))
	start := uint64(0)
	if t.written > size {
		start = t.written - size
	}
	out := make([]Event, 0, t.written-start)
	for i := start; i < t.written; i++ {
		ev := t.buf[i%size]
		if len(programs) > 0 && !slices.Contains(programs, ev.Program) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Dropped reports how many events were overwritten.
func (t *RingTracer) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if size := uint64(len(t.buf)); t.written > size {
		return t.written - size
	}
	return 0
}

// Dump writes the snapshot for programs to w.
func (t *RingTracer) Dump(w io.Writer, format Format, programs ...string) error {
	for _, ev := range t.Snapshot(programs...) {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
