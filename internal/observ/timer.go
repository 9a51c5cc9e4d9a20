// Package observ records phase timings of a resolution run.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Timer collects sequential phases of one run. Not safe for concurrent use.
type Timer struct {
	clock  func() time.Time
	phases []PhaseReport
	total  time.Duration
}

// NewTimer returns an empty Timer on the wall clock.
func NewTimer() *Timer { return &Timer{clock: time.Now} }

// Start opens a phase. The returned stop records it with note and returns
// the elapsed time; calling stop more than once records nothing further.
func (t *Timer) Start(name string) (stop func(note string) time.Duration) {
	began := t.clock()
	done := false
	return func(note string) time.Duration {
		if done {
			return 0
		}
		done = true
		took := t.clock().Sub(began)
		t.total += took
		t.phases = append(t.phases, PhaseReport{Name: name, DurationMS: millis(took), Note: note})
		return took
	}
}

// Report returns a copy of the phases recorded so far.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	return Report{TotalMS: millis(t.total), Phases: append([]PhaseReport(nil), t.phases...)}
}

// PhaseReport is the serializable form of one phase.
type PhaseReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Note       string  `json:"note,omitempty" msgpack:"note,omitempty"`
}

// Report is the phase table of one run, or of several after Merge.
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms"`
	Phases  []PhaseReport `json:"phases" msgpack:"phases"`
}

func (r Report) String() string {
	var sb strings.Builder
	sb.WriteString("timings:\n")
	row := func(name string, ms float64, note string) {
		fmt.Fprintf(&sb, "  %-12s %7.2f ms", name, ms)
		if note != "" {
			fmt.Fprintf(&sb, "  // %s", note)
		}
		sb.WriteByte('\n')
	}
	for _, p := range r.Phases {
		row(p.Name, p.DurationMS, p.Note)
	}
	row("total", r.TotalMS, "")
	return sb.String()
}

// Merge adds up phases of the same name across reports. Phase order is the
// order names are first seen; notes are dropped.
func Merge(reports ...Report) Report {
	var out Report
	slot := map[string]int{}
	for _, r := range reports {
		out.TotalMS += r.TotalMS
		for _, p := range r.Phases {
			i, seen := slot[p.Name]
			if !seen {
				i = len(out.Phases)
				slot[p.Name] = i
				out.Phases = append(out.Phases, PhaseReport{Name: p.Name})
			}
			out.Phases[i].DurationMS += p.DurationMS
		}
	}
	return out
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
