package buildpipeline

import "time"

// Stage is a coarse pipeline step shown in progress output.
type Stage string

const (
	StageLoad    Stage = "load"
	StageResolve Stage = "resolve"
	StageLower   Stage = "lower"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageLoad, StageResolve, StageLower}

// Status is the state of a file within its current stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusCached  Status = "cached"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one file, or for the whole run when File is
// empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration

	// Instances is set on the final per-file event.
	Instances int
}

// ProgressSink consumes progress events. Run calls it from worker goroutines
// one event at a time.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings sums phase durations per stage across all files.
type Timings map[Stage]time.Duration

// Add accumulates dur for stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if *t == nil {
		*t = make(Timings, len(Stages))
	}
	(*t)[stage] += dur
}

// Has reports whether stage was recorded.
func (t Timings) Has(stage Stage) bool {
	_, ok := t[stage]
	return ok
}

// Duration returns the time recorded for stage.
func (t Timings) Duration(stage Stage) time.Duration { return t[stage] }

// Total sums every recorded stage.
func (t Timings) Total() time.Duration {
	var sum time.Duration
	for _, d := range t {
		sum += d
	}
	return sum
}
