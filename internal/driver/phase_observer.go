package driver

import (
	"time"

	"monogen/internal/observ"
)

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a resolution phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a timing phase boundary.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
	Note    string

	// Count is the number of instances on the final "done" event.
	Count int
}

// PhaseObserver receives phase events emitted during Resolve.
type PhaseObserver func(PhaseEvent)

type phaseRunner struct {
	timer    *observ.Timer
	observer PhaseObserver
}

func newPhaseRunner(timer *observ.Timer, observer PhaseObserver) phaseRunner {
	return phaseRunner{timer: timer, observer: observer}
}

// run times fn as one phase; fn returns the note recorded for it.
func (p phaseRunner) run(name string, fn func() string) {
	p.notify(PhaseEvent{Name: name, Status: PhaseStart})
	stop := p.timer.Start(name)
	note := ""
	defer func() {
		took := stop(note)
		p.notify(PhaseEvent{Name: name, Status: PhaseEnd, Elapsed: took, Note: note})
	}()
	note = fn()
}

func (p phaseRunner) notify(ev PhaseEvent) {
	if p.observer != nil {
		p.observer(ev)
	}
}
