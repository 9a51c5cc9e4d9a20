package buildpipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"monogen/internal/driver"
	"monogen/internal/observ"
)

// Request configures one pipeline run over a set of program files.
type Request struct {
	Files []string
	// BaseDir makes progress file names relative; empty keeps them as given.
	BaseDir  string
	Options  driver.Options
	Jobs     int
	Cache    *driver.ResultCache
	Progress ProgressSink
}

// Result captures per-file outcomes and stage timings.
type Result struct {
	Files   []driver.FileResult
	Timings Timings
	// Report merges the phase reports of every resolved file.
	Report observ.Report
}

// HasErrors reports whether any file failed to load or produced errors.
func (r Result) HasErrors() bool {
	for _, f := range r.Files {
		if f.Err != nil || f.Summary == nil || f.Summary.HasErrors() {
			return true
		}
	}
	return false
}

// Run resolves every requested file and reports progress per file.
func Run(ctx context.Context, req *Request) (Result, error) {
	var result Result
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing pipeline request")
	}
	if len(req.Files) == 0 {
		return result, fmt.Errorf("no program files")
	}

	names := displayNames(req.Files, req.BaseDir)
	emitQueued(req.Progress, DisplayFiles(req))
	obs := &phaseObserver{sink: req.Progress, names: names, stage: make(map[string]Stage, len(names))}

	start := time.Now()
	files, err := driver.ResolveFiles(ctx, req.Files, driver.FileOptions{
		Options: req.Options,
		Jobs:    req.Jobs,
		Cache:   req.Cache,
		OnFile:  obs.onFile,
	})
	result.Files = files
	recordTimings(&result)

	status := StatusDone
	if err != nil || result.HasErrors() {
		status = StatusError
	}
	emitStage(req.Progress, nil, StageLower, status, err, time.Since(start))
	return result, err
}

// phaseObserver turns driver phase events into per-file progress events.
type phaseObserver struct {
	sink  ProgressSink
	names map[string]string

	mu    sync.Mutex
	stage map[string]Stage
}

func (p *phaseObserver) onFile(path string, ev driver.PhaseEvent) {
	if p == nil || p.sink == nil {
		return
	}
	name := p.names[path]
	if name == "" {
		name = path
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Name == "done" {
		status := StatusDone
		switch ev.Note {
		case "error":
			status = StatusError
		case "cached":
			status = StatusCached
		}
		p.sink.OnEvent(Event{File: name, Stage: p.stage[path], Status: status, Instances: ev.Count})
		return
	}
	if ev.Status != driver.PhaseStart {
		return
	}
	stage, ok := stageOf(ev.Name)
	if !ok || p.stage[path] == stage {
		return
	}
	p.stage[path] = stage
	p.sink.OnEvent(Event{File: name, Stage: stage, Status: StatusWorking})
}

func stageOf(phase string) (Stage, bool) {
	switch phase {
	case "load":
		return StageLoad, true
	case "entries", "materialize", "finish":
		return StageResolve, true
	case "lower":
		return StageLower, true
	}
	return "", false
}

func recordTimings(result *Result) {
	var reports []observ.Report
	for _, f := range result.Files {
		if f.Summary == nil || f.Summary.Timing == nil {
			continue
		}
		report := *f.Summary.Timing
		reports = append(reports, report)
		for _, phase := range report.Phases {
			if stage, ok := stageOf(phase.Name); ok {
				result.Timings.Add(stage, durationFromMillis(phase.DurationMS))
			}
		}
	}
	result.Report = observ.Merge(reports...)
}

func durationFromMillis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func emitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageLoad, Status: StatusQueued})
	}
}

func emitStage(sink ProgressSink, files []string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}
