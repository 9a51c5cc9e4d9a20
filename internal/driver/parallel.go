package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"monogen/internal/program"
	"monogen/internal/source"
)

// FileOptions configures ResolveFiles.
type FileOptions struct {
	Options
	// Jobs bounds the number of files resolved at once; <= 0 means GOMAXPROCS.
	Jobs  int
	Cache *ResultCache
	// OnFile receives phase events per file: "load", the Resolve phases and
	// a final "done" whose note is ok, cached or error. It is called from
	// worker goroutines.
	OnFile func(path string, ev PhaseEvent)
}

// FileResult is the outcome of one program file.
type FileResult struct {
	Path    string
	Files   *source.FileSet
	Summary *Summary
	// Err covers I/O and YAML syntax failures and cancellation.
	Err      error
	CacheErr error
}

// ResolveFiles resolves each file independently on a bounded worker pool.
// Results keep the order of paths. A failing file does not stop the others;
// err is only set when ctx is cancelled.
func ResolveFiles(ctx context.Context, paths []string, opts FileOptions) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// индекс i уникален, мьютекс не нужен
			results[i] = resolveFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

func resolveFile(ctx context.Context, path string, opts FileOptions) (out FileResult) {
	out.Path = path
	emit := func(ev PhaseEvent) {
		if opts.OnFile != nil {
			opts.OnFile(path, ev)
		}
	}
	defer func() {
		ev := PhaseEvent{Name: "done", Status: PhaseEnd, Note: fileOutcome(out)}
		if out.Summary != nil {
			ev.Count = len(out.Summary.Instances)
		}
		emit(ev)
	}()
	local := opts.Options
	if local.Cfg != nil {
		local.Cfg = local.Cfg.Clone()
	}
	outer := local.Observer
	local.Observer = func(ev PhaseEvent) {
		emit(ev)
		if outer != nil {
			outer(ev)
		}
	}

	emit(PhaseEvent{Name: "load", Status: PhaseStart})
	files := source.NewFileSet()
	id, err := files.Load(path)
	if err != nil {
		out.Err = err
		emit(PhaseEvent{Name: "load", Status: PhaseEnd, Note: "failed"})
		return out
	}
	out.Files = files

	key := CacheKey(files.Get(id).Content, local)
	if opts.Cache != nil {
		cached, ok, cerr := opts.Cache.Get(key)
		out.CacheErr = cerr
		if ok {
			emit(PhaseEvent{Name: "load", Status: PhaseEnd, Note: "cached"})
			out.Summary = cached
			return out
		}
	}

	prog, bag, err := program.FromFile(files, id, nil)
	if err != nil {
		out.Err = err
		emit(PhaseEvent{Name: "load", Status: PhaseEnd, Note: "failed"})
		return out
	}
	emit(PhaseEvent{Name: "load", Status: PhaseEnd, Note: prog.Name})
	if bag.HasErrors() {
		out.Summary = &Summary{Schema: cacheSchemaVersion, Name: prog.Name, Diagnostics: bag.Items()}
		return out
	}

	res, err := Resolve(ctx, prog, local)
	if err != nil {
		out.Err = err
		return out
	}
	res.Diagnostics.Merge(bag)
	summary, err := Summarize(res)
	if err != nil {
		out.Err = err
		return out
	}
	out.Summary = summary
	if opts.Cache != nil {
		if perr := opts.Cache.Put(key, summary); perr != nil && out.CacheErr == nil {
			out.CacheErr = perr
		}
	}
	return out
}

func fileOutcome(r FileResult) string {
	switch {
	case r.Err != nil || r.Summary == nil || r.Summary.HasErrors():
		return "error"
	case r.Summary.Cached:
		return "cached"
	}
	return "ok"
}
