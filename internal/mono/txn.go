package mono

import (
	"context"

	"github.com/benbjohnson/immutable"

	"monogen/internal/session"
	"monogen/internal/trace"
)

// txn is a snapshot of everything speculative work may touch. The persistent
// maps make taking one O(1).
type txn struct {
	cache     *immutable.SortedMap
	refs      *immutable.List
	layouts   *immutable.SortedMap
	witnesses *immutable.SortedMap
	depth     int
	overlay   session.Overlay
}

func (e *Engine) begin() txn {
	return txn{
		cache:     e.cache,
		refs:      e.refs,
		layouts:   e.layouts,
		witnesses: e.conf.Snapshot(),
		depth:     len(e.stack),
		overlay:   e.sess.PushOverlay(),
	}
}

func (e *Engine) rollback(ctx context.Context, tx txn) {
	dropped := e.sess.Discard(tx.overlay)
	e.cache = tx.cache
	e.refs = tx.refs
	e.layouts = tx.layouts
	e.conf.Restore(tx.witnesses)
	e.stack = e.stack[:tx.depth]
	if len(dropped) > 0 {
		trace.Point(e.sess.Tracer, trace.ScopeInstance, "rollback", dropped[0].Message, e.parentSpan(ctx))
	}
}
