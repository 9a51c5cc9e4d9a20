package mono

import (
	"fmt"

	"monogen/internal/ast"
	"monogen/internal/source"
	"monogen/internal/types"
)

// Key identifies one instantiation: an item applied to a substitution. Two
// requests with equal substitutions share a key whatever order they arrive in.
type Key struct {
	Item ast.ItemID
	Args string // types.Subst.Key of the full substitution
}

// String is the cache index of the key.
func (k Key) String() string {
	return fmt.Sprintf("%08d|%s", k.Item, k.Args)
}

// State is the lifecycle state of a cache entry.
type State uint8

const (
	// Pending marks an instantiation that is being built.
	Pending State = iota + 1
	// Done marks a finished, immutable instance.
	Done
	// Failed marks an instantiation whose diagnostic was already reported.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Entry is the cached state of one key. Entries are replaced, never mutated,
// so snapshots of the cache stay valid.
type Entry struct {
	Key      Key
	State    State
	Name     string
	Symbol   string
	Instance *Instance
	Span     source.Span // site of the first request
}

// Edge tells how the requester depends on the instantiation.
type Edge uint8

const (
	// EdgeRoot is a program entry point.
	EdgeRoot Edge = iota
	// EdgeValue embeds the type by value (a struct field): layout depends on it.
	EdgeValue
	// EdgeIndirect reaches the type behind a pointer, slice or signature.
	EdgeIndirect
	// EdgeCall calls or names a function.
	EdgeCall
)

func (e Edge) String() string {
	switch e {
	case EdgeRoot:
		return "root"
	case EdgeValue:
		return "value"
	case EdgeIndirect:
		return "indirect"
	case EdgeCall:
		return "call"
	}
	return "?"
}

// Request asks the engine for an instantiation.
type Request struct {
	Item  ast.ItemID
	Subst types.Subst
	Edge  Edge
	Span  source.Span
	// Speculative runs the attempt inside a transaction that is always rolled
	// back: no entries and no diagnostics survive it.
	Speculative bool
	// Shallow checks the signature and bounds only and never caches.
	Shallow bool
	// Checked skips bound validation already done by inference.
	Checked bool
}

// Ref points at an instantiation. Deferred refs target an entry that was
// still pending when requested; Instance is nil for them.
type Ref struct {
	Key      Key
	Name     string
	Symbol   string
	Instance *Instance
	Deferred bool
}

// reference is one dependency between instantiations. Forward references
// were taken while the target was still pending.
type reference struct {
	From    Key
	To      Key
	Span    source.Span
	Forward bool
}
