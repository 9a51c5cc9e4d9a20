package trace

import "time"

// Kind tells a span boundary from an instant event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

var kindNames = [...]string{KindSpanBegin: "begin", KindSpanEnd: "end", KindPoint: "point"}

// marks used by the text format
var kindMarks = [...]string{KindSpanBegin: "→", KindSpanEnd: "←", KindPoint: "•"}

func (k Kind) String() string { return lookupName(kindNames[:], int(k)) }

// Scope is the granularity of an event; a smaller scope is coarser.
type Scope uint8

const (
	ScopeDriver   Scope = iota + 1 // one resolution run
	ScopePass                      // entries, materialize, finish, lower
	ScopeItem                      // a root or generic item
	ScopeInstance                  // a materialized instance or cache hit
)

var scopeNames = [...]string{
	ScopeDriver:   "driver",
	ScopePass:     "pass",
	ScopeItem:     "item",
	ScopeInstance: "instance",
}

func (s Scope) String() string { return lookupName(scopeNames[:], int(s)) }

func lookupName(names []string, i int) string {
	if i <= 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

// Event is one trace record. Seq is assigned by the tracer that stores it.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Program  string // stamped by Labeled
	Name     string
	Detail   string
	Extra    map[string]string
}
