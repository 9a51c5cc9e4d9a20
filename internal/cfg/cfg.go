// Package cfg evaluates already-parsed conditional-compilation predicates
// against a flag environment.
package cfg

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"monogen/internal/source"
)

// Op enumerates predicate node kinds.
type Op uint8

const (
	// OpKey is a leaf: `key` or `key = "value"`.
	OpKey Op = iota
	OpAll
	OpAny
	OpNot
)

func (o Op) String() string {
	switch o {
	case OpKey:
		return "key"
	case OpAll:
		return "all"
	case OpAny:
		return "any"
	case OpNot:
		return "not"
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Predicate is a parsed cfg expression.
type Predicate struct {
	Op       Op
	Key      string
	Value    string
	HasValue bool
	Args     []*Predicate
	Span     source.Span
}

// Key builds a `key` leaf.
func Key(key string) *Predicate {
	return &Predicate{Op: OpKey, Key: key}
}

// KeyValue builds a `key = "value"` leaf.
func KeyValue(key, value string) *Predicate {
	return &Predicate{Op: OpKey, Key: key, Value: value, HasValue: true}
}

func All(args ...*Predicate) *Predicate { return &Predicate{Op: OpAll, Args: args} }
func Any(args ...*Predicate) *Predicate { return &Predicate{Op: OpAny, Args: args} }
func Not(arg *Predicate) *Predicate     { return &Predicate{Op: OpNot, Args: []*Predicate{arg}} }

func (p *Predicate) String() string {
	if p == nil {
		return "true"
	}
	switch p.Op {
	case OpKey:
		if p.HasValue {
			return fmt.Sprintf("%s = %q", p.Key, p.Value)
		}
		return p.Key
	default:
		parts := make([]string, len(p.Args))
		for i, a := range p.Args {
			parts[i] = a.String()
		}
		return p.Op.String() + "(" + strings.Join(parts, ", ") + ")"
	}
}

// InvalidError describes a malformed predicate.
type InvalidError struct {
	Span source.Span
	Msg  string
}

func (e *InvalidError) Error() string {
	return "invalid cfg predicate: " + e.Msg
}

// Env is the set of flags and key/value pairs a build is configured with.
// A key carries at most one value; a later `--cfg key=v` replaces it.
type Env struct {
	flags  map[string]struct{}
	values map[string]string
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{
		flags:  make(map[string]struct{}),
		values: make(map[string]string),
	}
}

// AddFlag makes `key` true.
func (e *Env) AddFlag(key string) {
	e.flags[key] = struct{}{}
}

// AddValue makes `key = "value"` true, replacing any earlier value of key;
// `key` alone becomes true as well.
func (e *Env) AddValue(key, value string) {
	e.values[key] = value
}

// Set parses the CLI form `key` or `key=value`.
func (e *Env) Set(spec string) {
	if key, value, ok := strings.Cut(spec, "="); ok {
		e.AddValue(strings.TrimSpace(key), strings.Trim(strings.TrimSpace(value), `"`))
		return
	}
	e.AddFlag(strings.TrimSpace(spec))
}

// Clone returns an independent copy.
func (e *Env) Clone() *Env {
	out := NewEnv()
	for k := range e.flags {
		out.flags[k] = struct{}{}
	}
	maps.Copy(out.values, e.values)
	return out
}

// Entries lists the environment as sorted `key` / `key=value` strings.
func (e *Env) Entries() []string {
	out := make([]string, 0, len(e.flags)+len(e.values))
	for k := range e.flags {
		out = append(out, k)
	}
	for k, v := range e.values {
		out = append(out, k+"="+v)
	}
	slices.Sort(out)
	return out
}

// Validate checks the shape of the whole predicate tree.
func Validate(p *Predicate) error {
	if p == nil {
		return nil
	}
	switch p.Op {
	case OpKey:
		if len(p.Args) != 0 {
			return &InvalidError{Span: p.Span, Msg: fmt.Sprintf("`%s` does not take arguments", p.Key)}
		}
		if p.Key == "" {
			return &InvalidError{Span: p.Span, Msg: "empty key"}
		}
	case OpNot:
		if len(p.Args) != 1 {
			return &InvalidError{Span: p.Span, Msg: fmt.Sprintf("not() takes exactly one argument, got %d", len(p.Args))}
		}
	case OpAll, OpAny:
	default:
		return &InvalidError{Span: p.Span, Msg: fmt.Sprintf("unknown operator %s", p.Op)}
	}
	for _, a := range p.Args {
		if err := Validate(a); err != nil {
			return err
		}
	}
	return nil
}

// Eval evaluates p. A nil predicate is true. Malformed predicates are
// rejected as a whole, even in branches short-circuiting would skip.
func (e *Env) Eval(p *Predicate) (bool, error) {
	if err := Validate(p); err != nil {
		return false, err
	}
	return e.eval(p), nil
}

func (e *Env) eval(p *Predicate) bool {
	if p == nil {
		return true
	}
	switch p.Op {
	case OpKey:
		v, set := e.values[p.Key]
		if p.HasValue {
			return set && v == p.Value
		}
		if _, ok := e.flags[p.Key]; ok {
			return true
		}
		return set
	case OpAll:
		for _, a := range p.Args {
			if !e.eval(a) {
				return false
			}
		}
		return true
	case OpAny:
		for _, a := range p.Args {
			if e.eval(a) {
				return true
			}
		}
		return false
	case OpNot:
		return !e.eval(p.Args[0])
	}
	return false
}
