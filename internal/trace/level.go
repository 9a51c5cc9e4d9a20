package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity. Each level admits every scope up to and
// including its finest one.
type Level uint8

const (
	LevelOff Level = iota
	LevelProgram
	LevelPhase
	LevelDetail
	LevelDebug
)

var levels = [...]struct {
	name   string
	finest Scope
}{
	LevelOff:     {"off", 0},
	LevelProgram: {"program", ScopeDriver},
	LevelPhase:   {"phase", ScopePass},
	LevelDetail:  {"detail", ScopeItem},
	LevelDebug:   {"debug", ScopeInstance},
}

func (l Level) String() string {
	if int(l) < len(levels) {
		return levels[l].name
	}
	return "unknown"
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for l, info := range levels {
		if info.name == want {
			return Level(l), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level %q (expected off|program|phase|detail|debug)", s)
}

// ShouldEmit reports whether events of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(levels) {
		return false
	}
	return scope != 0 && scope <= levels[l].finest
}
