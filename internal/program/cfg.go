package program

import (
	"strings"

	"gopkg.in/yaml.v3"

	"monogen/internal/cfg"
)

// predicate decodes `key`, `key=value`, or {all|any|not: [...]}.
func (l *loader) predicate(n *yaml.Node) *cfg.Predicate {
	var p *cfg.Predicate
	switch n.Kind {
	case yaml.ScalarNode:
		key, value, hasValue := strings.Cut(n.Value, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			l.errorf(n, "cfg key must not be empty")
			return nil
		}
		if hasValue {
			p = cfg.KeyValue(key, strings.Trim(strings.TrimSpace(value), `"`))
		} else {
			p = cfg.Key(key)
		}
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			l.errorf(n, "cfg combinator must have exactly one key")
			return nil
		}
		op, arg := n.Content[0].Value, n.Content[1]
		var args []*cfg.Predicate
		if arg.Kind == yaml.SequenceNode {
			for _, a := range arg.Content {
				if sub := l.predicate(a); sub != nil {
					args = append(args, sub)
				}
			}
		} else if sub := l.predicate(arg); sub != nil {
			args = append(args, sub)
		}
		switch op {
		case "all":
			p = cfg.All(args...)
		case "any":
			p = cfg.Any(args...)
		case "not":
			if len(args) != 1 {
				l.errorf(n, "cfg `not` takes exactly one predicate")
				return nil
			}
			p = cfg.Not(args[0])
		default:
			l.errorf(n.Content[0], "unknown cfg combinator `%s`", op)
			return nil
		}
	default:
		l.errorf(n, "cfg must be a string or a mapping")
		return nil
	}
	p.Span = l.span(n)
	return p
}
