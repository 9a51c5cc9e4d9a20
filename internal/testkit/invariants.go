// Package testkit holds invariant checks shared by package tests.
package testkit

import (
	"errors"
	"fmt"

	"monogen/internal/ast"
	"monogen/internal/ir"
	"monogen/internal/mono"
	"monogen/internal/types"
)

// CheckInstances verifies the committed instance set:
// 1) no instance type mentions a placeholder
// 2) symbols are non-empty and unique
// 3) instances are ordered by symbol
func CheckInstances(in *types.Interner, insts []*mono.Instance) error {
	var errs []error
	seen := make(map[string]string, len(insts))
	for i, inst := range insts {
		if inst == nil {
			errs = append(errs, fmt.Errorf("instance #%d is nil", i))
			continue
		}
		for _, arg := range inst.Subst.Args {
			if in.ContainsPlaceholder(arg) {
				errs = append(errs, fmt.Errorf("%s: type argument %s is not concrete", inst.Name, in.Label(arg)))
			}
		}
		check := func(what string, id types.TypeID) {
			if id != types.NoTypeID && in.ContainsPlaceholder(id) {
				errs = append(errs, fmt.Errorf("%s: %s %s is not concrete", inst.Name, what, in.Label(id)))
			}
		}
		check("type", inst.Type)
		check("result", inst.Result)
		for _, p := range inst.Params {
			check("param "+p.Name, p.Type)
		}
		for _, f := range inst.Fields {
			check("field "+f.Name, f.Type)
		}

		if inst.Symbol == "" {
			errs = append(errs, fmt.Errorf("%s: empty symbol", inst.Name))
			continue
		}
		if prev, dup := seen[inst.Symbol]; dup {
			errs = append(errs, fmt.Errorf("symbol %q shared by %s and %s", inst.Symbol, prev, inst.Name))
		}
		seen[inst.Symbol] = inst.Name
		if i > 0 && insts[i-1] != nil && insts[i-1].Symbol > inst.Symbol {
			errs = append(errs, fmt.Errorf("%s is out of symbol order", inst.Name))
		}
	}
	return errors.Join(errs...)
}

// CheckProgram validates the IR and cross-checks it against the instances:
// every function instance with a body has exactly one IR function, and every
// static or const has an IR global.
func CheckProgram(p *ir.Program, in *types.Interner, layout ir.Layout, insts []*mono.Instance) error {
	if p == nil {
		return errors.New("nil IR program")
	}
	errs := []error{ir.Validate(p, in, layout)}
	for _, inst := range insts {
		switch {
		case inst == nil:
		case inst.Kind.IsGlobal():
			if p.Global(inst.Symbol) == nil {
				errs = append(errs, fmt.Errorf("%s: no IR global for %q", inst.Name, inst.Symbol))
			}
		case inst.Kind == ast.ItemFn && inst.Body != nil:
			if p.Func(inst.Symbol) == nil {
				errs = append(errs, fmt.Errorf("%s: no IR function for %q", inst.Name, inst.Symbol))
			}
		}
	}
	return errors.Join(errs...)
}
