package optimizer

import "github.com/calyxlang/calyx-compiler/pkg/ir"

// rewriteFreeRefs applies f to every free reference to name in e. A
// reference already wrapped in an arity tag is handed to f as the whole
// tag node so f can decide whether to rewrap or leave it. Binders that
// reuse the name shadow it and stop the walk; the front end's unique
// naming makes shadowing a precondition violation that degrades to a
// missed rewrite, never to accidental capture.
func rewriteFreeRefs(name string, f func(ir.Expr) ir.Expr, e ir.Expr) ir.Expr {
	recurse := func(c ir.Expr) ir.Expr { return rewriteFreeRefs(name, f, c) }
	switch x := e.(type) {
	case *ir.IdentExpr:
		if x.Ident.Name == name {
			return f(e)
		}
		return e
	case *ir.Curried:
		if id, ok := x.Expr.(*ir.IdentExpr); ok && id.Ident.Name == name {
			return f(e)
		}
		return ir.MapChildren(e, recurse)
	case *ir.Lambda:
		if x.Arg.Name == name {
			return e
		}
		return ir.MapChildren(e, recurse)
	case *ir.Delegate:
		for _, a := range x.Args {
			if a.Name == name {
				return e
			}
		}
		return ir.MapChildren(e, recurse)
	case *ir.Let:
		cp := *x
		cp.Value = recurse(x.Value)
		if x.Ident.Name != name {
			cp.Body = recurse(x.Body)
		}
		return &cp
	case *ir.LetRec:
		// Recursive bindings scope over both values and body.
		for _, b := range x.Bindings {
			if b.Ident.Name == name {
				return e
			}
		}
		return ir.MapChildren(e, recurse)
	case *ir.ForLoop:
		cp := *x
		cp.Start = recurse(x.Start)
		cp.Limit = recurse(x.Limit)
		if x.Ident.Name != name {
			cp.Body = recurse(x.Body)
		}
		return &cp
	case *ir.TryCatch:
		cp := *x
		cp.Body = recurse(x.Body)
		if x.Catch != nil {
			c := *x.Catch
			if c.Param.Name != name {
				c.Body = recurse(c.Body)
			}
			cp.Catch = &c
		}
		if x.Finalizer != nil {
			cp.Finalizer = recurse(x.Finalizer)
		}
		return &cp
	case *ir.DecisionTree:
		cp := *x
		cp.Expr = recurse(x.Expr)
		cp.Targets = make([]ir.Target, len(x.Targets))
		for i, t := range x.Targets {
			if !boundInTarget(name, t) {
				t.Body = recurse(t.Body)
			}
			cp.Targets[i] = t
		}
		return &cp
	default:
		return ir.MapChildren(e, recurse)
	}
}

func boundInTarget(name string, t ir.Target) bool {
	for _, b := range t.Bound {
		if b.Name == name {
			return true
		}
	}
	return false
}

// substitute replaces every free occurrence of name in e with repl.
// A tagged occurrence keeps its arity tag around the replacement.
func substitute(name string, repl ir.Expr, e ir.Expr) ir.Expr {
	return rewriteFreeRefs(name, func(ref ir.Expr) ir.Expr {
		if tag, ok := ref.(*ir.Curried); ok {
			cp := *tag
			cp.Expr = repl
			return &cp
		}
		return repl
	}, e)
}

// retagIdent wraps free references to name in an arity tag, leaving
// already-tagged references alone so repeated runs are stable.
func retagIdent(name string, arity int, e ir.Expr) ir.Expr {
	return rewriteFreeRefs(name, func(ref ir.Expr) ir.Expr {
		if _, ok := ref.(*ir.Curried); ok {
			return ref
		}
		return &ir.Curried{Expr: ref, Arity: arity}
	}, e)
}
