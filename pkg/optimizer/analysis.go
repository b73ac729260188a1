// Safety analyses backing the inlining decisions. Everything here is
// conservative: when static information runs out, the answer is the one
// that forfeits the optimization, never the one that risks semantics.
package optimizer

import "github.com/calyxlang/calyx-compiler/pkg/ir"

// isIdentUsed reports whether name is referenced anywhere in e.
func isIdentUsed(name string, e ir.Expr) bool {
	return ir.DeepExists(func(x ir.Expr) bool {
		id, ok := x.(*ir.IdentExpr)
		return ok && id.Ident.Name == name
	}, e)
}

// isIdentCaptured reports whether a reference to name occurs under a
// function-literal or object-member body, i.e. whether substituting a
// value for name would move its evaluation across a closure boundary.
func isIdentCaptured(name string, e ir.Expr) bool {
	return identCaptured(name, e, false)
}

func identCaptured(name string, e ir.Expr, inClosure bool) bool {
	switch x := e.(type) {
	case *ir.IdentExpr:
		return inClosure && x.Ident.Name == name
	case *ir.Lambda:
		return identCaptured(name, x.Body, true)
	case *ir.Delegate:
		return identCaptured(name, x.Body, true)
	case *ir.ObjectExpr:
		if x.BaseCall != nil && identCaptured(name, x.BaseCall, inClosure) {
			return true
		}
		for _, m := range x.Members {
			if identCaptured(name, m.Body, true) {
				return true
			}
		}
		return false
	default:
		for _, c := range ir.SubExprs(e) {
			if identCaptured(name, c, inClosure) {
				return true
			}
		}
		return false
	}
}

// countIdentRefs counts references to name in e, giving up as soon as
// the count exceeds limit so callers can ask "at most once" cheaply.
func countIdentRefs(limit int, name string, e ir.Expr) int {
	if id, ok := e.(*ir.IdentExpr); ok {
		if id.Ident.Name == name {
			return 1
		}
		return 0
	}
	n := 0
	for _, c := range ir.SubExprs(e) {
		n += countIdentRefs(limit-n, name, c)
		if n > limit {
			return n
		}
	}
	return n
}

// canHaveSideEffects reports whether evaluating e could run observable
// effects. Unknown constructs count as effectful.
func canHaveSideEffects(e ir.Expr) bool {
	switch x := e.(type) {
	case *ir.Import:
		return !x.IsCompilerGenerated
	case *ir.IdentExpr:
		return x.Ident.IsMutable
	case *ir.Lambda, *ir.Delegate:
		// Creating the closure is effect-free; the body runs later.
		return false
	case *ir.Value, *ir.TypeCast, *ir.TypeTest, *ir.Curried,
		*ir.Unary, *ir.Binary, *ir.Logical,
		*ir.Sequential, *ir.Let, *ir.IfThenElse:
		return anyHasSideEffects(ir.SubExprs(e))
	case *ir.Get:
		switch k := x.Kind.(type) {
		case ir.FieldGet:
			if k.IsMutable {
				return true
			}
			return canHaveSideEffects(x.Expr)
		case ir.ExprGet:
			return true
		default:
			return canHaveSideEffects(x.Expr)
		}
	default:
		return true
	}
}

func anyHasSideEffects(exprs []ir.Expr) bool {
	for _, e := range exprs {
		if canHaveSideEffects(e) {
			return true
		}
	}
	return false
}

type scanResult int

const (
	scanClean  scanResult = iota // neither the ident nor an effect seen yet
	scanFound                    // ident reached with no effect before it
	scanEffect                   // a possible effect runs before the ident
)

// noSideEffectBeforeIdent reports whether the first occurrence of name
// in e is reached without evaluating any potentially effectful construct
// first, scanning in evaluation order.
func noSideEffectBeforeIdent(name string, e ir.Expr) bool {
	return scanBeforeIdent(name, e) == scanFound
}

func scanBeforeIdent(name string, e ir.Expr) scanResult {
	switch x := e.(type) {
	case *ir.IdentExpr:
		if x.Ident.Name == name {
			return scanFound
		}
		if x.Ident.IsMutable {
			return scanEffect
		}
		return scanClean
	case *ir.Import:
		return scanClean
	case *ir.Lambda, *ir.Delegate:
		// The body does not run here; capture is checked separately.
		return scanClean
	case *ir.Call:
		// Optimizable aggregate construction applied directly to the
		// target ident is a known safe idiom.
		if x.Info.OptimizableInto != "" && len(x.Args) > 0 {
			if id, ok := x.Args[0].(*ir.IdentExpr); ok && id.Ident.Name == name {
				return scanFound
			}
		}
		return scanEffect
	case *ir.Get:
		switch k := x.Kind.(type) {
		case ir.FieldGet:
			if k.IsMutable {
				return scanEffect
			}
			return scanBeforeIdent(name, x.Expr)
		case ir.ExprGet:
			return scanEffect
		default:
			return scanBeforeIdent(name, x.Expr)
		}
	case *ir.Value, *ir.TypeCast, *ir.TypeTest, *ir.Curried,
		*ir.Unary, *ir.Binary, *ir.Logical,
		*ir.Sequential, *ir.Let, *ir.IfThenElse,
		*ir.DecisionTreeSuccess:
		return scanExprsBeforeIdent(name, ir.SubExprs(e))
	default:
		// CurriedApply, Emit, Set, LetRec, ObjectExpr, loops, exception
		// handling, decision dispatch, Unresolved: assume the worst.
		return scanEffect
	}
}

func scanExprsBeforeIdent(name string, exprs []ir.Expr) scanResult {
	for _, e := range exprs {
		if r := scanBeforeIdent(name, e); r != scanClean {
			return r
		}
	}
	return scanClean
}

// canInlineArg decides whether the value bound to identName may be
// substituted into body. Legal iff the value is effect-free and the
// ident is referenced at most once, or the sole reference is reached
// before any effect and outside any closure.
func canInlineArg(identName string, value, body ir.Expr) bool {
	if !canHaveSideEffects(value) && countIdentRefs(1, identName, body) <= 1 {
		return true
	}
	return noSideEffectBeforeIdent(identName, body) &&
		!isIdentCaptured(identName, body) &&
		countIdentRefs(1, identName, body) == 1
}
