// Beta reduction: erasing local bindings and reducing calls whose
// callee is a function literal, without changing evaluation order,
// effect timing or evaluation count.
package optimizer

import "github.com/calyxlang/calyx-compiler/pkg/ir"

// reduceBinding erases a non-mutable local binding when the value can be
// substituted for every occurrence of the ident in the continuation.
// User-authored bindings survive when PreserveUserBindings is set.
func (c *Context) reduceBinding(e ir.Expr) ir.Expr {
	l, ok := e.(*ir.Let)
	if !ok || l.Ident.IsMutable {
		return e
	}
	if !l.Ident.IsCompilerGenerated && c.Options.PreserveUserBindings {
		return e
	}
	if !c.canEraseBinding(l) {
		return e
	}
	// A recoverable name on the inlined function literal keeps later
	// tail-call rewrites possible.
	return substitute(l.Ident.Name, nameFunction(l.Ident.Name, l.Value), l.Body)
}

func (c *Context) canEraseBinding(l *ir.Let) bool {
	switch v := peelArityTag(l.Value).(type) {
	case *ir.Import:
		return v.IsCompilerGenerated
	case *ir.Lambda:
		return c.canEraseFunctionBinding(l, v.Body)
	case *ir.Delegate:
		return c.canEraseFunctionBinding(l, v.Body)
	default:
		return canInlineArg(l.Ident.Name, l.Value, l.Body)
	}
}

func (c *Context) canEraseFunctionBinding(l *ir.Let, funBody ir.Expr) bool {
	if imp, ok := funBody.(*ir.Import); ok && imp.IsCompilerGenerated {
		return true
	}
	// Self-recursive function values must keep their binding.
	if countIdentRefs(0, l.Ident.Name, funBody) > 0 {
		return false
	}
	return canInlineArg(l.Ident.Name, l.Value, l.Body)
}

func peelArityTag(e ir.Expr) ir.Expr {
	if tag, ok := e.(*ir.Curried); ok {
		return tag.Expr
	}
	return e
}

func nameFunction(name string, value ir.Expr) ir.Expr {
	switch v := value.(type) {
	case *ir.Lambda:
		if v.Name != "" {
			return value
		}
		cp := *v
		cp.Name = name
		return &cp
	case *ir.Delegate:
		if v.Name != "" {
			return value
		}
		cp := *v
		cp.Name = name
		return &cp
	case *ir.Curried:
		cp := *v
		cp.Expr = nameFunction(name, v.Expr)
		return &cp
	default:
		return value
	}
}

// reduceApplication folds adjacent string literals, reduces direct calls
// of function literals, and unwinds curried application chains.
func (c *Context) reduceApplication(e ir.Expr) ir.Expr {
	switch x := e.(type) {
	case *ir.Binary:
		if x.Op == ir.BinaryPlus {
			if folded, ok := foldStringConcat(x); ok {
				return folded
			}
		}
	case *ir.Call:
		d, ok := x.Callee.(*ir.Delegate)
		if ok && d.Name == "" && x.ThisArg == nil && len(d.Args) == len(x.Args) {
			return applyArgs(d.Args, x.Args, d.Body)
		}
	case *ir.CurriedApply:
		return reduceCurriedApply(x)
	}
	return e
}

func foldStringConcat(b *ir.Binary) (ir.Expr, bool) {
	lv, ok := b.Left.(*ir.Value)
	if !ok {
		return nil, false
	}
	rv, ok := b.Right.(*ir.Value)
	if !ok {
		return nil, false
	}
	ls, ok := lv.Kind.(ir.StringConstant)
	if !ok {
		return nil, false
	}
	rs, ok := rv.Kind.(ir.StringConstant)
	if !ok {
		return nil, false
	}
	return &ir.Value{
		ExprBase: ir.ExprBase{Range: ir.MergeRanges(lv.Loc(), rv.Loc())},
		Kind:     ir.StringConstant{Value: ls.Value + rs.Value},
	}, true
}

// applyArgs substitutes eligible parameters directly and rebinds the
// rest in front of the body, keeping the original left-to-right
// evaluation order of the arguments.
func applyArgs(params []ir.Ident, args []ir.Expr, body ir.Expr) ir.Expr {
	eligible := make([]bool, len(params))
	for i, p := range params {
		// Substituting moves the argument past the arguments evaluated
		// after it, so they are part of the scanned context.
		scanCtx := body
		if i+1 < len(args) {
			rest := append(append([]ir.Expr{}, args[i+1:]...), body)
			scanCtx = &ir.Sequential{Exprs: rest}
		}
		eligible[i] = canInlineArg(p.Name, args[i], scanCtx)
	}
	result := body
	for i, p := range params {
		if eligible[i] {
			result = substitute(p.Name, args[i], result)
		}
	}
	for i := len(params) - 1; i >= 0; i-- {
		if !eligible[i] {
			result = &ir.Let{Ident: params[i], Value: args[i], Body: result}
		}
	}
	return result
}

func reduceCurriedApply(x *ir.CurriedApply) ir.Expr {
	applied := x.Applied
	args := x.Args
	// Merge nested application chains so later arity resolution sees
	// the whole argument run at once.
	if inner, ok := applied.(*ir.CurriedApply); ok {
		applied = inner.Applied
		args = append(append([]ir.Expr{}, inner.Args...), args...)
	}
	reduced := false
	for len(args) > 0 {
		param, body, ok := immediatelyApplicable(applied)
		if !ok {
			break
		}
		applied = applyArgs([]ir.Ident{param}, args[:1], body)
		args = args[1:]
		reduced = true
	}
	if len(args) == 0 {
		return applied
	}
	if !reduced && len(args) == len(x.Args) {
		return x
	}
	return &ir.CurriedApply{Applied: applied, Args: args}
}

// immediatelyApplicable recognizes a callee that is statically a
// single-argument function literal, possibly behind a chain of
// non-mutable bindings that can be pushed into the residual body.
func immediatelyApplicable(e ir.Expr) (ir.Ident, ir.Expr, bool) {
	switch x := e.(type) {
	case *ir.Lambda:
		return x.Arg, x.Body, true
	case *ir.Let:
		if x.Ident.IsMutable {
			break
		}
		if arg, body, ok := immediatelyApplicable(x.Body); ok {
			return arg, &ir.Let{Ident: x.Ident, Value: x.Value, Body: body}, true
		}
	}
	return ir.Ident{}, nil, false
}
