// Arity normalization between curried function values and the target's
// fully-applied calling convention. Tags record static arity; the final
// resolution pass turns tagged applications into direct calls and falls
// back to runtime adaptation helpers when static information runs out.
package optimizer

import "github.com/calyxlang/calyx-compiler/pkg/ir"

const runtimeFuncModule = "calyx-runtime/func"

func runtimeImport(selector string) *ir.Import {
	return &ir.Import{
		Selector:            selector,
		Path:                runtimeFuncModule,
		Type:                ir.AnyType{},
		IsCompilerGenerated: true,
	}
}

func makeRuntimeCall(selector string, args ...ir.Expr) *ir.Call {
	return &ir.Call{Callee: runtimeImport(selector), Args: args}
}

func isRuntimeCall(call *ir.Call, selector string) bool {
	imp, ok := call.Callee.(*ir.Import)
	return ok && imp.Path == runtimeFuncModule && imp.Selector == selector
}

func makeNumber(n int) *ir.Value {
	return &ir.Value{Kind: ir.NumberConstant{Value: float64(n)}}
}

func makeArray(items []ir.Expr) *ir.Value {
	return &ir.Value{Kind: ir.NewArray{Items: items, Type: ir.AnyType{}}}
}

// staticArity reports the statically known call arity of a
// function-valued expression, 0 when unknown.
func staticArity(e ir.Expr) int {
	switch x := e.(type) {
	case *ir.Curried:
		return x.Arity
	case *ir.Delegate:
		return len(x.Args)
	case *ir.Lambda:
		n := 0
		var cur ir.Expr = x
		for {
			l, ok := cur.(*ir.Lambda)
			if !ok {
				return n
			}
			n++
			cur = l.Body
		}
	case *ir.IdentExpr:
		return ir.FunctionArity(x.Ident.Type)
	case *ir.Import:
		return ir.FunctionArity(x.Type)
	case *ir.TypeCast:
		return ir.FunctionArity(x.Type)
	default:
		return 0
	}
}

// calleeArity unwraps an applied expression to the underlying callee
// and its arity. An explicit tag wins; otherwise the intrinsic static
// arity is used when known. ok is false when neither gives an arity.
func calleeArity(applied ir.Expr) (callee ir.Expr, arity int, ok bool) {
	if tag, isTag := applied.(*ir.Curried); isTag {
		return tag.Expr, tag.Arity, true
	}
	if n := staticArity(applied); n >= 1 {
		return applied, n, true
	}
	return applied, 0, false
}

// staticType resolves the static type of the narrow set of expressions
// the arity passes care about. ok is false when the type is unknown.
func (c *Context) staticType(e ir.Expr) (ir.Type, bool) {
	switch x := e.(type) {
	case *ir.IdentExpr:
		return x.Ident.Type, x.Ident.Type != nil
	case *ir.Import:
		return x.Type, x.Type != nil
	case *ir.TypeCast:
		return x.Type, x.Type != nil
	case *ir.Curried:
		return c.staticType(x.Expr)
	case *ir.Value:
		switch v := x.Kind.(type) {
		case ir.ThisValue:
			return v.Type, v.Type != nil
		case ir.BaseValue:
			return v.Type, v.Type != nil
		}
	case *ir.Get:
		if k, ok := x.Kind.(ir.FieldGet); ok {
			ft, _, ok := c.fieldType(x.Expr, k.Name)
			return ft, ok
		}
	}
	return nil, false
}

// fieldType looks up the declared type of a named field on the receiver,
// reporting whether the receiver is an anonymous record.
func (c *Context) fieldType(recv ir.Expr, name string) (t ir.Type, anon bool, ok bool) {
	rt, known := c.staticType(recv)
	if !known {
		return nil, false, false
	}
	switch dt := rt.(type) {
	case ir.DeclaredType:
		ent, found := c.resolveEntity(dt.Entity)
		if !found {
			return nil, false, false
		}
		f, found := ent.FieldByName(name)
		if !found {
			return nil, false, false
		}
		return f.Type, false, true
	case ir.AnonRecordType:
		for i, fn := range dt.FieldNames {
			if fn == name && i < len(dt.FieldTypes) {
				return dt.FieldTypes[i], true, true
			}
		}
	}
	return nil, false, false
}

func typeHasGenerics(t ir.Type) bool {
	switch tt := t.(type) {
	case ir.GenericParam:
		return true
	case ir.OptionType:
		return typeHasGenerics(tt.Inner)
	case ir.ArrayType:
		return typeHasGenerics(tt.Elem)
	case ir.ListType:
		return typeHasGenerics(tt.Elem)
	case ir.TupleType:
		for _, it := range tt.Items {
			if typeHasGenerics(it) {
				return true
			}
		}
	case ir.LambdaType:
		return typeHasGenerics(tt.Arg) || typeHasGenerics(tt.Return)
	case ir.DelegateType:
		for _, at := range tt.Args {
			if typeHasGenerics(at) {
				return true
			}
		}
		return typeHasGenerics(tt.Return)
	case ir.DeclaredType:
		for _, at := range tt.Args {
			if typeHasGenerics(at) {
				return true
			}
		}
	}
	return false
}

// tagArity wraps first-class reads of statically known multi-argument
// function values in an arity tag: binding sites, parameter sites and
// field or getter access sites.
func (c *Context) tagArity(e ir.Expr) ir.Expr {
	switch x := e.(type) {
	case *ir.Curried:
		// Collapse doubled tags so repeated runs are stable.
		if inner, ok := x.Expr.(*ir.Curried); ok {
			cp := *x
			cp.Expr = inner.Expr
			if cp.Arity == 0 {
				cp.Arity = inner.Arity
			}
			return &cp
		}
	case *ir.Let:
		n := ir.FunctionArity(x.Ident.Type)
		if n >= 2 {
			if _, tagged := x.Value.(*ir.Curried); !tagged {
				cp := *x
				cp.Value = &ir.Curried{Expr: x.Value, Arity: n}
				return &cp
			}
		}
	case *ir.Lambda:
		if n := ir.FunctionArity(x.Arg.Type); n >= 2 {
			cp := *x
			cp.Body = retagIdent(x.Arg.Name, n, x.Body)
			return &cp
		}
	case *ir.Delegate:
		body := x.Body
		changed := false
		for _, a := range x.Args {
			if n := ir.FunctionArity(a.Type); n >= 2 {
				body = retagIdent(a.Name, n, body)
				changed = true
			}
		}
		if changed {
			cp := *x
			cp.Body = body
			return &cp
		}
	case *ir.Call:
		// Collapse doubled runtime arity checks, mirroring the tag
		// collapse above.
		if isRuntimeCall(x, "checkArity") && len(x.Args) > 0 {
			if inner, ok := x.Args[0].(*ir.Call); ok && isRuntimeCall(inner, "checkArity") {
				return inner
			}
		}
	case *ir.Get:
		k, ok := x.Kind.(ir.FieldGet)
		if !ok {
			break
		}
		ft, anon, ok := c.fieldType(x.Expr, k.Name)
		if !ok {
			break
		}
		n := ir.FunctionArity(ft)
		if n < 2 {
			break
		}
		if anon && typeHasGenerics(ft) {
			// The anonymous record's generic signature may not match the
			// declared arity; verify at runtime instead of tagging.
			return makeRuntimeCall("checkArity", x, makeNumber(n))
		}
		return &ir.Curried{Expr: x, Arity: n}
	}
	return e
}

// propagateTag hoists an arity tag off a bound value onto the uses of
// the ident, and through option wrapping and trivial pass-through forms.
func (c *Context) propagateTag(e ir.Expr) ir.Expr {
	switch x := e.(type) {
	case *ir.Let:
		if tag, ok := x.Value.(*ir.Curried); ok {
			cp := *x
			cp.Value = tag.Expr
			cp.Body = retagIdent(x.Ident.Name, tag.Arity, x.Body)
			return &cp
		}
	case *ir.TypeCast:
		if tag, ok := x.Expr.(*ir.Curried); ok {
			cp := *x
			cp.Expr = tag.Expr
			return &ir.Curried{Expr: &cp, Arity: tag.Arity}
		}
	case *ir.Value:
		if opt, ok := x.Kind.(ir.NewOption); ok && opt.Value != nil {
			if tag, ok := opt.Value.(*ir.Curried); ok {
				cp := *x
				cp.Kind = ir.NewOption{Value: tag.Expr, Type: opt.Type}
				return &ir.Curried{Expr: &cp, Arity: tag.Arity}
			}
		}
	case *ir.Get:
		if _, ok := x.Kind.(ir.OptionValue); ok {
			if tag, ok := x.Expr.(*ir.Curried); ok {
				cp := *x
				cp.Expr = tag.Expr
				return &ir.Curried{Expr: &cp, Arity: tag.Arity}
			}
		}
	}
	return e
}

// retagCallSite compares formal parameter types against the static
// arities of the actual arguments. A call with nested arity mismatches
// static rewriting cannot fix routes through the generic runtime
// argument-adaptation helper, carrying the per-position mismatch table.
func (c *Context) retagCallSite(e ir.Expr) ir.Expr {
	call, ok := e.(*ir.Call)
	if !ok || call.ThisArg != nil {
		return e
	}
	calleeType, ok := c.staticType(call.Callee)
	if !ok {
		return e
	}
	params := ir.UncurriedParams(calleeType)
	if len(params) == 0 || len(params) != len(call.Args) {
		return e
	}
	table := make([]ir.Expr, len(call.Args))
	mismatched := false
	for i, pt := range params {
		expected := ir.FunctionArity(pt)
		actual := staticArity(call.Args[i])
		if expected >= 2 && actual != 0 && actual != expected {
			table[i] = &ir.Value{Kind: ir.NewTuple{Items: []ir.Expr{
				makeNumber(expected), makeNumber(actual),
			}}}
			mismatched = true
		} else {
			table[i] = makeNumber(0)
		}
	}
	if !mismatched {
		return e
	}
	args := append([]ir.Expr{call.Callee, makeArray(table)}, call.Args...)
	return makeRuntimeCall("adaptArgs", args...)
}

// resolveApplication lowers applications of tagged callees: exact arity
// becomes a direct call, a deficit becomes a runtime partial
// application, and unknown arity always goes through the runtime.
func (c *Context) resolveApplication(e ir.Expr) ir.Expr {
	switch x := e.(type) {
	case *ir.CurriedApply:
		callee, arity, tagged := calleeArity(x.Applied)
		if !tagged {
			return e
		}
		switch {
		case arity == 0:
			// The runtime paths keep the tag around the function value so a
			// rerun of the tag passes leaves them alone.
			return makeRuntimeCall("apply", x.Applied, makeArray(x.Args))
		case arity == len(x.Args):
			return &ir.Call{
				ExprBase: ir.ExprBase{Range: x.Loc()},
				Callee:   callee,
				Args:     x.Args,
			}
		case arity > len(x.Args):
			remaining := arity - len(x.Args)
			return makeRuntimeCall("partialApply", makeNumber(remaining), x.Applied, makeArray(x.Args))
		default:
			// Oversupply: the direct call returns another callable that
			// consumes the rest.
			first := &ir.Call{Callee: callee, Args: x.Args[:arity]}
			return &ir.CurriedApply{Applied: first, Args: x.Args[arity:]}
		}
	case *ir.Call:
		tag, ok := x.Callee.(*ir.Curried)
		if !ok {
			return e
		}
		if x.ThisArg != nil {
			return e
		}
		switch {
		case tag.Arity == 0:
			return makeRuntimeCall("apply", tag, makeArray(x.Args))
		case tag.Arity == len(x.Args):
			cp := *x
			cp.Callee = tag.Expr
			return &cp
		case tag.Arity > len(x.Args):
			remaining := tag.Arity - len(x.Args)
			return makeRuntimeCall("partialApply", makeNumber(remaining), tag, makeArray(x.Args))
		default:
			c.defectf("direct call supplies %d arguments to an arity-%d callee", len(x.Args), tag.Arity)
			return e
		}
	}
	return e
}
