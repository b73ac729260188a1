// Tree traversal primitives. SubExprs is the sole decomposition
// primitive used by every analysis and pass; it must stay exhaustive as
// the variant set evolves, so every switch here panics on an unhandled
// variant instead of skipping it.
package ir

import "fmt"

func unhandled(e Expr) string {
	return fmt.Sprintf("ir: unhandled expression variant %T", e)
}

// SubExprs returns the immediate child expressions of e in left-to-right
// evaluation order.
func SubExprs(e Expr) []Expr {
	switch x := e.(type) {
	case *Unresolved, *IdentExpr, *Import:
		return nil
	case *Value:
		return valueSubExprs(x.Kind)
	case *TypeCast:
		return []Expr{x.Expr}
	case *TypeTest:
		return []Expr{x.Expr}
	case *Curried:
		return []Expr{x.Expr}
	case *Lambda:
		return []Expr{x.Body}
	case *Delegate:
		return []Expr{x.Body}
	case *ObjectExpr:
		var out []Expr
		if x.BaseCall != nil {
			out = append(out, x.BaseCall)
		}
		for _, m := range x.Members {
			out = append(out, m.Body)
		}
		return out
	case *Call:
		out := []Expr{x.Callee}
		if x.ThisArg != nil {
			out = append(out, x.ThisArg)
		}
		return append(out, x.Args...)
	case *CurriedApply:
		return append([]Expr{x.Applied}, x.Args...)
	case *Emit:
		return x.Args
	case *Unary:
		return []Expr{x.Operand}
	case *Binary:
		return []Expr{x.Left, x.Right}
	case *Logical:
		return []Expr{x.Left, x.Right}
	case *Get:
		if k, ok := x.Kind.(ExprGet); ok {
			return []Expr{x.Expr, k.Key}
		}
		return []Expr{x.Expr}
	case *Set:
		if k, ok := x.Kind.(ExprGet); ok {
			return []Expr{x.Expr, k.Key, x.Value}
		}
		return []Expr{x.Expr, x.Value}
	case *Sequential:
		return x.Exprs
	case *Let:
		return []Expr{x.Value, x.Body}
	case *LetRec:
		var out []Expr
		for _, b := range x.Bindings {
			out = append(out, b.Value)
		}
		return append(out, x.Body)
	case *IfThenElse:
		return []Expr{x.Guard, x.Then, x.Else}
	case *WhileLoop:
		return []Expr{x.Guard, x.Body}
	case *ForLoop:
		return []Expr{x.Start, x.Limit, x.Body}
	case *TryCatch:
		out := []Expr{x.Body}
		if x.Catch != nil {
			out = append(out, x.Catch.Body)
		}
		if x.Finalizer != nil {
			out = append(out, x.Finalizer)
		}
		return out
	case *DecisionTree:
		out := []Expr{x.Expr}
		for _, t := range x.Targets {
			out = append(out, t.Body)
		}
		return out
	case *DecisionTreeSuccess:
		return x.BoundValues
	default:
		panic(unhandled(e))
	}
}

func valueSubExprs(k ValueKind) []Expr {
	switch v := k.(type) {
	case UnitConstant, BoolConstant, NumberConstant, StringConstant,
		CharConstant, RegexConstant, ThisValue, BaseValue, TypeInfo:
		return nil
	case EnumConstant:
		return []Expr{v.Value}
	case NewOption:
		if v.Value == nil {
			return nil
		}
		return []Expr{v.Value}
	case NewTuple:
		return v.Items
	case NewArray:
		return v.Items
	case NewList:
		if v.Head == nil {
			return nil
		}
		return []Expr{v.Head, v.Tail}
	case NewRecord:
		return v.Fields
	case NewAnonymousRecord:
		return v.Fields
	case NewUnion:
		return v.Fields
	default:
		panic(fmt.Sprintf("ir: unhandled value kind %T", k))
	}
}

// MapChildren rebuilds e with f applied to each immediate child, in the
// same order SubExprs reports them. The input node is not mutated.
func MapChildren(e Expr, f func(Expr) Expr) Expr {
	switch x := e.(type) {
	case *Unresolved, *IdentExpr, *Import:
		return e
	case *Value:
		cp := *x
		cp.Kind = mapValueKind(x.Kind, f)
		return &cp
	case *TypeCast:
		cp := *x
		cp.Expr = f(x.Expr)
		return &cp
	case *TypeTest:
		cp := *x
		cp.Expr = f(x.Expr)
		return &cp
	case *Curried:
		cp := *x
		cp.Expr = f(x.Expr)
		return &cp
	case *Lambda:
		cp := *x
		cp.Body = f(x.Body)
		return &cp
	case *Delegate:
		cp := *x
		cp.Body = f(x.Body)
		return &cp
	case *ObjectExpr:
		cp := *x
		if x.BaseCall != nil {
			cp.BaseCall = f(x.BaseCall)
		}
		cp.Members = make([]ObjectMember, len(x.Members))
		for i, m := range x.Members {
			m.Body = f(m.Body)
			cp.Members[i] = m
		}
		return &cp
	case *Call:
		cp := *x
		cp.Callee = f(x.Callee)
		if x.ThisArg != nil {
			cp.ThisArg = f(x.ThisArg)
		}
		cp.Args = mapExprs(x.Args, f)
		return &cp
	case *CurriedApply:
		cp := *x
		cp.Applied = f(x.Applied)
		cp.Args = mapExprs(x.Args, f)
		return &cp
	case *Emit:
		cp := *x
		cp.Args = mapExprs(x.Args, f)
		return &cp
	case *Unary:
		cp := *x
		cp.Operand = f(x.Operand)
		return &cp
	case *Binary:
		cp := *x
		cp.Left = f(x.Left)
		cp.Right = f(x.Right)
		return &cp
	case *Logical:
		cp := *x
		cp.Left = f(x.Left)
		cp.Right = f(x.Right)
		return &cp
	case *Get:
		cp := *x
		cp.Expr = f(x.Expr)
		if k, ok := x.Kind.(ExprGet); ok {
			cp.Kind = ExprGet{Key: f(k.Key)}
		}
		return &cp
	case *Set:
		cp := *x
		cp.Expr = f(x.Expr)
		if k, ok := x.Kind.(ExprGet); ok {
			cp.Kind = ExprGet{Key: f(k.Key)}
		}
		cp.Value = f(x.Value)
		return &cp
	case *Sequential:
		cp := *x
		cp.Exprs = mapExprs(x.Exprs, f)
		return &cp
	case *Let:
		cp := *x
		cp.Value = f(x.Value)
		cp.Body = f(x.Body)
		return &cp
	case *LetRec:
		cp := *x
		cp.Bindings = make([]Binding, len(x.Bindings))
		for i, b := range x.Bindings {
			b.Value = f(b.Value)
			cp.Bindings[i] = b
		}
		cp.Body = f(x.Body)
		return &cp
	case *IfThenElse:
		cp := *x
		cp.Guard = f(x.Guard)
		cp.Then = f(x.Then)
		cp.Else = f(x.Else)
		return &cp
	case *WhileLoop:
		cp := *x
		cp.Guard = f(x.Guard)
		cp.Body = f(x.Body)
		return &cp
	case *ForLoop:
		cp := *x
		cp.Start = f(x.Start)
		cp.Limit = f(x.Limit)
		cp.Body = f(x.Body)
		return &cp
	case *TryCatch:
		cp := *x
		cp.Body = f(x.Body)
		if x.Catch != nil {
			c := *x.Catch
			c.Body = f(x.Catch.Body)
			cp.Catch = &c
		}
		if x.Finalizer != nil {
			cp.Finalizer = f(x.Finalizer)
		}
		return &cp
	case *DecisionTree:
		cp := *x
		cp.Expr = f(x.Expr)
		cp.Targets = make([]Target, len(x.Targets))
		for i, t := range x.Targets {
			t.Body = f(t.Body)
			cp.Targets[i] = t
		}
		return &cp
	case *DecisionTreeSuccess:
		cp := *x
		cp.BoundValues = mapExprs(x.BoundValues, f)
		return &cp
	default:
		panic(unhandled(e))
	}
}

func mapValueKind(k ValueKind, f func(Expr) Expr) ValueKind {
	switch v := k.(type) {
	case UnitConstant, BoolConstant, NumberConstant, StringConstant,
		CharConstant, RegexConstant, ThisValue, BaseValue, TypeInfo:
		return k
	case EnumConstant:
		v.Value = f(v.Value)
		return v
	case NewOption:
		if v.Value != nil {
			v.Value = f(v.Value)
		}
		return v
	case NewTuple:
		v.Items = mapExprs(v.Items, f)
		return v
	case NewArray:
		v.Items = mapExprs(v.Items, f)
		return v
	case NewList:
		if v.Head != nil {
			v.Head = f(v.Head)
			v.Tail = f(v.Tail)
		}
		return v
	case NewRecord:
		v.Fields = mapExprs(v.Fields, f)
		return v
	case NewAnonymousRecord:
		v.Fields = mapExprs(v.Fields, f)
		return v
	case NewUnion:
		v.Fields = mapExprs(v.Fields, f)
		return v
	default:
		panic(fmt.Sprintf("ir: unhandled value kind %T", k))
	}
}

func mapExprs(exprs []Expr, f func(Expr) Expr) []Expr {
	if len(exprs) == 0 {
		return exprs
	}
	out := make([]Expr, len(exprs))
	for i, e := range exprs {
		out[i] = f(e)
	}
	return out
}

// VisitBottomUp rewrites the tree post-order: children first, then the
// rule on the rebuilt node. Always traverses the whole tree.
func VisitBottomUp(rule func(Expr) Expr, e Expr) Expr {
	rebuilt := MapChildren(e, func(child Expr) Expr {
		return VisitBottomUp(rule, child)
	})
	return rule(rebuilt)
}

// VisitTopDown rewrites the tree pre-order with controlled descent. The
// rule returns (replacement, true) to replace a node; the engine does
// not descend into the replacement, so a rule that wants its output
// rewritten further must recurse explicitly. On (_, false) the engine
// descends into the original children.
func VisitTopDown(rule func(Expr) (Expr, bool), e Expr) Expr {
	if replaced, ok := rule(e); ok {
		return replaced
	}
	return MapChildren(e, func(child Expr) Expr {
		return VisitTopDown(rule, child)
	})
}

// DeepExists reports whether any node of the tree rooted at e satisfies
// pred, searching breadth-first. Once a frontier produces a match the
// rest of that frontier is skipped and deeper levels are never built.
func DeepExists(pred func(Expr) bool, e Expr) bool {
	return deepExists(pred, []Expr{e})
}

func deepExists(pred func(Expr) bool, frontier []Expr) bool {
	found := false
	var next []Expr
	for _, e := range frontier {
		if found {
			break
		}
		next = append(next, SubExprs(e)...)
		found = pred(e)
	}
	if found {
		return true
	}
	if len(next) > 0 {
		return deepExists(pred, next)
	}
	return false
}
