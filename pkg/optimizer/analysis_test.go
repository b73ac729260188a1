package optimizer

import (
	"testing"

	"github.com/calyxlang/calyx-compiler/pkg/ir"
)

func num(v float64) ir.Expr {
	return &ir.Value{Kind: ir.NumberConstant{Value: v}}
}

func str(s string) ir.Expr {
	return &ir.Value{Kind: ir.StringConstant{Value: s}}
}

func ref(name string) ir.Expr {
	return &ir.IdentExpr{Ident: ir.Ident{Name: name}}
}

func typedRef(name string, t ir.Type) ir.Expr {
	return &ir.IdentExpr{Ident: ir.Ident{Name: name, Type: t}}
}

func mutRef(name string) ir.Expr {
	return &ir.IdentExpr{Ident: ir.Ident{Name: name, IsMutable: true}}
}

func plus(l, r ir.Expr) ir.Expr {
	return &ir.Binary{Op: ir.BinaryPlus, Left: l, Right: r}
}

// mutFieldRead models a read that can observe a different value each
// time, so the analyses must treat it as effectful.
func mutFieldRead(recv string) ir.Expr {
	return &ir.Get{Expr: ref(recv), Kind: ir.FieldGet{Name: "m", IsMutable: true}}
}

func callExpr(callee string, args ...ir.Expr) ir.Expr {
	return &ir.Call{Callee: ref(callee), Args: args}
}

func rewrite(ctx *Context, rule func(*Context, ir.Expr) ir.Expr, e ir.Expr) ir.Expr {
	return rewriteBottomUp(rule)(ctx, e)
}

func TestIsIdentUsed(t *testing.T) {
	body := &ir.Let{Ident: ir.Ident{Name: "y"}, Value: num(1), Body: plus(ref("x"), ref("y"))}
	if !isIdentUsed("x", body) {
		t.Error("x is referenced but reported unused")
	}
	if isIdentUsed("z", body) {
		t.Error("z is not referenced but reported used")
	}
}

func TestCountIdentRefs(t *testing.T) {
	tests := []struct {
		name string
		expr ir.Expr
		want int
	}{
		{"no refs", plus(num(1), num(2)), 0},
		{"one ref", plus(ref("x"), num(2)), 1},
		{"two refs", plus(ref("x"), ref("x")), 2},
		{"ref inside closure counts", &ir.Lambda{Arg: ir.Ident{Name: "a"}, Body: ref("x")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countIdentRefs(2, "x", tt.expr); got != tt.want {
				t.Errorf("countIdentRefs = %d, want %d", got, tt.want)
			}
		})
	}

	// The limit lets callers ask "more than once" without a full count.
	wide := &ir.Sequential{Exprs: []ir.Expr{ref("x"), ref("x"), ref("x"), ref("x")}}
	if got := countIdentRefs(1, "x", wide); got <= 1 {
		t.Errorf("countIdentRefs with limit 1 = %d, want a value above the limit", got)
	}
}

func TestIsIdentCaptured(t *testing.T) {
	tests := []struct {
		name string
		expr ir.Expr
		want bool
	}{
		{"top-level ref", plus(ref("x"), num(1)), false},
		{"under lambda", &ir.Lambda{Arg: ir.Ident{Name: "a"}, Body: ref("x")}, true},
		{"under delegate", &ir.Delegate{Args: []ir.Ident{{Name: "a"}}, Body: ref("x")}, true},
		{
			"object member body",
			&ir.ObjectExpr{Members: []ir.ObjectMember{{Name: "get", Body: ref("x")}}},
			true,
		},
		{
			"object base call is evaluated eagerly",
			&ir.ObjectExpr{BaseCall: ref("x")},
			false,
		},
		{
			"lambda not referencing the ident",
			&ir.Lambda{Arg: ir.Ident{Name: "a"}, Body: ref("a")},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isIdentCaptured("x", tt.expr); got != tt.want {
				t.Errorf("isIdentCaptured = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanHaveSideEffects(t *testing.T) {
	tests := []struct {
		name string
		expr ir.Expr
		want bool
	}{
		{"number literal", num(1), false},
		{"immutable ident", ref("x"), false},
		{"mutable ident", mutRef("x"), true},
		{"user import", &ir.Import{Selector: "f", Path: "lib"}, true},
		{"runtime import", &ir.Import{Selector: "f", Path: "lib", IsCompilerGenerated: true}, false},
		{"closure over effectful body", &ir.Lambda{Arg: ir.Ident{Name: "a"}, Body: callExpr("g")}, false},
		{"binary of literals", plus(num(1), num(2)), false},
		{"binary over call", plus(callExpr("g"), num(2)), true},
		{"mutable field read", mutFieldRead("r"), true},
		{"immutable field read", &ir.Get{Expr: ref("r"), Kind: ir.FieldGet{Name: "f"}}, false},
		{"dynamic key access", &ir.Get{Expr: ref("r"), Kind: ir.ExprGet{Key: num(0)}}, true},
		{"call", callExpr("g"), true},
		{"emit", &ir.Emit{Macro: "js"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canHaveSideEffects(tt.expr); got != tt.want {
				t.Errorf("canHaveSideEffects = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNoSideEffectBeforeIdent(t *testing.T) {
	tests := []struct {
		name string
		expr ir.Expr
		want bool
	}{
		{"ident first", plus(ref("x"), callExpr("g")), true},
		{"call first", plus(callExpr("g"), ref("x")), false},
		{"import read before ident is clean", plus(&ir.Import{Selector: "c", Path: "lib"}, ref("x")), true},
		{"mutable read first", plus(mutFieldRead("r"), ref("x")), false},
		{"ident only inside closure", &ir.Lambda{Arg: ir.Ident{Name: "a"}, Body: ref("x")}, false},
		{"ident never occurs", plus(num(1), num(2)), false},
		{
			"optimizable construction applied to the ident",
			&ir.Call{Callee: ref("cons"), Args: []ir.Expr{ref("x"), num(1)},
				Info: ir.CallInfo{OptimizableInto: "list"}},
			true,
		},
		{
			"plain call applied to the ident",
			&ir.Call{Callee: ref("cons"), Args: []ir.Expr{ref("x"), num(1)}},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := noSideEffectBeforeIdent("x", tt.expr); got != tt.want {
				t.Errorf("noSideEffectBeforeIdent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanInlineArg(t *testing.T) {
	tests := []struct {
		name  string
		value ir.Expr
		body  ir.Expr
		want  bool
	}{
		{"pure value used once", num(1), plus(ref("x"), num(2)), true},
		{"pure value unused", num(1), num(2), true},
		{"pure value used twice", num(1), plus(ref("x"), ref("x")), false},
		{"effectful value reached first", mutFieldRead("r"), plus(ref("x"), callExpr("g")), true},
		{"effectful value behind a call", mutFieldRead("r"), plus(callExpr("g"), ref("x")), false},
		{"effectful value captured", mutFieldRead("r"), &ir.Lambda{Arg: ir.Ident{Name: "a"}, Body: ref("x")}, false},
		{"effectful value used twice", mutFieldRead("r"), plus(ref("x"), ref("x")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canInlineArg("x", tt.value, tt.body); got != tt.want {
				t.Errorf("canInlineArg = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubstituteRespectsShadowing(t *testing.T) {
	// The inner lambda rebinds x, so only the free reference changes.
	e := plus(
		ref("x"),
		&ir.Lambda{Arg: ir.Ident{Name: "x"}, Body: ref("x")},
	)
	got := substitute("x", num(9), e)
	want := "(+ 9 (fn x -> x))"
	if s := ir.String(got); s != want {
		t.Errorf("substitute = %s, want %s", s, want)
	}
}

func TestSubstituteKeepsArityTag(t *testing.T) {
	e := &ir.CurriedApply{
		Applied: &ir.Curried{Expr: ref("x"), Arity: 2},
		Args:    []ir.Expr{num(1)},
	}
	got := substitute("x", ref("g"), e)
	want := "(apply (curried/2 g) 1)"
	if s := ir.String(got); s != want {
		t.Errorf("substitute = %s, want %s", s, want)
	}
}

func TestRetagIdentIsStable(t *testing.T) {
	e := plus(ref("f"), num(1))
	once := retagIdent("f", 3, e)
	twice := retagIdent("f", 3, once)
	want := "(+ (curried/3 f) 1)"
	if s := ir.String(once); s != want {
		t.Errorf("first retag = %s, want %s", s, want)
	}
	if ir.String(twice) != ir.String(once) {
		t.Errorf("second retag changed the tree: %s", ir.String(twice))
	}
}
