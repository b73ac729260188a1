package optimizer

import (
	"strings"
	"testing"

	"github.com/calyxlang/calyx-compiler/pkg/ir"
)

func lambdaChain(n int) ir.Type {
	t := ir.Type(ir.NumberType{})
	for i := 0; i < n; i++ {
		t = ir.LambdaType{Arg: ir.NumberType{}, Return: t}
	}
	return t
}

type stubResolver map[string]*ir.Entity

func (r stubResolver) ResolveEntity(ref ir.EntityRef) (*ir.Entity, bool) {
	e, ok := r[ref.FullName]
	return e, ok
}

func runPasses(t *testing.T, ctx *Context, e ir.Expr) ir.Expr {
	t.Helper()
	out, err := NewPipeline().runExpr(ctx, "test", e)
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	return out
}

func TestStaticArity(t *testing.T) {
	tests := []struct {
		name string
		expr ir.Expr
		want int
	}{
		{"arity tag", &ir.Curried{Expr: ref("f"), Arity: 4}, 4},
		{"delegate literal", &ir.Delegate{Args: []ir.Ident{{Name: "a"}, {Name: "b"}}, Body: num(0)}, 2},
		{
			"lambda chain",
			&ir.Lambda{Arg: ir.Ident{Name: "a"}, Body: &ir.Lambda{Arg: ir.Ident{Name: "b"}, Body: num(0)}},
			2,
		},
		{"typed ident", typedRef("f", lambdaChain(3)), 3},
		{"typed import", &ir.Import{Selector: "f", Path: "lib", Type: lambdaChain(2)}, 2},
		{"untyped ident", ref("f"), 0},
		{"literal", num(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := staticArity(tt.expr); got != tt.want {
				t.Errorf("staticArity = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveFullApplicationThroughBinding(t *testing.T) {
	ctx := &Context{Options: Options{Level: 2}}
	f := ir.Ident{Name: "f", Type: lambdaChain(3)}
	e := &ir.Let{
		Ident: f,
		Value: &ir.Import{Selector: "add3", Path: "mathlib", Type: lambdaChain(3)},
		Body:  &ir.CurriedApply{Applied: ref("f"), Args: []ir.Expr{num(1), num(2), num(3)}},
	}

	got := runPasses(t, ctx, e)
	want := "(let f = (import mathlib:add3) in (call f 1 2 3))"
	if s := ir.String(got); s != want {
		t.Errorf("result = %s, want %s", s, want)
	}
	if strings.Contains(ir.String(got), "partialApply") {
		t.Error("full application must not go through the runtime")
	}
}

func TestResolveAfterBindingErasure(t *testing.T) {
	// The binding is erasable, so the typed import itself ends up in
	// applied position and still resolves to a direct call.
	ctx := &Context{Options: Options{Level: 2}}
	f := ir.Ident{Name: "f", Type: lambdaChain(3), IsCompilerGenerated: true}
	e := &ir.Let{
		Ident: f,
		Value: &ir.Import{Selector: "add3", Path: "calyx-runtime/math", Type: lambdaChain(3), IsCompilerGenerated: true},
		Body:  &ir.CurriedApply{Applied: ref("f"), Args: []ir.Expr{num(1), num(2), num(3)}},
	}

	got := runPasses(t, ctx, e)
	want := "(call (import calyx-runtime/math:add3) 1 2 3)"
	if s := ir.String(got); s != want {
		t.Errorf("result = %s, want %s", s, want)
	}
}

func TestResolvePartialApplication(t *testing.T) {
	ctx := &Context{Options: Options{Level: 2}}
	f := ir.Ident{Name: "f", Type: lambdaChain(3)}
	e := &ir.Let{
		Ident: f,
		Value: &ir.Import{Selector: "add3", Path: "mathlib", Type: lambdaChain(3)},
		Body:  &ir.CurriedApply{Applied: ref("f"), Args: []ir.Expr{num(1)}},
	}

	got := runPasses(t, ctx, e)
	want := "(let f = (import mathlib:add3) in " +
		"(call (import calyx-runtime/func:partialApply) 2 (curried/3 f) (array 1)))"
	if s := ir.String(got); s != want {
		t.Errorf("result = %s, want %s", s, want)
	}
}

func TestChainedApplicationEqualsAllAtOnce(t *testing.T) {
	ctx := &Context{Options: Options{Level: 2}}
	build := func(body func() ir.Expr) ir.Expr {
		return &ir.Let{
			Ident: ir.Ident{Name: "f", Type: lambdaChain(3)},
			Value: &ir.Import{Selector: "add3", Path: "mathlib", Type: lambdaChain(3)},
			Body:  body(),
		}
	}
	chained := build(func() ir.Expr {
		return &ir.CurriedApply{
			Applied: &ir.CurriedApply{Applied: ref("f"), Args: []ir.Expr{num(1)}},
			Args:    []ir.Expr{num(2), num(3)},
		}
	})
	atOnce := build(func() ir.Expr {
		return &ir.CurriedApply{Applied: ref("f"), Args: []ir.Expr{num(1), num(2), num(3)}}
	})

	a := ir.String(runPasses(t, ctx, chained))
	b := ir.String(runPasses(t, ctx, atOnce))
	if a != b {
		t.Errorf("chained application resolved to %s, all-at-once to %s", a, b)
	}
}

func TestDynamicArityUsesRuntimeApply(t *testing.T) {
	ctx := &Context{}
	e := &ir.CurriedApply{
		Applied: &ir.Curried{Expr: ref("f"), Arity: 0},
		Args:    []ir.Expr{num(1)},
	}
	got := rewrite(ctx, (*Context).resolveApplication, e)
	want := "(call (import calyx-runtime/func:apply) (curried/0 f) (array 1))"
	if s := ir.String(got); s != want {
		t.Errorf("result = %s, want %s", s, want)
	}
}

func TestOversuppliedCurriedApplySplits(t *testing.T) {
	ctx := &Context{}
	e := &ir.CurriedApply{
		Applied: &ir.Curried{Expr: ref("f"), Arity: 2},
		Args:    []ir.Expr{num(1), num(2), num(3)},
	}
	got := rewrite(ctx, (*Context).resolveApplication, e)
	want := "(apply (call f 1 2) 3)"
	if s := ir.String(got); s != want {
		t.Errorf("result = %s, want %s", s, want)
	}
}

func TestOversuppliedDirectCallIsDefect(t *testing.T) {
	ctx := &Context{Options: Options{Level: 2}}
	e := &ir.Call{
		Callee: &ir.Curried{Expr: ref("f"), Arity: 2},
		Args:   []ir.Expr{num(1), num(2), num(3)},
	}
	_, err := NewPipeline().runExpr(ctx, "test", e)
	if err == nil {
		t.Fatal("oversupplied direct call did not report a defect")
	}
	if !strings.Contains(err.Error(), "arity-2") {
		t.Errorf("defect message = %q", err.Error())
	}
	if ctx.defect != nil {
		t.Error("defect not cleared after reporting")
	}
}

func TestTagCollapseKeepsPipelineStable(t *testing.T) {
	ctx := &Context{}

	t.Run("doubled arity tag", func(t *testing.T) {
		e := &ir.Curried{Expr: &ir.Curried{Expr: ref("f"), Arity: 3}, Arity: 0}
		got, ok := ctx.tagArity(e).(*ir.Curried)
		if !ok {
			t.Fatalf("result is %T, want a single tag", ctx.tagArity(e))
		}
		if got.Arity != 3 {
			t.Errorf("collapsed arity = %d, want 3", got.Arity)
		}
		if _, nested := got.Expr.(*ir.Curried); nested {
			t.Error("tag still nested after collapse")
		}
	})

	t.Run("doubled runtime arity check", func(t *testing.T) {
		inner := makeRuntimeCall("checkArity", ref("w"), makeNumber(2))
		outer := makeRuntimeCall("checkArity", inner, makeNumber(2))
		if got := ctx.tagArity(outer); got != ir.Expr(inner) {
			t.Errorf("result = %s, want the inner check", ir.String(got))
		}
	})
}

func TestFullPipelineIdempotent(t *testing.T) {
	ctx := &Context{Options: Options{Level: 2}}
	e := &ir.Let{
		Ident: ir.Ident{Name: "f", Type: lambdaChain(3)},
		Value: &ir.Import{Selector: "add3", Path: "mathlib", Type: lambdaChain(3)},
		Body: plus(
			&ir.CurriedApply{Applied: ref("f"), Args: []ir.Expr{num(1), num(2), num(3)}},
			&ir.CurriedApply{Applied: ref("f"), Args: []ir.Expr{num(4)}},
		),
	}
	once := runPasses(t, ctx, e)
	twice := runPasses(t, ctx, once)
	if ir.String(once) != ir.String(twice) {
		t.Errorf("second run changed the tree:\n once: %s\ntwice: %s",
			ir.String(once), ir.String(twice))
	}
}

func TestFieldAccessTagging(t *testing.T) {
	widget := &ir.Entity{
		Ref: ir.EntityRef{FullName: "app.Widget"},
		Fields: []ir.Field{
			{Name: "handler", Type: lambdaChain(2)},
			{Name: "label", Type: ir.StringType{}},
		},
	}
	ctx := &Context{Resolver: stubResolver{"app.Widget": widget}}
	recv := typedRef("w", ir.DeclaredType{Entity: ir.EntityRef{FullName: "app.Widget"}})

	t.Run("multi-argument field tagged", func(t *testing.T) {
		e := &ir.Get{Expr: recv, Kind: ir.FieldGet{Name: "handler"}}
		got, ok := ctx.tagArity(e).(*ir.Curried)
		if !ok {
			t.Fatalf("result is %T, want an arity tag", ctx.tagArity(e))
		}
		if got.Arity != 2 {
			t.Errorf("tag arity = %d, want 2", got.Arity)
		}
	})
	t.Run("non-function field untouched", func(t *testing.T) {
		e := &ir.Get{Expr: recv, Kind: ir.FieldGet{Name: "label"}}
		if got := ctx.tagArity(e); got != ir.Expr(e) {
			t.Errorf("result = %s, want the original access", ir.String(got))
		}
	})
	t.Run("unknown entity untouched", func(t *testing.T) {
		other := typedRef("o", ir.DeclaredType{Entity: ir.EntityRef{FullName: "app.Missing"}})
		e := &ir.Get{Expr: other, Kind: ir.FieldGet{Name: "handler"}}
		if got := ctx.tagArity(e); got != ir.Expr(e) {
			t.Errorf("result = %s, want the original access", ir.String(got))
		}
	})
}

func TestAnonRecordGenericFieldChecksAtRuntime(t *testing.T) {
	ctx := &Context{}
	fieldType := ir.LambdaType{
		Arg: ir.GenericParam{Name: "a"},
		Return: ir.LambdaType{
			Arg:    ir.GenericParam{Name: "b"},
			Return: ir.NumberType{},
		},
	}
	recv := typedRef("r", ir.AnonRecordType{
		FieldNames: []string{"cb"},
		FieldTypes: []ir.Type{fieldType},
	})
	e := &ir.Get{Expr: recv, Kind: ir.FieldGet{Name: "cb"}}

	got, ok := ctx.tagArity(e).(*ir.Call)
	if !ok || !isRuntimeCall(got, "checkArity") {
		t.Fatalf("result = %s, want a runtime arity check", ir.String(ctx.tagArity(e)))
	}
	if s := ir.String(got.Args[1]); s != "2" {
		t.Errorf("checked arity = %s, want 2", s)
	}
}

func TestPropagateTag(t *testing.T) {
	ctx := &Context{}
	tagged := func() ir.Expr { return &ir.Curried{Expr: ref("v"), Arity: 2} }

	tests := []struct {
		name string
		expr ir.Expr
		want string
	}{
		{
			"binding tag hoisted onto uses",
			&ir.Let{Ident: ir.Ident{Name: "x"}, Value: tagged(), Body: callExpr("g", ref("x"))},
			"(let x = v in (call g (curried/2 x)))",
		},
		{
			"through type cast",
			&ir.TypeCast{Expr: tagged(), Type: ir.AnyType{}},
			"(curried/2 (cast v))",
		},
		{
			"through option wrap",
			&ir.Value{Kind: ir.NewOption{Value: tagged()}},
			"(curried/2 (some v))",
		},
		{
			"through option unwrap",
			&ir.Get{Expr: tagged(), Kind: ir.OptionValue{}},
			"(curried/2 (get option-value v))",
		},
		{
			"untagged binding untouched",
			&ir.Let{Ident: ir.Ident{Name: "x"}, Value: ref("v"), Body: ref("x")},
			"(let x = v in x)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ctx.propagateTag(tt.expr)
			if s := ir.String(got); s != tt.want {
				t.Errorf("result = %s, want %s", s, tt.want)
			}
		})
	}
}

func TestRetagCallSite(t *testing.T) {
	calleeType := ir.DelegateType{
		Args:   []ir.Type{lambdaChain(2), ir.NumberType{}},
		Return: ir.NumberType{},
	}
	h := typedRef("h", calleeType)
	threeArg := &ir.Delegate{
		Args: []ir.Ident{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Body: num(0),
	}
	twoArg := &ir.Delegate{
		Args: []ir.Ident{{Name: "a"}, {Name: "b"}},
		Body: num(0),
	}
	ctx := &Context{}

	t.Run("nested arity mismatch routes through runtime", func(t *testing.T) {
		call := &ir.Call{Callee: h, Args: []ir.Expr{threeArg, num(9)}}
		got, ok := ctx.retagCallSite(call).(*ir.Call)
		if !ok || !isRuntimeCall(got, "adaptArgs") {
			t.Fatalf("result = %s, want a runtime adaptation call", ir.String(ctx.retagCallSite(call)))
		}
		s := ir.String(got)
		if !strings.Contains(s, "(tuple 2 3)") {
			t.Errorf("mismatch table missing expected/actual pair: %s", s)
		}
		if !strings.Contains(s, "(array (tuple 2 3) 0)") {
			t.Errorf("non-function position should carry the zero marker: %s", s)
		}
	})
	t.Run("matching arities untouched", func(t *testing.T) {
		call := &ir.Call{Callee: h, Args: []ir.Expr{twoArg, num(9)}}
		if got := ctx.retagCallSite(call); got != ir.Expr(call) {
			t.Errorf("result = %s, want the original call", ir.String(got))
		}
	})
	t.Run("dynamic argument untouched", func(t *testing.T) {
		call := &ir.Call{Callee: h, Args: []ir.Expr{ref("cb"), num(9)}}
		if got := ctx.retagCallSite(call); got != ir.Expr(call) {
			t.Errorf("result = %s, want the original call", ir.String(got))
		}
	})
	t.Run("method call skipped", func(t *testing.T) {
		call := &ir.Call{Callee: h, ThisArg: ref("obj"), Args: []ir.Expr{threeArg, num(9)}}
		if got := ctx.retagCallSite(call); got != ir.Expr(call) {
			t.Errorf("result = %s, want the original call", ir.String(got))
		}
	})
}
