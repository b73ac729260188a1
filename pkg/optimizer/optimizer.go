// Package optimizer rewrites declaration bodies through an ordered
// sequence of tree passes: beta reduction first, then arity
// normalization, with application resolution always last.
package optimizer

import (
	"fmt"

	"github.com/calyxlang/calyx-compiler/pkg/ir"
	"github.com/calyxlang/calyx-compiler/pkg/logger"
)

// Options is the configuration surface the passes consult.
type Options struct {
	// Level 0 disables optimization entirely.
	Level int
	// PreserveUserBindings keeps user-authored bindings in the output
	// for debuggability; compiler-generated bindings are still erased.
	PreserveUserBindings bool
}

// Resolver supplies declared-entity metadata on demand.
type Resolver interface {
	ResolveEntity(ref ir.EntityRef) (*ir.Entity, bool)
}

// PluginHook runs once per member declaration before optimization and
// may return a rewritten declaration.
type PluginHook func(*ir.MemberDecl) *ir.MemberDecl

// Context is the per-compilation-unit state shared by all passes.
// It is not safe for concurrent use; process units on separate contexts.
type Context struct {
	Options  Options
	Resolver Resolver
	Plugin   PluginHook

	decl   string
	defect error
}

// defectf records an implementation error hit by a rewrite rule. The
// pipeline aborts the current declaration when one is set; defects are
// never retried and never silently ignored.
func (c *Context) defectf(format string, args ...any) {
	if c.defect == nil {
		c.defect = fmt.Errorf("optimizer: %s: %s", c.decl, fmt.Sprintf(format, args...))
	}
}

func (c *Context) resolveEntity(ref ir.EntityRef) (*ir.Entity, bool) {
	if c.Resolver == nil {
		return nil, false
	}
	return c.Resolver.ResolveEntity(ref)
}

// Pass is one tree rewrite applied to a whole declaration body.
type Pass struct {
	Name    string
	Rewrite func(*Context, ir.Expr) ir.Expr
}

// Pipeline is the ordered pass list. Order is a hard dependency: the
// beta-reduction passes feed the arity passes, and resolve-applications
// consumes the tags the earlier arity passes introduce, so it runs last.
type Pipeline struct {
	passes []Pass
}

// NewPipeline builds the standard pipeline in dependency order.
func NewPipeline() *Pipeline {
	return &Pipeline{passes: []Pass{
		{Name: "beta-reduce-bindings", Rewrite: rewriteBottomUp((*Context).reduceBinding)},
		{Name: "beta-reduce-applications", Rewrite: rewriteBottomUp((*Context).reduceApplication)},
		{Name: "tag-arities", Rewrite: rewriteBottomUp((*Context).tagArity)},
		{Name: "propagate-arity-tags", Rewrite: rewriteBottomUp((*Context).propagateTag)},
		{Name: "retag-call-sites", Rewrite: rewriteBottomUp((*Context).retagCallSite)},
		{Name: "resolve-applications", Rewrite: rewriteBottomUp((*Context).resolveApplication)},
	}}
}

func rewriteBottomUp(rule func(*Context, ir.Expr) ir.Expr) func(*Context, ir.Expr) ir.Expr {
	return func(ctx *Context, e ir.Expr) ir.Expr {
		return ir.VisitBottomUp(func(x ir.Expr) ir.Expr {
			return rule(ctx, x)
		}, e)
	}
}

// PassNames lists the passes in execution order.
func (p *Pipeline) PassNames() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name
	}
	return names
}

// Optimize runs the standard pipeline over a compilation unit.
func Optimize(ctx *Context, decls []ir.Decl) ([]ir.Decl, error) {
	return NewPipeline().Run(ctx, decls)
}

// Run rewrites every declaration. Declarations are independent; a defect
// in any of them fails the whole unit.
func (p *Pipeline) Run(ctx *Context, decls []ir.Decl) ([]ir.Decl, error) {
	if ctx.Options.Level == 0 {
		logger.Debug("Optimization disabled", "level", 0)
		return decls, nil
	}
	out := make([]ir.Decl, len(decls))
	for i, d := range decls {
		nd, err := p.runDecl(ctx, d)
		if err != nil {
			logger.LogUnitComplete(len(decls), false)
			return nil, err
		}
		out[i] = nd
	}
	logger.LogUnitComplete(len(decls), true)
	return out, nil
}

func (p *Pipeline) runDecl(ctx *Context, d ir.Decl) (ir.Decl, error) {
	switch dd := d.(type) {
	case *ir.ActionDecl:
		body, err := p.runExpr(ctx, "<action>", dd.Body)
		if err != nil {
			return nil, err
		}
		return &ir.ActionDecl{Body: body}, nil
	case *ir.MemberDecl:
		return p.runMember(ctx, dd)
	case *ir.ClassDecl:
		cp := *dd
		if dd.Constructor != nil {
			ctor, err := p.runMember(ctx, dd.Constructor)
			if err != nil {
				return nil, err
			}
			cp.Constructor = ctor
		}
		if dd.BaseCall != nil {
			base, err := p.runExpr(ctx, dd.Entity.FullName+".base", dd.BaseCall)
			if err != nil {
				return nil, err
			}
			cp.BaseCall = base
		}
		cp.Members = make([]ir.MemberDecl, len(dd.Members))
		for i := range dd.Members {
			m, err := p.runMember(ctx, &dd.Members[i])
			if err != nil {
				return nil, err
			}
			cp.Members[i] = *m
		}
		return &cp, nil
	default:
		panic(fmt.Sprintf("optimizer: unhandled declaration variant %T", d))
	}
}

func (p *Pipeline) runMember(ctx *Context, m *ir.MemberDecl) (*ir.MemberDecl, error) {
	if ctx.Plugin != nil {
		if replaced := ctx.Plugin(m); replaced != nil {
			m = replaced
		}
	}
	body, err := p.runExpr(ctx, m.Name, m.Body)
	if err != nil {
		return nil, err
	}
	cp := *m
	cp.Body = body
	return &cp, nil
}

func (p *Pipeline) runExpr(ctx *Context, declName string, e ir.Expr) (ir.Expr, error) {
	ctx.decl = declName
	logger.LogDeclaration(declName)
	for _, pass := range p.passes {
		e = pass.Rewrite(ctx, e)
		if ctx.defect != nil {
			err := ctx.defect
			ctx.defect = nil
			logger.LogDefect(declName, pass.Name, err)
			return nil, err
		}
		logger.LogPass(pass.Name, declName)
	}
	return e, nil
}
