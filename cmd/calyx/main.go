// Package main implements the calyx compiler driver.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/calyxlang/calyx-compiler/pkg/config"
	"github.com/calyxlang/calyx-compiler/pkg/ir"
	"github.com/calyxlang/calyx-compiler/pkg/logger"
	"github.com/calyxlang/calyx-compiler/pkg/optimizer"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "passes":
		passes()
	case "selfcheck":
		selfcheck(os.Args[2:])
	case "version":
		fmt.Printf("calyx compiler version %s\n", version)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Calyx Compiler - optimization pipeline driver

Usage:
    calyx passes                 List optimization passes in execution order
    calyx selfcheck [flags]      Run the pipeline over built-in declarations
    calyx version                Show compiler version
    calyx help                   Show this help message

Selfcheck flags:
    -config <file>  Configuration file (default: calyx.yml if present)
    -O <level>      Optimization level (0-3, overrides config)
    -debug          Debug logging`)
}

func passes() {
	for i, name := range optimizer.NewPipeline().PassNames() {
		fmt.Printf("%d. %s\n", i+1, name)
	}
}

func selfcheck(args []string) {
	fs := flag.NewFlagSet("selfcheck", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file")
	level := fs.Int("O", -1, "optimization level override")
	debug := fs.Bool("debug", false, "debug logging")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *level >= 0 {
		cfg.Optimize.Level = *level
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.Log.Level)
	logCfg.Format = cfg.Log.Format
	if *debug {
		logCfg.Level = logger.LevelDebug
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx := &optimizer.Context{Options: optimizer.Options{
		Level:                cfg.Optimize.Level,
		PreserveUserBindings: cfg.Optimize.PreserveUserBindings,
	}}
	decls := sampleDecls()

	logger.LogPhase("optimize")
	optimized, err := optimizer.Optimize(ctx, decls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger.LogPhaseComplete("optimize")

	for i := range decls {
		fmt.Printf("declaration %d\n", i+1)
		fmt.Printf("  before: %s\n", ir.String(declBody(decls[i])))
		fmt.Printf("  after:  %s\n", ir.String(declBody(optimized[i])))
	}
}

func declBody(d ir.Decl) ir.Expr {
	switch dd := d.(type) {
	case *ir.ActionDecl:
		return dd.Body
	case *ir.MemberDecl:
		return dd.Body
	default:
		return &ir.Unresolved{}
	}
}

// sampleDecls builds small declarations that exercise binding erasure,
// call reduction, string folding and arity resolution.
func sampleDecls() []ir.Decl {
	num := func(v float64) ir.Expr {
		return &ir.Value{Kind: ir.NumberConstant{Value: v}}
	}
	str := func(s string) ir.Expr {
		return &ir.Value{Kind: ir.StringConstant{Value: s}}
	}
	genIdent := func(name string, t ir.Type) ir.Ident {
		return ir.Ident{Name: name, Type: t, IsCompilerGenerated: true}
	}
	ref := func(id ir.Ident) ir.Expr {
		return &ir.IdentExpr{Ident: id}
	}

	// bind x = 1 + 2 in x + 1
	x := genIdent("x", ir.NumberType{})
	bindSample := &ir.ActionDecl{Body: &ir.Let{
		Ident: x,
		Value: &ir.Binary{Op: ir.BinaryPlus, Left: num(1), Right: num(2)},
		Body:  &ir.Binary{Op: ir.BinaryPlus, Left: ref(x), Right: num(1)},
	}}

	// "foo" + "bar"
	foldSample := &ir.ActionDecl{Body: &ir.Binary{
		Op: ir.BinaryPlus, Left: str("foo"), Right: str("bar"),
	}}

	// bind f : num -> num -> num -> num = <import> in f 1 2 3
	arity3 := ir.LambdaType{Arg: ir.NumberType{}, Return: ir.LambdaType{
		Arg: ir.NumberType{}, Return: ir.LambdaType{
			Arg: ir.NumberType{}, Return: ir.NumberType{},
		},
	}}
	f := ir.Ident{Name: "f", Type: arity3}
	applySample := &ir.MemberDecl{
		Name: "sample/applyThree",
		Body: &ir.Let{
			Ident: f,
			Value: &ir.Import{Selector: "add3", Path: "sample/lib", Type: arity3},
			Body:  &ir.CurriedApply{Applied: ref(f), Args: []ir.Expr{num(1), num(2), num(3)}},
		},
	}

	return []ir.Decl{bindSample, foldSample, applySample}
}
