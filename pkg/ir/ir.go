// Package ir implements the expression-tree intermediate representation.
//
// Design: a closed sum type of expression variants, owned children, no
// sharing. Nodes are never mutated after construction; every rewrite
// builds new nodes. Source ranges are carried for diagnostics only.
package ir

// SourceRange locates a node in the original source. It has no semantic
// meaning; passes may drop or merge ranges freely.
type SourceRange struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// MergeRanges spans from the start of the first non-nil range to the end
// of the last one. Returns nil if both are nil.
func MergeRanges(a, b *SourceRange) *SourceRange {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &SourceRange{
		File:      a.File,
		StartLine: a.StartLine,
		StartCol:  a.StartCol,
		EndLine:   b.EndLine,
		EndCol:    b.EndCol,
	}
}

// Ident is a named local: a binder in Let/LetRec/Lambda/Delegate/ForLoop
// or decision targets, and the payload of an IdentExpr reference.
// The front end guarantees names are unique per lexical scope.
type Ident struct {
	Name                string
	Type                Type
	IsMutable           bool
	IsCompilerGenerated bool
	Range               *SourceRange
}

// Expr is the expression sum type. All variants live in this file.
type Expr interface {
	expr()
	Loc() *SourceRange
}

// ExprBase carries the optional source range every variant embeds.
type ExprBase struct {
	Range *SourceRange
}

func (*ExprBase) expr() {}

func (n *ExprBase) Loc() *SourceRange { return n.Range }

// Unresolved is a placeholder left by the front end for expressions it
// could not resolve. The optimizer treats it as an opaque, possibly
// effectful leaf.
type Unresolved struct {
	ExprBase
}

// IdentExpr reads a local identifier.
type IdentExpr struct {
	ExprBase
	Ident Ident
}

// TypeCast reinterprets an expression at another static type.
type TypeCast struct {
	ExprBase
	Expr Expr
	Type Type
}

// Import references a value from another module. Compiler-generated
// imports point into the calyx runtime and are known effect-free.
type Import struct {
	ExprBase
	Selector            string
	Path                string
	Type                Type
	IsCompilerGenerated bool
}

// Value is a literal or constructed aggregate; the shape lives in Kind.
type Value struct {
	ExprBase
	Kind ValueKind
}

// ValueKind is the sub-sum of literal shapes.
type ValueKind interface{ valueKind() }

type UnitConstant struct{}

type BoolConstant struct{ Value bool }

type NumberConstant struct{ Value float64 }

type StringConstant struct{ Value string }

type CharConstant struct{ Value rune }

type RegexConstant struct {
	Source string
	Flags  string
}

// EnumConstant wraps the underlying constant of an enum case.
type EnumConstant struct {
	Value  Expr
	Entity EntityRef
}

type ThisValue struct{ Type Type }

type BaseValue struct{ Type Type }

type TypeInfo struct{ Type Type }

// NewOption builds an option; Value is nil for the empty case.
type NewOption struct {
	Value Expr
	Type  Type
}

type NewTuple struct{ Items []Expr }

type NewArray struct {
	Items []Expr
	Type  Type
}

// NewList is a cons cell; Head and Tail are both nil for the empty list.
type NewList struct {
	Head Expr
	Tail Expr
	Type Type
}

// NewRecord constructs a record; Fields are positional in the entity's
// declared field order.
type NewRecord struct {
	Fields []Expr
	Entity EntityRef
}

type NewAnonymousRecord struct {
	Fields     []Expr
	FieldNames []string
}

// NewUnion constructs a union case identified by Tag.
type NewUnion struct {
	Fields []Expr
	Tag    int
	Entity EntityRef
}

func (UnitConstant) valueKind()       {}
func (BoolConstant) valueKind()       {}
func (NumberConstant) valueKind()     {}
func (StringConstant) valueKind()     {}
func (CharConstant) valueKind()       {}
func (RegexConstant) valueKind()      {}
func (EnumConstant) valueKind()       {}
func (ThisValue) valueKind()          {}
func (BaseValue) valueKind()          {}
func (TypeInfo) valueKind()           {}
func (NewOption) valueKind()          {}
func (NewTuple) valueKind()           {}
func (NewArray) valueKind()           {}
func (NewList) valueKind()            {}
func (NewRecord) valueKind()          {}
func (NewAnonymousRecord) valueKind() {}
func (NewUnion) valueKind()           {}

// TypeTest checks at runtime whether Expr has type Type.
type TypeTest struct {
	ExprBase
	Expr Expr
	Type Type
}

// Curried tags a function-valued expression with its statically known
// call arity. Arity 0 means the arity is not statically known and any
// application must go through the runtime.
type Curried struct {
	ExprBase
	Expr  Expr
	Arity int
}

// Lambda is a single-argument function literal. Name, when non-empty,
// records a recoverable name for the function value.
type Lambda struct {
	ExprBase
	Arg  Ident
	Body Expr
	Name string
}

// Delegate is a multi-argument function literal.
type Delegate struct {
	ExprBase
	Args []Ident
	Body Expr
	Name string
}

// ObjectMember is one named member of an object literal.
type ObjectMember struct {
	Name     string
	Body     Expr
	IsGetter bool
}

// ObjectExpr is an object literal with ordered members and an optional
// base-object expression.
type ObjectExpr struct {
	ExprBase
	Members  []ObjectMember
	BaseCall Expr
}

// CallInfo carries call metadata from the front end. OptimizableInto
// marks a known safe object-construction idiom; see the side-effect
// analysis in the optimizer.
type CallInfo struct {
	OptimizableInto string
}

// Call is a direct, fully-applied call.
type Call struct {
	ExprBase
	Callee  Expr
	ThisArg Expr
	Args    []Expr
	Info    CallInfo
}

// CurriedApply applies a curried value to arguments one at a time.
type CurriedApply struct {
	ExprBase
	Applied Expr
	Args    []Expr
}

// Emit splices a target-language snippet with arguments; always treated
// as effectful.
type Emit struct {
	ExprBase
	Macro       string
	Args        []Expr
	IsStatement bool
}

type UnaryOp int

const (
	UnaryMinus UnaryOp = iota
	UnaryPlus
	UnaryNot
	UnaryBitwiseNot
)

type BinaryOp int

const (
	BinaryPlus BinaryOp = iota
	BinaryMinus
	BinaryMultiply
	BinaryDivide
	BinaryModulus
	BinaryEqual
	BinaryUnequal
	BinaryLess
	BinaryLessOrEqual
	BinaryGreater
	BinaryGreaterOrEqual
)

type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

type Unary struct {
	ExprBase
	Op      UnaryOp
	Operand Expr
}

type Binary struct {
	ExprBase
	Op    BinaryOp
	Left  Expr
	Right Expr
}

type Logical struct {
	ExprBase
	Op    LogicalOp
	Left  Expr
	Right Expr
}

// GetKind is the access-variant sub-sum shared by Get and Set.
type GetKind interface{ getKind() }

type ListHead struct{}

type ListTail struct{}

type OptionValue struct{}

type TupleIndex struct{ Index int }

type UnionTag struct{}

type UnionField struct {
	Entity     EntityRef
	CaseIndex  int
	FieldIndex int
}

// FieldGet reads a named field. IsMutable marks fields whose value can
// change between reads; the analyses treat such reads as effectful.
type FieldGet struct {
	Name      string
	IsMutable bool
}

// ExprGet is dynamic access through a computed key.
type ExprGet struct{ Key Expr }

func (ListHead) getKind()    {}
func (ListTail) getKind()    {}
func (OptionValue) getKind() {}
func (TupleIndex) getKind()  {}
func (UnionTag) getKind()    {}
func (UnionField) getKind()  {}
func (FieldGet) getKind()    {}
func (ExprGet) getKind()     {}

// Get reads a component of Expr selected by Kind.
type Get struct {
	ExprBase
	Expr Expr
	Kind GetKind
}

// Set writes Value into the component of Expr selected by Kind.
type Set struct {
	ExprBase
	Expr  Expr
	Kind  GetKind
	Value Expr
}

// Sequential evaluates Exprs in order, yielding the last.
type Sequential struct {
	ExprBase
	Exprs []Expr
}

// Let binds a single identifier in Body.
type Let struct {
	ExprBase
	Ident Ident
	Value Expr
	Body  Expr
}

// Binding is one ident/value pair of a LetRec.
type Binding struct {
	Ident Ident
	Value Expr
}

// LetRec binds mutually recursive identifiers in Body.
type LetRec struct {
	ExprBase
	Bindings []Binding
	Body     Expr
}

type IfThenElse struct {
	ExprBase
	Guard Expr
	Then  Expr
	Else  Expr
}

type WhileLoop struct {
	ExprBase
	Guard Expr
	Body  Expr
}

type ForLoop struct {
	ExprBase
	Ident Ident
	Start Expr
	Limit Expr
	Body  Expr
	IsUp  bool
}

// CatchClause handles an exception bound to Param.
type CatchClause struct {
	Param Ident
	Body  Expr
}

type TryCatch struct {
	ExprBase
	Body      Expr
	Catch     *CatchClause
	Finalizer Expr
}

// Target is one branch of a DecisionTree; Bound are the idents a
// matching DecisionTreeSuccess provides values for.
type Target struct {
	Bound []Ident
	Body  Expr
}

// DecisionTree dispatches on Expr over named Targets.
type DecisionTree struct {
	ExprBase
	Expr    Expr
	Targets []Target
}

// DecisionTreeSuccess jumps to a target with values for its bound idents.
type DecisionTreeSuccess struct {
	ExprBase
	TargetIndex int
	BoundValues []Expr
}
