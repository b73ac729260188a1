package ir

// Decl is the declaration sum type produced by the front end. The
// optimizer rewrites declaration bodies and never mutates them in place.
type Decl interface{ decl() }

// ActionDecl is a top-level side-effecting statement.
type ActionDecl struct {
	Body Expr
}

// MemberInfo carries flags the emitter needs about a member.
type MemberInfo struct {
	IsValue  bool
	IsGetter bool
}

// MemberDecl is a named member with parameters and a body.
type MemberDecl struct {
	Name string
	Args []Ident
	Body Expr
	Info MemberInfo
}

// ClassDecl groups a constructor, an optional base-constructor call and
// attached members under a declared entity.
type ClassDecl struct {
	Entity      EntityRef
	Constructor *MemberDecl
	BaseCall    Expr
	Members     []MemberDecl
}

func (*ActionDecl) decl() {}
func (*MemberDecl) decl() {}
func (*ClassDecl) decl()  {}
