// Static types consulted by the optimizer. The type checker has already
// run; these carry just enough structure for arity and field analysis.
package ir

type Type interface{ typ() }

type UnitType struct{}

type BoolType struct{}

type NumberType struct{}

type StringType struct{}

type CharType struct{}

type RegexType struct{}

// AnyType is a statically unknown type; analyses treat it conservatively.
type AnyType struct{}

type MetaType struct{}

type OptionType struct{ Inner Type }

type ArrayType struct{ Elem Type }

type ListType struct{ Elem Type }

type TupleType struct{ Items []Type }

// LambdaType is a curried function taking one argument.
type LambdaType struct {
	Arg    Type
	Return Type
}

// DelegateType is an uncurried function taking all arguments at once.
type DelegateType struct {
	Args   []Type
	Return Type
}

// DeclaredType references a named entity with type arguments.
type DeclaredType struct {
	Entity EntityRef
	Args   []Type
}

// AnonRecordType is a structural record; fields are ordered.
type AnonRecordType struct {
	FieldNames []string
	FieldTypes []Type
}

type GenericParam struct{ Name string }

type EnumType struct{ Entity EntityRef }

func (UnitType) typ()       {}
func (BoolType) typ()       {}
func (NumberType) typ()     {}
func (StringType) typ()     {}
func (CharType) typ()       {}
func (RegexType) typ()      {}
func (AnyType) typ()        {}
func (MetaType) typ()       {}
func (OptionType) typ()     {}
func (ArrayType) typ()      {}
func (ListType) typ()       {}
func (TupleType) typ()      {}
func (LambdaType) typ()     {}
func (DelegateType) typ()   {}
func (DeclaredType) typ()   {}
func (AnonRecordType) typ() {}
func (GenericParam) typ()   {}
func (EnumType) typ()       {}

// FunctionArity reports the number of arguments a value of type t takes
// when called: the length of a LambdaType chain, or the argument count
// of a DelegateType. Zero means t is not statically a function type.
func FunctionArity(t Type) int {
	switch ft := t.(type) {
	case LambdaType:
		n := 1
		ret := ft.Return
		for {
			inner, ok := ret.(LambdaType)
			if !ok {
				return n
			}
			n++
			ret = inner.Return
		}
	case DelegateType:
		return len(ft.Args)
	default:
		return 0
	}
}

// UncurriedParams flattens a function type into its parameter list.
func UncurriedParams(t Type) []Type {
	switch ft := t.(type) {
	case LambdaType:
		params := []Type{ft.Arg}
		ret := ft.Return
		for {
			inner, ok := ret.(LambdaType)
			if !ok {
				return params
			}
			params = append(params, inner.Arg)
			ret = inner.Return
		}
	case DelegateType:
		return ft.Args
	default:
		return nil
	}
}

// EntityRef names a declared entity; resolution goes through the
// compilation context so the optimizer never holds entity tables itself.
type EntityRef struct {
	FullName string
}

// Field is one declared field of a record or union case.
type Field struct {
	Name      string
	Type      Type
	IsMutable bool
}

// UnionCase is one case of a union entity.
type UnionCase struct {
	Name   string
	Fields []Field
}

// Entity is the front end's metadata for a declared type.
type Entity struct {
	Ref           EntityRef
	Fields        []Field
	Cases         []UnionCase
	GenericParams []string
	IsUnion       bool
}

// FieldByName finds a record field; ok is false if the entity has no
// field with that name.
func (e *Entity) FieldByName(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
