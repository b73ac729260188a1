package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders a compact, single-line form of the tree for logs and
// test failure messages. Not a serialization format.
func String(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch x := e.(type) {
	case *Unresolved:
		sb.WriteString("<unresolved>")
	case *IdentExpr:
		sb.WriteString(x.Ident.Name)
	case *TypeCast:
		sb.WriteString("(cast ")
		writeExpr(sb, x.Expr)
		sb.WriteByte(')')
	case *Import:
		fmt.Fprintf(sb, "(import %s:%s)", x.Path, x.Selector)
	case *Value:
		writeValue(sb, x.Kind)
	case *TypeTest:
		sb.WriteString("(is? ")
		writeExpr(sb, x.Expr)
		sb.WriteByte(')')
	case *Curried:
		fmt.Fprintf(sb, "(curried/%d ", x.Arity)
		writeExpr(sb, x.Expr)
		sb.WriteByte(')')
	case *Lambda:
		fmt.Fprintf(sb, "(fn %s -> ", x.Arg.Name)
		writeExpr(sb, x.Body)
		sb.WriteByte(')')
	case *Delegate:
		names := make([]string, len(x.Args))
		for i, a := range x.Args {
			names[i] = a.Name
		}
		fmt.Fprintf(sb, "(fn* (%s) -> ", strings.Join(names, " "))
		writeExpr(sb, x.Body)
		sb.WriteByte(')')
	case *ObjectExpr:
		sb.WriteString("(object")
		for _, m := range x.Members {
			sb.WriteByte(' ')
			sb.WriteString(m.Name)
			sb.WriteByte('=')
			writeExpr(sb, m.Body)
		}
		sb.WriteByte(')')
	case *Call:
		sb.WriteString("(call ")
		writeExpr(sb, x.Callee)
		if x.ThisArg != nil {
			sb.WriteString(" this=")
			writeExpr(sb, x.ThisArg)
		}
		writeArgs(sb, x.Args)
		sb.WriteByte(')')
	case *CurriedApply:
		sb.WriteString("(apply ")
		writeExpr(sb, x.Applied)
		writeArgs(sb, x.Args)
		sb.WriteByte(')')
	case *Emit:
		fmt.Fprintf(sb, "(emit %q", x.Macro)
		writeArgs(sb, x.Args)
		sb.WriteByte(')')
	case *Unary:
		sb.WriteString("(unary ")
		writeExpr(sb, x.Operand)
		sb.WriteByte(')')
	case *Binary:
		fmt.Fprintf(sb, "(%s ", binaryOpNames[x.Op])
		writeExpr(sb, x.Left)
		sb.WriteByte(' ')
		writeExpr(sb, x.Right)
		sb.WriteByte(')')
	case *Logical:
		op := "and"
		if x.Op == LogicalOr {
			op = "or"
		}
		fmt.Fprintf(sb, "(%s ", op)
		writeExpr(sb, x.Left)
		sb.WriteByte(' ')
		writeExpr(sb, x.Right)
		sb.WriteByte(')')
	case *Get:
		fmt.Fprintf(sb, "(get %s ", getKindName(x.Kind))
		writeExpr(sb, x.Expr)
		if k, ok := x.Kind.(ExprGet); ok {
			sb.WriteByte(' ')
			writeExpr(sb, k.Key)
		}
		sb.WriteByte(')')
	case *Set:
		fmt.Fprintf(sb, "(set %s ", getKindName(x.Kind))
		writeExpr(sb, x.Expr)
		if k, ok := x.Kind.(ExprGet); ok {
			sb.WriteByte(' ')
			writeExpr(sb, k.Key)
		}
		sb.WriteString(" <- ")
		writeExpr(sb, x.Value)
		sb.WriteByte(')')
	case *Sequential:
		sb.WriteString("(seq")
		writeArgs(sb, x.Exprs)
		sb.WriteByte(')')
	case *Let:
		fmt.Fprintf(sb, "(let %s = ", x.Ident.Name)
		writeExpr(sb, x.Value)
		sb.WriteString(" in ")
		writeExpr(sb, x.Body)
		sb.WriteByte(')')
	case *LetRec:
		sb.WriteString("(letrec")
		for _, b := range x.Bindings {
			fmt.Fprintf(sb, " %s = ", b.Ident.Name)
			writeExpr(sb, b.Value)
		}
		sb.WriteString(" in ")
		writeExpr(sb, x.Body)
		sb.WriteByte(')')
	case *IfThenElse:
		sb.WriteString("(if ")
		writeExpr(sb, x.Guard)
		sb.WriteByte(' ')
		writeExpr(sb, x.Then)
		sb.WriteByte(' ')
		writeExpr(sb, x.Else)
		sb.WriteByte(')')
	case *WhileLoop:
		sb.WriteString("(while ")
		writeExpr(sb, x.Guard)
		sb.WriteByte(' ')
		writeExpr(sb, x.Body)
		sb.WriteByte(')')
	case *ForLoop:
		fmt.Fprintf(sb, "(for %s = ", x.Ident.Name)
		writeExpr(sb, x.Start)
		sb.WriteString(" to ")
		writeExpr(sb, x.Limit)
		sb.WriteByte(' ')
		writeExpr(sb, x.Body)
		sb.WriteByte(')')
	case *TryCatch:
		sb.WriteString("(try ")
		writeExpr(sb, x.Body)
		if x.Catch != nil {
			fmt.Fprintf(sb, " catch %s ", x.Catch.Param.Name)
			writeExpr(sb, x.Catch.Body)
		}
		if x.Finalizer != nil {
			sb.WriteString(" finally ")
			writeExpr(sb, x.Finalizer)
		}
		sb.WriteByte(')')
	case *DecisionTree:
		sb.WriteString("(decide ")
		writeExpr(sb, x.Expr)
		for i, t := range x.Targets {
			fmt.Fprintf(sb, " [%d]", i)
			writeExpr(sb, t.Body)
		}
		sb.WriteByte(')')
	case *DecisionTreeSuccess:
		fmt.Fprintf(sb, "(success %d", x.TargetIndex)
		writeArgs(sb, x.BoundValues)
		sb.WriteByte(')')
	default:
		panic(unhandled(e))
	}
}

var binaryOpNames = map[BinaryOp]string{
	BinaryPlus:           "+",
	BinaryMinus:          "-",
	BinaryMultiply:       "*",
	BinaryDivide:         "/",
	BinaryModulus:        "%",
	BinaryEqual:          "==",
	BinaryUnequal:        "!=",
	BinaryLess:           "<",
	BinaryLessOrEqual:    "<=",
	BinaryGreater:        ">",
	BinaryGreaterOrEqual: ">=",
}

func writeArgs(sb *strings.Builder, args []Expr) {
	for _, a := range args {
		sb.WriteByte(' ')
		writeExpr(sb, a)
	}
}

func writeValue(sb *strings.Builder, k ValueKind) {
	switch v := k.(type) {
	case UnitConstant:
		sb.WriteString("unit")
	case BoolConstant:
		sb.WriteString(strconv.FormatBool(v.Value))
	case NumberConstant:
		sb.WriteString(strconv.FormatFloat(v.Value, 'g', -1, 64))
	case StringConstant:
		fmt.Fprintf(sb, "%q", v.Value)
	case CharConstant:
		fmt.Fprintf(sb, "%q", string(v.Value))
	case RegexConstant:
		fmt.Fprintf(sb, "/%s/%s", v.Source, v.Flags)
	case EnumConstant:
		sb.WriteString("(enum ")
		writeExpr(sb, v.Value)
		sb.WriteByte(')')
	case ThisValue:
		sb.WriteString("this")
	case BaseValue:
		sb.WriteString("base")
	case TypeInfo:
		sb.WriteString("<typeinfo>")
	case NewOption:
		if v.Value == nil {
			sb.WriteString("none")
		} else {
			sb.WriteString("(some ")
			writeExpr(sb, v.Value)
			sb.WriteByte(')')
		}
	case NewTuple:
		sb.WriteString("(tuple")
		writeArgs(sb, v.Items)
		sb.WriteByte(')')
	case NewArray:
		sb.WriteString("(array")
		writeArgs(sb, v.Items)
		sb.WriteByte(')')
	case NewList:
		if v.Head == nil {
			sb.WriteString("nil")
		} else {
			sb.WriteString("(cons ")
			writeExpr(sb, v.Head)
			sb.WriteByte(' ')
			writeExpr(sb, v.Tail)
			sb.WriteByte(')')
		}
	case NewRecord:
		fmt.Fprintf(sb, "(record %s", v.Entity.FullName)
		writeArgs(sb, v.Fields)
		sb.WriteByte(')')
	case NewAnonymousRecord:
		sb.WriteString("(anon-record")
		for i, f := range v.Fields {
			sb.WriteByte(' ')
			if i < len(v.FieldNames) {
				sb.WriteString(v.FieldNames[i])
				sb.WriteByte('=')
			}
			writeExpr(sb, f)
		}
		sb.WriteByte(')')
	case NewUnion:
		fmt.Fprintf(sb, "(union %s/%d", v.Entity.FullName, v.Tag)
		writeArgs(sb, v.Fields)
		sb.WriteByte(')')
	default:
		panic(fmt.Sprintf("ir: unhandled value kind %T", k))
	}
}

func getKindName(k GetKind) string {
	switch kk := k.(type) {
	case ListHead:
		return "head"
	case ListTail:
		return "tail"
	case OptionValue:
		return "option-value"
	case TupleIndex:
		return "tuple." + strconv.Itoa(kk.Index)
	case UnionTag:
		return "union-tag"
	case UnionField:
		return "union-field." + strconv.Itoa(kk.FieldIndex)
	case FieldGet:
		return "field." + kk.Name
	case ExprGet:
		return "expr-key"
	default:
		panic(fmt.Sprintf("ir: unhandled access kind %T", k))
	}
}
