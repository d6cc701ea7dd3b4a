// Package astutil renders DST type expressions as Go source as seen from another package.
package astutil

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dave/dst"
)

// BaseTypeName returns the bare name of a type expression, suitable for deriving identifiers.
// Pointers and package qualifiers are dropped ("*io.Reader" -> "Reader"). Composite types are
// flattened into a single identifier ("map[string]int" -> "MapStringInt"). The first letter is
// always upper-cased, so the result can be used inside exported names.
func BaseTypeName(expr dst.Expr) string {
	switch typedExpr := expr.(type) {
	case *dst.StarExpr:
		return BaseTypeName(typedExpr.X)
	case *dst.Ident:
		return upperFirst(typedExpr.Name)
	case *dst.SelectorExpr:
		return upperFirst(typedExpr.Sel.Name)
	case *dst.Ellipsis:
		return BaseTypeName(typedExpr.Elt)
	case *dst.IndexExpr:
		return BaseTypeName(typedExpr.X)
	case *dst.IndexListExpr:
		return BaseTypeName(typedExpr.X)
	case nil:
		return ""
	default:
		return Identifier(TypeString(expr, ""))
	}
}

// Identifier converts arbitrary type text into a Go identifier by dropping every non-identifier
// rune and upper-casing the rune that follows a dropped one.
func Identifier(text string) string {
	var buf strings.Builder

	upperNext := true

	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			upperNext = true
			continue
		}

		if upperNext {
			r = unicode.ToUpper(r)
			upperNext = false
		}

		buf.WriteRune(r)
	}

	out := buf.String()
	if out != "" && unicode.IsDigit(rune(out[0])) {
		out = "T" + out
	}

	return out
}

// IsBuiltinType reports whether name is one of Go's predeclared types.
func IsBuiltinType(name string) bool {
	switch name {
	case "any", "bool", "byte", "comparable", "complex64", "complex128",
		"error", "float32", "float64", "int",
		"int8", "int16", "int32", "int64",
		"rune", "string", "uint", "uint8",
		"uint16", "uint32", "uint64", "uintptr":
		return true
	}

	return false
}

// IsExportedIdent reports whether name starts with an upper-case letter.
func IsExportedIdent(name string) bool {
	if name == "" {
		return false
	}

	return unicode.IsUpper(rune(name[0]))
}

// TypeString renders a type expression as Go source. When qualifier is non-empty, exported
// identifiers declared in the source package are prefixed with it ("Config" -> "pkg.Config"),
// which is how the type must be spelled from the generated test package.
//
//nolint:cyclop // Type-switch dispatcher over the DST expression kinds
func TypeString(expr dst.Expr, qualifier string) string {
	switch typedExpr := expr.(type) {
	case nil:
		return ""
	case *dst.Ident:
		if qualifier != "" && IsExportedIdent(typedExpr.Name) && !IsBuiltinType(typedExpr.Name) {
			return qualifier + "." + typedExpr.Name
		}

		return typedExpr.Name
	case *dst.BasicLit:
		return typedExpr.Value
	case *dst.SelectorExpr:
		return TypeString(typedExpr.X, "") + "." + typedExpr.Sel.Name
	case *dst.StarExpr:
		return "*" + TypeString(typedExpr.X, qualifier)
	case *dst.ArrayType:
		if typedExpr.Len != nil {
			return "[" + TypeString(typedExpr.Len, "") + "]" + TypeString(typedExpr.Elt, qualifier)
		}

		return "[]" + TypeString(typedExpr.Elt, qualifier)
	case *dst.MapType:
		return "map[" + TypeString(typedExpr.Key, qualifier) + "]" + TypeString(typedExpr.Value, qualifier)
	case *dst.ChanType:
		return chanPrefix(typedExpr.Dir) + TypeString(typedExpr.Value, qualifier)
	case *dst.Ellipsis:
		return "..." + TypeString(typedExpr.Elt, qualifier)
	case *dst.FuncType:
		return "func" + funcSignature(typedExpr, qualifier)
	case *dst.InterfaceType:
		if typedExpr.Methods == nil || len(typedExpr.Methods.List) == 0 {
			return "interface{}"
		}

		return "interface{ " + joinFields(typedExpr.Methods.List, qualifier, "; ", true) + " }"
	case *dst.StructType:
		if typedExpr.Fields == nil || len(typedExpr.Fields.List) == 0 {
			return "struct{}"
		}

		return "struct{ " + joinFields(typedExpr.Fields.List, qualifier, "; ", false) + " }"
	case *dst.IndexExpr:
		return TypeString(typedExpr.X, qualifier) + "[" + TypeString(typedExpr.Index, qualifier) + "]"
	case *dst.IndexListExpr:
		indices := make([]string, len(typedExpr.Indices))
		for i, idx := range typedExpr.Indices {
			indices[i] = TypeString(idx, qualifier)
		}

		return TypeString(typedExpr.X, qualifier) + "[" + strings.Join(indices, ", ") + "]"
	case *dst.ParenExpr:
		return "(" + TypeString(typedExpr.X, qualifier) + ")"
	default:
		return fmt.Sprintf("%T", expr)
	}
}

func chanPrefix(dir dst.ChanDir) string {
	switch dir {
	case dst.SEND:
		return "chan<- "
	case dst.RECV:
		return "<-chan "
	default:
		return "chan "
	}
}

// funcSignature renders "(params) results" for a function type.
func funcSignature(funcType *dst.FuncType, qualifier string) string {
	var buf strings.Builder

	buf.WriteString("(")

	if funcType.Params != nil {
		buf.WriteString(joinFields(funcType.Params.List, qualifier, ", ", false))
	}

	buf.WriteString(")")

	if funcType.Results == nil || len(funcType.Results.List) == 0 {
		return buf.String()
	}

	results := joinFields(funcType.Results.List, qualifier, ", ", false)
	if len(funcType.Results.List) > 1 || len(funcType.Results.List[0].Names) > 0 {
		results = "(" + results + ")"
	}

	buf.WriteString(" ")
	buf.WriteString(results)

	return buf.String()
}

// joinFields renders a field list. Interface methods render as "Name(params) results".
func joinFields(fields []*dst.Field, qualifier, sep string, interfaceMethods bool) string {
	parts := make([]string, 0, len(fields))

	for _, field := range fields {
		names := make([]string, len(field.Names))
		for i, name := range field.Names {
			names[i] = name.Name
		}

		if funcType, ok := field.Type.(*dst.FuncType); ok && interfaceMethods && len(names) > 0 {
			parts = append(parts, names[0]+funcSignature(funcType, qualifier))
			continue
		}

		typeStr := TypeString(field.Type, qualifier)
		if len(names) > 0 {
			typeStr = strings.Join(names, ", ") + " " + typeStr
		}

		if field.Tag != nil {
			typeStr += " " + field.Tag.Value
		}

		parts = append(parts, typeStr)
	}

	return strings.Join(parts, sep)
}

func upperFirst(name string) string {
	if name == "" {
		return ""
	}

	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])

	return string(runes)
}
