package generate

import (
	"github.com/dave/dst"
)

// DefaultValue returns the literal passed for a parameter of the given declared type. Only the
// 32-bit signed integers (int, int32 and its alias rune), string and bool have literals; every
// other type gets nil, and callers of the generated tests are expected to replace it.
func DefaultValue(paramType dst.Expr) string {
	ident, ok := paramType.(*dst.Ident)
	if !ok {
		return nilLiteral
	}

	switch ident.Name {
	case "int", "int32", "rune":
		return "0"
	case "string":
		return `""`
	case "bool":
		return "false"
	default:
		return nilLiteral
	}
}

// unexported constants.
const (
	nilLiteral = "nil"
)
