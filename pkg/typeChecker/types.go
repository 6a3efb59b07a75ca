package typeChecker

import (
	"github.com/xplshn/yolc/pkg/diag"
	"github.com/xplshn/yolc/pkg/token"
)

type Kind int

const (
	Num Kind = iota
	Str
	Bool
	Any
	Other
)

// Type is a canonical type. Name is set only for Other.
type Type struct {
	Kind Kind
	Name string
}

var (
	TypeNum  = Type{Kind: Num}
	TypeStr  = Type{Kind: Str}
	TypeBool = Type{Kind: Bool}
	TypeAny  = Type{Kind: Any}
)

func TypeOther(name string) Type { return Type{Kind: Other, Name: name} }

// Canonicalize maps a raw type name to its canonical type. It is total:
// anything that is not a built-in name is an opaque Other.
func Canonicalize(typeName string) Type {
	switch typeName {
	case "number": return TypeNum
	case "string": return TypeStr
	case "bool": return TypeBool
	case "any": return TypeAny
	default: return TypeOther(typeName)
	}
}

// String gives the source spelling, so Canonicalize(t.String()) == t.
func (t Type) String() string {
	switch t.Kind {
	case Num: return "number"
	case Str: return "string"
	case Bool: return "bool"
	case Any: return "any"
	default: return t.Name
	}
}

// Compatible reports whether a value of type from may be stored in a field of type to.
func Compatible(to, from Type) bool {
	switch {
	case to.Kind == Any:
		return true
	case from.Kind == Any:
		return false
	case to.Kind == Num:
		return from.Kind == Num || from.Kind == Bool
	case to.Kind == Other:
		return from.Kind == Other && from.Name == to.Name
	default:
		return to.Kind == from.Kind
	}
}

// CheckAssignment is Compatible as an error naming both types.
func CheckAssignment(tok token.Token, to, from Type) error {
	if Compatible(to, from) {
		return nil
	}
	return &diag.Error{Kind: diag.TypeCheckFailed, Tok: tok, To: to.String(), From: from.String()}
}
