// Package diag defines the structured errors produced by every compiler stage.
// Rendering them for humans is left to the caller.
package diag

import (
	"fmt"
	"strings"

	"github.com/xplshn/yolc/pkg/token"
	"tlog.app/go/errors"
	"tlog.app/go/loc"
)

type Kind int

const (
	NoMainBlock Kind = iota
	DuplicateFieldDeclaration
	AssigningUndeclaredField
	AssigningConstant
	AssigningToParameter
	DuplicateDefinition
	DuplicateLabel
	UnknownLabel
	CallableNotFound
	IncorrectCallParameterCount
	RecursiveMacro
	TypeCheckFailed
	FieldTypeNotKnown
	ExpressionTypeInferenceFailed
	StaticTypeError
	FieldConstructorAssignment
	ConstructorExpression
	MissingConstructorMember
	UnknownConstructorMember
	ConstantNotFoldable
	NotImplemented
	ExplicitPanic
	Internal
	Parse
	IO
	ImportCycle
	ReservedFieldName
)

type Category int

const (
	Structural Category = iota
	Declaration
	Type
	Unsupported
	UserAuthored
	InternalError
	Input
)

var kindNames = [...]string{
	NoMainBlock:                   "no-main-block",
	DuplicateFieldDeclaration:     "duplicate-field",
	AssigningUndeclaredField:      "undeclared-field",
	AssigningConstant:             "assign-constant",
	AssigningToParameter:          "assign-parameter",
	DuplicateDefinition:           "duplicate-definition",
	DuplicateLabel:                "duplicate-label",
	UnknownLabel:                  "unknown-label",
	CallableNotFound:              "callable-not-found",
	IncorrectCallParameterCount:   "argument-count",
	RecursiveMacro:                "recursive-macro",
	TypeCheckFailed:               "type-mismatch",
	FieldTypeNotKnown:             "unknown-field-type",
	ExpressionTypeInferenceFailed: "inference-failed",
	StaticTypeError:               "static-type",
	FieldConstructorAssignment:    "constructor-target",
	ConstructorExpression:         "constructor-expression",
	MissingConstructorMember:      "missing-member",
	UnknownConstructorMember:      "unknown-member",
	ConstantNotFoldable:           "constant-not-foldable",
	NotImplemented:                "not-implemented",
	ExplicitPanic:                 "panic",
	Internal:                      "internal",
	Parse:                         "parse",
	IO:                            "io",
	ImportCycle:                   "import-cycle",
	ReservedFieldName:             "reserved-field",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Category groups kinds the way they are reported.
func (k Kind) Category() Category {
	switch k {
	case NoMainBlock:
		return Structural
	case DuplicateFieldDeclaration, AssigningUndeclaredField, AssigningConstant, AssigningToParameter,
		DuplicateDefinition, DuplicateLabel, UnknownLabel, CallableNotFound, IncorrectCallParameterCount, RecursiveMacro, ReservedFieldName:
		return Declaration
	case TypeCheckFailed, FieldTypeNotKnown, ExpressionTypeInferenceFailed, StaticTypeError,
		FieldConstructorAssignment, ConstructorExpression, ConstantNotFoldable:
		return Type
	case NotImplemented, MissingConstructorMember, UnknownConstructorMember:
		return Unsupported
	case ExplicitPanic:
		return UserAuthored
	case Parse, IO, ImportCycle:
		return Input
	default:
		return InternalError
	}
}

func (c Category) String() string {
	switch c {
	case Structural:
		return "structural"
	case Declaration:
		return "declaration"
	case Type:
		return "type"
	case Unsupported:
		return "unsupported"
	case UserAuthored:
		return "user"
	case Input:
		return "input"
	default:
		return "internal"
	}
}

// Error is a single compilation failure. Only the fields relevant to Kind are set.
type Error struct {
	Kind Kind
	Tok  token.Token

	Field      string
	Path       []string
	Callable   string
	TypeName   string
	Member     string
	Expected   int
	Actual     int
	To, From   string
	Expr       string
	Cause      string
	Suggestion string

	PC loc.PC
}

func (e *Error) Category() Category { return e.Kind.Category() }

func (e *Error) Error() string {
	var b strings.Builder

	switch e.Kind {
	case NoMainBlock:
		b.WriteString("no main block")
	case DuplicateFieldDeclaration:
		fmt.Fprintf(&b, "field `%s` is already declared", e.Field)
		if e.Cause != "" {
			fmt.Fprintf(&b, ": %s", e.Cause)
		}
	case ReservedFieldName:
		fmt.Fprintf(&b, "field `%s` uses the `_` prefix reserved for generated fields", e.Field)
	case AssigningUndeclaredField:
		fmt.Fprintf(&b, "assignment to undeclared field `%s`", e.pathString())
	case AssigningConstant:
		fmt.Fprintf(&b, "assignment to constant `%s`", e.Field)
	case AssigningToParameter:
		fmt.Fprintf(&b, "macro `%s` writes to parameter `%s` which is bound to %s", e.Callable, e.Field, e.Expr)
	case DuplicateDefinition:
		fmt.Fprintf(&b, "%s `%s` is defined more than once", e.Cause, e.Field)
	case DuplicateLabel:
		fmt.Fprintf(&b, "label `%s` is defined more than once", e.Field)
	case UnknownLabel:
		fmt.Fprintf(&b, "goto to undefined label `%s`", e.Field)
	case CallableNotFound:
		fmt.Fprintf(&b, "callable `%s` not found", e.Callable)
	case IncorrectCallParameterCount:
		fmt.Fprintf(&b, "`%s` expects %d arguments but was called with %d", e.Callable, e.Expected, e.Actual)
	case RecursiveMacro:
		fmt.Fprintf(&b, "macro `%s` expands into itself (%s)", e.Callable, e.Cause)
	case TypeCheckFailed:
		fmt.Fprintf(&b, "cannot use `%s` as `%s`", e.From, e.To)
	case FieldTypeNotKnown:
		fmt.Fprintf(&b, "type of field `%s` is not known", e.pathString())
	case ExpressionTypeInferenceFailed:
		fmt.Fprintf(&b, "cannot infer type of `%s`", e.Expr)
	case StaticTypeError:
		fmt.Fprintf(&b, "%s in `%s`", e.Cause, e.Expr)
	case FieldConstructorAssignment:
		fmt.Fprintf(&b, "cannot assign `%s` constructor to field `%s` of type `%s`", e.From, e.pathString(), e.To)
	case ConstructorExpression:
		fmt.Fprintf(&b, "constructor `%s` must be assigned directly to a field", e.TypeName)
	case MissingConstructorMember:
		fmt.Fprintf(&b, "`%s` constructor is missing member `%s`", e.TypeName, e.Member)
	case UnknownConstructorMember:
		fmt.Fprintf(&b, "`%s` constructor: %s member `%s`", e.TypeName, e.Cause, e.Member)
	case ConstantNotFoldable:
		fmt.Fprintf(&b, "constant `%s` is not a compile time value: %s", e.Field, e.Cause)
	case NotImplemented:
		fmt.Fprintf(&b, "not implemented: %s", e.Cause)
	case ExplicitPanic:
		fmt.Fprintf(&b, "panic: %s", e.Cause)
	case Internal:
		fmt.Fprintf(&b, "internal compiler error: %s", e.Cause)
		if e.PC != 0 {
			fmt.Fprintf(&b, " (at %v)", e.PC)
		}
	case ImportCycle:
		fmt.Fprintf(&b, "import cycle: %s", e.Cause)
	default:
		b.WriteString(e.Cause)
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "; did you mean `%s`?", e.Suggestion)
	}

	return b.String()
}

func (e *Error) pathString() string {
	if len(e.Path) == 0 {
		return e.Field
	}
	return strings.Join(e.Path, ".")
}

// Internalf reports a broken compiler invariant, recording who noticed it.
func Internalf(tok token.Token, format string, args ...interface{}) *Error {
	return &Error{Kind: Internal, Tok: tok, Cause: fmt.Sprintf(format, args...), PC: loc.Caller(1)}
}

func NotImplementedf(tok token.Token, format string, args ...interface{}) *Error {
	return &Error{Kind: NotImplemented, Tok: tok, Cause: fmt.Sprintf(format, args...)}
}

// As extracts the compiler error from a possibly wrapped chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries a compiler error of kind k.
func Is(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}
