// Package types implements the type universe from spec §3: a closed,
// tagged variant over primitives, pointers, arrays, functions, and
// (parsed-but-inert) structs, plus the structural compatibility
// relation used by the type checker.
package types

import "fmt"

// Type is implemented by every member of the type universe. It is a
// sealed interface: the switch in Compatible and every other
// exhaustive consumer must be kept in sync with the variants below,
// per the design note in spec §9 preferring a sealed hierarchy over
// ad hoc type assertions.
type Type interface {
	isType()
	String() string
}

type Void struct{}
type Char struct{}
type Int struct{}
type Long struct{}

type Pointer struct{ Elem Type }

// Array is an element type plus an optional element count. A nil Size
// denotes an unsized array; SizeOf rejects these (spec §3).
type Array struct {
	Elem Type
	Size *int
}

type Function struct {
	Return   Type
	Params   []Type
	Variadic bool
}

type Field struct {
	Name string
	Type Type
}

// Struct carries a name and ordered field list. Structs are parsed but
// cannot be used in expressions (spec Non-goals: field access via `.`
// or `->` is rejected at parse/codegen time, not here).
type Struct struct {
	Name   string
	Fields []Field
}

func (Void) isType()     {}
func (Char) isType()     {}
func (Int) isType()      {}
func (Long) isType()     {}
func (Pointer) isType()  {}
func (Array) isType()    {}
func (Function) isType() {}
func (Struct) isType()   {}

func (Void) String() string { return "void" }
func (Char) String() string { return "char" }
func (Int) String() string  { return "int" }
func (Long) String() string { return "long" }

func (p Pointer) String() string { return p.Elem.String() + "*" }

func (a Array) String() string {
	if a.Size == nil {
		return a.Elem.String() + "[]"
	}
	return fmt.Sprintf("%s[%d]", a.Elem.String(), *a.Size)
}

func (f Function) String() string {
	s := f.Return.String() + "("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	if f.Variadic {
		if len(f.Params) > 0 {
			s += ", "
		}
		s += "..."
	}
	return s + ")"
}

func (s Struct) String() string { return "struct " + s.Name }

// IsInteger reports whether t is one of Char, Int, Long.
func IsInteger(t Type) bool {
	switch t.(type) {
	case Char, Int, Long:
		return true
	default:
		return false
	}
}

// IsPointerLike reports whether t is a Pointer or an Array (arrays
// decay to pointers for compatibility and dereference purposes).
func IsPointerLike(t Type) bool {
	switch t.(type) {
	case Pointer, Array:
		return true
	default:
		return false
	}
}

// Decay returns t with arrays turned into pointers to their element
// type, as in spec §4.4 "arrays decay to pointers for this purpose".
func Decay(t Type) Type {
	if a, ok := t.(Array); ok {
		return Pointer{Elem: a.Elem}
	}
	return t
}

// ElemType returns the pointee/element type of a Pointer or Array, and
// false for any other type.
func ElemType(t Type) (Type, bool) {
	switch v := t.(type) {
	case Pointer:
		return v.Elem, true
	case Array:
		return v.Elem, true
	default:
		return nil, false
	}
}

// Compatible implements the structural relation from spec §4.4:
//   - identical primitives are compatible;
//   - Char/Int/Long are mutually compatible (implicit conversion);
//   - Pointer(A) ~ Pointer(B) iff A ~ B; arrays decay first;
//   - functions are compatible iff return types, arity, variadic flag,
//     and parameters are pairwise compatible.
func Compatible(a, b Type) bool {
	a, b = Decay(a), Decay(b)

	if IsInteger(a) && IsInteger(b) {
		return true
	}

	switch av := a.(type) {
	case Void:
		_, ok := b.(Void)
		return ok
	case Pointer:
		bv, ok := b.(Pointer)
		return ok && Compatible(av.Elem, bv.Elem)
	case Function:
		bv, ok := b.(Function)
		if !ok {
			return false
		}
		if av.Variadic != bv.Variadic || len(av.Params) != len(bv.Params) {
			return false
		}
		if !Compatible(av.Return, bv.Return) {
			return false
		}
		for i := range av.Params {
			if !Compatible(av.Params[i], bv.Params[i]) {
				return false
			}
		}
		return true
	case Struct:
		bv, ok := b.(Struct)
		return ok && av.Name == bv.Name
	default:
		return false
	}
}

// SizeOf returns a type's size in bytes, per spec §3/§4.5. It panics
// on an unsized array. The parser accepts `int a[];` with a nil Size;
// codegen's global layout reports an error for such a variable instead
// of calling SizeOf.
func SizeOf(t Type) int {
	switch v := t.(type) {
	case Void:
		return 0
	case Char:
		return 1
	case Int:
		return 4
	case Long, Pointer, Function:
		return 8
	case Array:
		if v.Size == nil {
			panic("SizeOf: unsized array")
		}
		return SizeOf(v.Elem) * (*v.Size)
	case Struct:
		total := 0
		for _, f := range v.Fields {
			total += SizeOf(f.Type)
		}
		return total
	default:
		panic(fmt.Sprintf("SizeOf: unhandled type %T", t))
	}
}

// AlignOf returns the natural alignment used for local-variable stack
// placement, per spec §4.5: 1 for char, 4 for int, 8 for everything
// else (long, pointer, array, struct).
func AlignOf(t Type) int {
	switch t.(type) {
	case Char:
		return 1
	case Int:
		return 4
	default:
		return 8
	}
}

// AlignUp rounds n up to the given alignment.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
