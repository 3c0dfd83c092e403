// Package rtype defines the semantic type lattice (spec.md §3's TypeInfo)
// shared by the Symbol Source contract, the Type Inferencer, and the
// Emitter. It is split out from typeinfer so that the Symbol Source can
// describe parameter/return/global types without importing the inference
// engine itself.
package rtype

// Kind tags the variant held by a Type.
type Kind int

const (
	Void Kind = iota
	Int
	Float
	Pointer
	Unknown
)

// Type is a tagged-variant type: Int carries Signed/Width, Float carries
// Width, Pointer carries a Pointee. Void and Unknown carry nothing.
type Type struct {
	Kind    Kind
	Signed  bool
	Width   int // 8,16,32,64 for Int; 32,64 for Float
	Pointee *Type
}

// VoidT, UnknownT and the common integer/float types, for convenient reuse.
var (
	VoidT    = Type{Kind: Void}
	UnknownT = Type{Kind: Unknown}
	I8       = Type{Kind: Int, Signed: true, Width: 8}
	U8       = Type{Kind: Int, Signed: false, Width: 8}
	I16      = Type{Kind: Int, Signed: true, Width: 16}
	U16      = Type{Kind: Int, Signed: false, Width: 16}
	I32      = Type{Kind: Int, Signed: true, Width: 32}
	U32      = Type{Kind: Int, Signed: false, Width: 32}
	F32      = Type{Kind: Float, Width: 32}
	F64      = Type{Kind: Float, Width: 64}
)

// PointerTo builds a Pointer{pointee}.
func PointerTo(pointee Type) Type {
	return Type{Kind: Pointer, Pointee: &pointee}
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Int:
		return t.Signed == o.Signed && t.Width == o.Width
	case Float:
		return t.Width == o.Width
	case Pointer:
		if t.Pointee == nil || o.Pointee == nil {
			return t.Pointee == o.Pointee
		}
		return t.Pointee.Equal(*o.Pointee)
	default:
		return true
	}
}

func (t Type) String() string {
	switch t.Kind {
	case Void:
		return "void"
	case Unknown:
		return "unknown"
	case Int:
		sign := "i"
		if !t.Signed {
			sign = "u"
		}
		return sign + itoa(t.Width)
	case Float:
		return "f" + itoa(t.Width)
	case Pointer:
		if t.Pointee == nil {
			return "*unknown"
		}
		return "*" + t.Pointee.String()
	default:
		return "?"
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}

// Unify widens two types meeting at a def/use boundary. Equal types unify to
// themselves; Void yields the other type; Int unified with Pointer widens
// to Pointer only when the caller indicates the register feeds a load/store
// base (asPointerContext), else stays Int; two Ints widen to the larger
// width, signed only if both are; anything else that disagrees (including
// Unknown on either side) collapses to Unknown. This implements
// spec.md §4.5's unification rule.
func Unify(a, b Type, asPointerContext bool) Type {
	if a.Equal(b) {
		return a
	}
	if a.Kind == Unknown || b.Kind == Unknown {
		return UnknownT
	}
	if a.Kind == Void {
		return b
	}
	if b.Kind == Void {
		return a
	}
	if a.Kind == Int && b.Kind == Pointer {
		if asPointerContext {
			return b
		}
		return a
	}
	if b.Kind == Int && a.Kind == Pointer {
		if asPointerContext {
			return a
		}
		return b
	}
	if a.Kind == Int && b.Kind == Int {
		width := a.Width
		if b.Width > width {
			width = b.Width
		}
		return Type{Kind: Int, Signed: a.Signed && b.Signed, Width: width}
	}
	// Int/Float collision at the same width, or any other mismatch.
	return UnknownT
}
