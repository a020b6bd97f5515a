// Package value implements the NaN-boxed 64-bit tagged value representation
// shared by the compiler and the interpreter.
package value

import "math"

// Value is a NaN-boxed 64-bit tagged value. If the bit pattern does not
// match the quiet-NaN-with-sign-or-tag prefix, it is a plain IEEE-754
// double. Otherwise the low bits carry a pointer, a primitive tag, or are
// reserved.
//
// Layout (mirrors the reference implementation's value.h):
//
//	sign(1) exponent(11, all 1) quiet(1) ...payload(51)...
//
// A "tagged" value always has bits 48-62 equal to nanExpQuiet. Two
// further bits select the variety:
//   - the sign bit (bit 63) set marks a heap pointer, payload in bits 0-47
//   - primFlag (bit 15) set with sign bit clear marks a primitive, tag in
//     bits 0-1
//
// Any other combination is reserved and never produced by this package.
type Value uint64

const (
	nanExpQuiet uint64 = 0x7FFC000000000000
	signBit     uint64 = 1 << 63
	primFlag    uint64 = 1 << 15
	ptrPayload  uint64 = (1 << 48) - 1
	tagMask     uint64 = 0x3
)

// Primitive tags, packed into the low two bits when primFlag is set. Bit 0
// of the tag is the "comparably false" discriminant: it is 0 for nil and
// false, 1 for true, so truthiness of a primitive never needs a switch.
const (
	tagNil   uint64 = 0b00
	tagFalse uint64 = 0b10
	tagTrue  uint64 = 0b11
)

var (
	// Nil is the language's absence-of-value primitive.
	Nil = Value(nanExpQuiet | primFlag | tagNil)
	// False is the boolean false primitive.
	False = Value(nanExpQuiet | primFlag | tagFalse)
	// True is the boolean true primitive.
	True = Value(nanExpQuiet | primFlag | tagTrue)
)

func isTagged(bits uint64) bool {
	return bits&nanExpQuiet == nanExpQuiet
}

// IsFloat reports whether v holds a plain IEEE-754 double, including NaN
// and the infinities. Any bit pattern that is not one of this package's
// tagged forms is a float by construction.
func (v Value) IsFloat() bool {
	bits := uint64(v)
	if !isTagged(bits) {
		return true
	}
	if bits&signBit != 0 {
		return false // pointer
	}
	if bits&primFlag != 0 {
		return false // primitive
	}
	// Tagged-looking bits that are neither pointer nor primitive: this
	// only happens for genuine NaN payloads that happen to collide with
	// our reserved space, which we treat as ordinary floats.
	return true
}

// IsPtr reports whether v is a heap object pointer.
func (v Value) IsPtr() bool {
	bits := uint64(v)
	return isTagged(bits) && bits&signBit != 0
}

// IsPrim reports whether v is one of nil, false, or true.
func (v Value) IsPrim() bool {
	bits := uint64(v)
	return isTagged(bits) && bits&signBit == 0 && bits&primFlag != 0
}

// IsNil reports whether v is exactly Nil.
func (v Value) IsNil() bool { return v == Nil }

// IsFalse reports whether v is exactly False.
func (v Value) IsFalse() bool { return v == False }

// IsTrue reports whether v is exactly True.
func (v Value) IsTrue() bool { return v == True }

// IsBool reports whether v is False or True.
func (v Value) IsBool() bool { return v == False || v == True }

// IsTruthy reports whether v counts as true in a boolean context: every
// value except nil and false.
func (v Value) IsTruthy() bool { return v != Nil && v != False }

// IsFalsy is the negation of IsTruthy.
func (v Value) IsFalsy() bool { return v == Nil || v == False }

// Float64 reinterprets v's bits as a float64. Callers must have checked
// IsFloat first; this performs no tag check.
func (v Value) Float64() float64 {
	return math.Float64frombits(uint64(v))
}

// FromFloat64 boxes a float64 as a Value.
func FromFloat64(f float64) Value {
	return Value(math.Float64bits(f))
}

// Bool boxes a Go bool as True or False.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

// TypeName returns the static type name used in runtime error messages.
func (v Value) TypeName() string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBool():
		return "boolean"
	case v.IsPtr():
		switch v.ObjectKind() {
		case KindString:
			return "string"
		case KindFunctionProto:
			return "function"
		default:
			return "object"
		}
	case v.IsFloat():
		if math.IsNaN(v.Float64()) {
			return "NaN"
		}
		return "number"
	default:
		return "object"
	}
}
