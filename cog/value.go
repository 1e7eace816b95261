package cog

import (
	"fmt"
	"strings"
)

// Value is a decoded tag value. The concrete type mirrors the on-disk tag
// type; multi-valued entries decode to a List, except ASCII entries which
// decode to a single Ascii string regardless of count.
type Value interface {
	fmt.Stringer
	isValue()
}

// Byte is an unsigned 8-bit value.
type Byte uint8

// SByte is a signed 8-bit value.
type SByte int8

// Undefined is a raw byte with no declared interpretation.
type Undefined uint8

// Short is an unsigned 16-bit value.
type Short uint16

// SShort is a signed 16-bit value.
type SShort int16

// Long is an unsigned 32-bit value.
type Long uint32

// SLong is a signed 32-bit value.
type SLong int32

// Long8 is an unsigned 64-bit value.
type Long8 uint64

// SLong8 is a signed 64-bit value.
type SLong8 int64

// Float is a 32-bit IEEE 754 value.
type Float float32

// Double is a 64-bit IEEE 754 value.
type Double float64

// Ascii is a NUL-terminated string with the terminator removed.
type Ascii string

// Rational is an unsigned fraction.
type Rational struct {
	Num, Den uint32
}

// SRational is a signed fraction.
type SRational struct {
	Num, Den int32
}

// List is a homogeneous sequence of values.
type List []Value

func (Byte) isValue()      {}
func (SByte) isValue()     {}
func (Undefined) isValue() {}
func (Short) isValue()     {}
func (SShort) isValue()    {}
func (Long) isValue()      {}
func (SLong) isValue()     {}
func (Long8) isValue()     {}
func (SLong8) isValue()    {}
func (Float) isValue()     {}
func (Double) isValue()    {}
func (Ascii) isValue()     {}
func (Rational) isValue()  {}
func (SRational) isValue() {}
func (List) isValue()      {}

func (v Byte) String() string      { return fmt.Sprintf("%d", uint8(v)) }
func (v SByte) String() string     { return fmt.Sprintf("%d", int8(v)) }
func (v Undefined) String() string { return fmt.Sprintf("0x%02x", uint8(v)) }
func (v Short) String() string     { return fmt.Sprintf("%d", uint16(v)) }
func (v SShort) String() string    { return fmt.Sprintf("%d", int16(v)) }
func (v Long) String() string      { return fmt.Sprintf("%d", uint32(v)) }
func (v SLong) String() string     { return fmt.Sprintf("%d", int32(v)) }
func (v Long8) String() string     { return fmt.Sprintf("%d", uint64(v)) }
func (v SLong8) String() string    { return fmt.Sprintf("%d", int64(v)) }
func (v Float) String() string     { return fmt.Sprintf("%g", float32(v)) }
func (v Double) String() string    { return fmt.Sprintf("%g", float64(v)) }
func (v Ascii) String() string     { return fmt.Sprintf("%q", string(v)) }

func (v Rational) String() string {
	return fmt.Sprintf("%d/%d", v.Num, v.Den)
}

func (v SRational) String() string {
	return fmt.Sprintf("%d/%d", v.Num, v.Den)
}

func (v List) String() string {
	parts := make([]string, len(v))
	for i, item := range v {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
