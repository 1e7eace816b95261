package cog

import "fmt"

// TagType is the on-disk field type of a directory entry.
type TagType uint16

// Tag field types. Codes 1-12 are classic TIFF, 13 is the directory
// reference type, 16-18 are BigTIFF additions.
const (
	TypeByte      TagType = 1
	TypeAscii     TagType = 2
	TypeShort     TagType = 3
	TypeLong      TagType = 4
	TypeRational  TagType = 5
	TypeSByte     TagType = 6
	TypeUndefined TagType = 7
	TypeSShort    TagType = 8
	TypeSLong     TagType = 9
	TypeSRational TagType = 10
	TypeFloat     TagType = 11
	TypeDouble    TagType = 12
	TypeIFD       TagType = 13
	TypeLong8     TagType = 16
	TypeSLong8    TagType = 17
	TypeIFD8      TagType = 18
)

// Class groups tag types by how their values convert.
type Class int

const (
	ClassUnsigned Class = iota
	ClassSigned
	ClassFloat
	ClassAscii
	ClassRational
	ClassSRational
	ClassReference
)

type typeInfo struct {
	name  string
	width uint64
	class Class
}

var typeTable = map[TagType]typeInfo{
	TypeByte:      {"BYTE", 1, ClassUnsigned},
	TypeAscii:     {"ASCII", 1, ClassAscii},
	TypeShort:     {"SHORT", 2, ClassUnsigned},
	TypeLong:      {"LONG", 4, ClassUnsigned},
	TypeRational:  {"RATIONAL", 8, ClassRational},
	TypeSByte:     {"SBYTE", 1, ClassSigned},
	TypeUndefined: {"UNDEFINED", 1, ClassUnsigned},
	TypeSShort:    {"SSHORT", 2, ClassSigned},
	TypeSLong:     {"SLONG", 4, ClassSigned},
	TypeSRational: {"SRATIONAL", 8, ClassSRational},
	TypeFloat:     {"FLOAT", 4, ClassFloat},
	TypeDouble:    {"DOUBLE", 8, ClassFloat},
	TypeIFD:       {"IFD", 4, ClassReference},
	TypeLong8:     {"LONG8", 8, ClassUnsigned},
	TypeSLong8:    {"SLONG8", 8, ClassSigned},
	TypeIFD8:      {"IFD8", 8, ClassReference},
}

// TypeByCode maps an on-disk type code to a TagType, or reports an
// UnknownTypeError for codes outside the known set.
func TypeByCode(code uint16) (TagType, error) {
	tt := TagType(code)
	if _, ok := typeTable[tt]; !ok {
		return 0, &UnknownTypeError{Code: code}
	}
	return tt, nil
}

// Width returns the size in bytes of one value of this type.
func (t TagType) Width() uint64 {
	return typeTable[t].width
}

// PrimitiveWidth returns the size of the smallest primitive making up one
// value. It differs from Width only for the rational types, which are pairs
// of 4-byte integers and are byte-swapped per half.
func (t TagType) PrimitiveWidth() uint64 {
	switch t {
	case TypeRational, TypeSRational:
		return 4
	default:
		return typeTable[t].width
	}
}

// Class returns the conversion class of this type.
func (t TagType) Class() Class {
	return typeTable[t].class
}

// IsReference reports whether values of this type are offsets of further
// directories. Reference entries are never stored inline and never pass
// through value conversion.
func (t TagType) IsReference() bool {
	return typeTable[t].class == ClassReference
}

func (t TagType) String() string {
	if info, ok := typeTable[t]; ok {
		return info.name
	}
	return fmt.Sprintf("TagType(%d)", uint16(t))
}
