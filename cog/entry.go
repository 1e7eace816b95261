package cog

// Entry Decoding Strategy
//
// A directory entry is a fixed-size record: tag code, type code, value
// count, then a value field that either holds the data inline or holds a
// file offset to it. The field widths depend on the flavor:
//
//	field        | classic | BigTIFF
//	-------------|---------|--------
//	tag code     | 2       | 2
//	type code    | 2       | 2
//	value count  | 4       | 8
//	value field  | 4       | 8
//
// Data is inline exactly when its byte length (count * type width, checked
// for overflow) fits the value field and the type is not a directory
// reference. Reference types always defer, even when a single offset would
// fit. The full value field is consumed in both branches, so the reader
// always lands on the next entry.
//
// Inline data is copied out and byte-swapped to native order immediately;
// deferred data goes through the same normalization when it is loaded
// later. After that point every BufferedEntry holds native-order bytes and
// conversion never consults the file's byte order again.

import (
	encbin "encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/robert-malhotra/go-cog/internal/binary"
)

// OffsetDescriptor records where the data of a deferred entry lives.
type OffsetDescriptor struct {
	Type   TagType
	Count  uint64
	Offset uint64
}

// ByteLength returns the total data size in bytes.
func (d *OffsetDescriptor) ByteLength() (uint64, error) {
	return byteLength(d.Type, d.Count)
}

// BufferedEntry holds fully loaded entry data in native byte order.
// Data is always exactly Count * Type.Width() bytes, and Type is never a
// directory reference.
type BufferedEntry struct {
	Type  TagType
	Count uint64
	Data  []byte
}

// Entry is a single directory entry: either buffered data or an offset
// descriptor waiting to be resolved.
type Entry struct {
	buf *BufferedEntry
	off *OffsetDescriptor
}

// Resolved reports whether the entry's data has been loaded.
func (e Entry) Resolved() bool {
	return e.buf != nil
}

// Buffered returns the loaded data, if any.
func (e Entry) Buffered() (*BufferedEntry, bool) {
	return e.buf, e.buf != nil
}

// Offset returns the offset descriptor for a deferred entry, if any.
func (e Entry) Offset() (*OffsetDescriptor, bool) {
	return e.off, e.off != nil
}

func bufferedEntry(b *BufferedEntry) Entry {
	return Entry{buf: b}
}

func offsetEntry(d *OffsetDescriptor) Entry {
	return Entry{off: d}
}

// DecodeEntry reads one directory entry at the reader's current position and
// leaves the reader positioned at the next entry.
func DecodeEntry(r *binary.Reader) (Tag, Entry, error) {
	tagCode, err := r.ReadUint16()
	if err != nil {
		return 0, Entry{}, fmt.Errorf("reading tag code: %w", err)
	}
	typeCode, err := r.ReadUint16()
	if err != nil {
		return 0, Entry{}, fmt.Errorf("reading type code: %w", err)
	}
	tt, err := TypeByCode(typeCode)
	if err != nil {
		return 0, Entry{}, err
	}
	count, err := r.ReadCount()
	if err != nil {
		return 0, Entry{}, fmt.Errorf("reading value count: %w", err)
	}
	field, err := r.ReadBytes(r.OffsetSize())
	if err != nil {
		return 0, Entry{}, fmt.Errorf("reading value field: %w", err)
	}

	tag := Tag(tagCode)
	n, err := byteLength(tt, count)
	if err != nil {
		return tag, Entry{}, err
	}

	if n <= uint64(len(field)) && !tt.IsReference() {
		data := make([]byte, n)
		copy(data, field[:n])
		fixEndianness(data, r.ByteOrder(), tt.PrimitiveWidth())
		return tag, bufferedEntry(&BufferedEntry{Type: tt, Count: count, Data: data}), nil
	}

	var offset uint64
	if len(field) == 8 {
		offset = r.ByteOrder().Uint64(field)
	} else {
		offset = uint64(r.ByteOrder().Uint32(field))
	}
	return tag, offsetEntry(&OffsetDescriptor{Type: tt, Count: count, Offset: offset}), nil
}

// NewBufferedEntry builds a buffered entry from raw file-order bytes,
// normalizing them to native order. The data length must match the type and
// count exactly.
func NewBufferedEntry(t TagType, count uint64, data []byte, order encbin.ByteOrder) (*BufferedEntry, error) {
	if t.IsReference() {
		return nil, &ReferenceTypeError{Type: t}
	}
	n, err := byteLength(t, count)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != n {
		return nil, &InconsistentSizesError{Type: t, Expected: n, Actual: uint64(len(data))}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	fixEndianness(buf, order, t.PrimitiveWidth())
	return &BufferedEntry{Type: t, Count: count, Data: buf}, nil
}

// byteLength computes count * width with overflow checking.
func byteLength(t TagType, count uint64) (uint64, error) {
	hi, lo := bits.Mul64(count, t.Width())
	if hi != 0 || lo > math.MaxInt64 {
		return 0, &LimitsError{Type: t, Count: count}
	}
	return lo, nil
}

var nativeLittle = func() bool {
	var b [2]byte
	encbin.NativeEndian.PutUint16(b[:], 1)
	return b[0] == 1
}()

func orderIsLittle(order encbin.ByteOrder) bool {
	return order.Uint16([]byte{1, 0}) == 1
}

// fixEndianness rewrites data in place from the given order to native
// order, treating it as a sequence of width-byte primitives.
func fixEndianness(data []byte, order encbin.ByteOrder, width uint64) {
	if width <= 1 || orderIsLittle(order) == nativeLittle {
		return
	}
	w := int(width)
	for i := 0; i+w <= len(data); i += w {
		for a, b := i, i+w-1; a < b; a, b = a+1, b-1 {
			data[a], data[b] = data[b], data[a]
		}
	}
}

// scalarUint reads a single unsigned value of any unsigned type.
// Size is checked before class so that a short buffer reports as corrupt
// data rather than a conversion mistake.
func (b *BufferedEntry) scalarUint(want string) (uint64, error) {
	if uint64(len(b.Data)) != b.Type.Width() {
		return 0, &InconsistentSizesError{Type: b.Type, Expected: b.Type.Width(), Actual: uint64(len(b.Data))}
	}
	if b.Type.Class() != ClassUnsigned {
		return 0, &ConversionError{Type: b.Type, Want: want}
	}
	switch b.Type.Width() {
	case 1:
		return uint64(b.Data[0]), nil
	case 2:
		return uint64(encbin.NativeEndian.Uint16(b.Data)), nil
	case 4:
		return uint64(encbin.NativeEndian.Uint32(b.Data)), nil
	default:
		return encbin.NativeEndian.Uint64(b.Data), nil
	}
}

func (b *BufferedEntry) scalarInt(want string) (int64, error) {
	if uint64(len(b.Data)) != b.Type.Width() {
		return 0, &InconsistentSizesError{Type: b.Type, Expected: b.Type.Width(), Actual: uint64(len(b.Data))}
	}
	if b.Type.Class() != ClassSigned {
		return 0, &ConversionError{Type: b.Type, Want: want}
	}
	switch b.Type.Width() {
	case 1:
		return int64(int8(b.Data[0])), nil
	case 2:
		return int64(int16(encbin.NativeEndian.Uint16(b.Data))), nil
	case 4:
		return int64(int32(encbin.NativeEndian.Uint32(b.Data))), nil
	default:
		return int64(encbin.NativeEndian.Uint64(b.Data)), nil
	}
}

// Uint64 converts a single unsigned value of any width.
func (b *BufferedEntry) Uint64() (uint64, error) {
	return b.scalarUint("uint64")
}

// Uint32 converts a single unsigned value, failing if it does not fit.
func (b *BufferedEntry) Uint32() (uint32, error) {
	v, err := b.scalarUint("uint32")
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, &RangeError{Type: b.Type, Want: "uint32"}
	}
	return uint32(v), nil
}

// Uint16 converts a single unsigned value, failing if it does not fit.
func (b *BufferedEntry) Uint16() (uint16, error) {
	v, err := b.scalarUint("uint16")
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, &RangeError{Type: b.Type, Want: "uint16"}
	}
	return uint16(v), nil
}

// Int64 converts a single signed value of any width.
func (b *BufferedEntry) Int64() (int64, error) {
	return b.scalarInt("int64")
}

// Int32 converts a single signed value, failing if it does not fit.
func (b *BufferedEntry) Int32() (int32, error) {
	v, err := b.scalarInt("int32")
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, &RangeError{Type: b.Type, Want: "int32"}
	}
	return int32(v), nil
}

// Float64 converts a single floating-point value, widening FLOAT.
func (b *BufferedEntry) Float64() (float64, error) {
	if uint64(len(b.Data)) != b.Type.Width() {
		return 0, &InconsistentSizesError{Type: b.Type, Expected: b.Type.Width(), Actual: uint64(len(b.Data))}
	}
	if b.Type.Class() != ClassFloat {
		return 0, &ConversionError{Type: b.Type, Want: "float64"}
	}
	if b.Type == TypeFloat {
		return float64(math.Float32frombits(encbin.NativeEndian.Uint32(b.Data))), nil
	}
	return math.Float64frombits(encbin.NativeEndian.Uint64(b.Data)), nil
}

// Rational converts a single unsigned fraction.
func (b *BufferedEntry) Rational() (Rational, error) {
	if uint64(len(b.Data)) != b.Type.Width() {
		return Rational{}, &InconsistentSizesError{Type: b.Type, Expected: b.Type.Width(), Actual: uint64(len(b.Data))}
	}
	if b.Type != TypeRational {
		return Rational{}, &ConversionError{Type: b.Type, Want: "rational"}
	}
	return Rational{
		Num: encbin.NativeEndian.Uint32(b.Data[0:4]),
		Den: encbin.NativeEndian.Uint32(b.Data[4:8]),
	}, nil
}

// SRational converts a single signed fraction.
func (b *BufferedEntry) SRational() (SRational, error) {
	if uint64(len(b.Data)) != b.Type.Width() {
		return SRational{}, &InconsistentSizesError{Type: b.Type, Expected: b.Type.Width(), Actual: uint64(len(b.Data))}
	}
	if b.Type != TypeSRational {
		return SRational{}, &ConversionError{Type: b.Type, Want: "srational"}
	}
	return SRational{
		Num: int32(encbin.NativeEndian.Uint32(b.Data[0:4])),
		Den: int32(encbin.NativeEndian.Uint32(b.Data[4:8])),
	}, nil
}

// validateFull checks the length invariant before a multi-value conversion.
func (b *BufferedEntry) validateFull() error {
	n, err := byteLength(b.Type, b.Count)
	if err != nil {
		return err
	}
	if uint64(len(b.Data)) != n {
		return &InconsistentSizesError{Type: b.Type, Expected: n, Actual: uint64(len(b.Data))}
	}
	return nil
}

// Uint16s converts the full data of a SHORT entry.
func (b *BufferedEntry) Uint16s() ([]uint16, error) {
	if err := b.validateFull(); err != nil {
		return nil, err
	}
	if b.Type != TypeShort {
		return nil, &ConversionError{Type: b.Type, Want: "[]uint16"}
	}
	out := make([]uint16, b.Count)
	for i := range out {
		out[i] = encbin.NativeEndian.Uint16(b.Data[i*2:])
	}
	return out, nil
}

// Uint32s converts the full data of a LONG entry.
func (b *BufferedEntry) Uint32s() ([]uint32, error) {
	if err := b.validateFull(); err != nil {
		return nil, err
	}
	if b.Type != TypeLong {
		return nil, &ConversionError{Type: b.Type, Want: "[]uint32"}
	}
	out := make([]uint32, b.Count)
	for i := range out {
		out[i] = encbin.NativeEndian.Uint32(b.Data[i*4:])
	}
	return out, nil
}

// Uint64s converts the full data of a LONG8 entry.
func (b *BufferedEntry) Uint64s() ([]uint64, error) {
	if err := b.validateFull(); err != nil {
		return nil, err
	}
	if b.Type != TypeLong8 {
		return nil, &ConversionError{Type: b.Type, Want: "[]uint64"}
	}
	out := make([]uint64, b.Count)
	for i := range out {
		out[i] = encbin.NativeEndian.Uint64(b.Data[i*8:])
	}
	return out, nil
}

// Float64s converts the full data of a FLOAT or DOUBLE entry, widening
// FLOAT values. No other type is accepted.
func (b *BufferedEntry) Float64s() ([]float64, error) {
	if err := b.validateFull(); err != nil {
		return nil, err
	}
	switch b.Type {
	case TypeFloat:
		out := make([]float64, b.Count)
		for i := range out {
			out[i] = float64(math.Float32frombits(encbin.NativeEndian.Uint32(b.Data[i*4:])))
		}
		return out, nil
	case TypeDouble:
		out := make([]float64, b.Count)
		for i := range out {
			out[i] = math.Float64frombits(encbin.NativeEndian.Uint64(b.Data[i*8:]))
		}
		return out, nil
	default:
		return nil, &ConversionError{Type: b.Type, Want: "[]float64"}
	}
}

// Uint64At reads the i'th unsigned value without materializing a slice.
func (b *BufferedEntry) Uint64At(i uint64) (uint64, error) {
	if b.Type.Class() != ClassUnsigned {
		return 0, &ConversionError{Type: b.Type, Want: "uint64"}
	}
	if err := b.validateFull(); err != nil {
		return 0, err
	}
	if i >= b.Count {
		return 0, fmt.Errorf("index %d out of range for %d values: %w", i, b.Count, ErrUsage)
	}
	w := b.Type.Width()
	off := i * w
	switch w {
	case 1:
		return uint64(b.Data[off]), nil
	case 2:
		return uint64(encbin.NativeEndian.Uint16(b.Data[off:])), nil
	case 4:
		return uint64(encbin.NativeEndian.Uint32(b.Data[off:])), nil
	default:
		return encbin.NativeEndian.Uint64(b.Data[off:]), nil
	}
}

// Ascii converts ASCII data to a string. The data must be 7-bit and end
// with a NUL terminator; trailing NULs are trimmed from the result.
func (b *BufferedEntry) Ascii() (string, error) {
	if err := b.validateFull(); err != nil {
		return "", err
	}
	if b.Type != TypeAscii {
		return "", &ConversionError{Type: b.Type, Want: "string"}
	}
	if len(b.Data) == 0 || b.Data[len(b.Data)-1] != 0 {
		return "", &InvalidAsciiError{Reason: "missing NUL terminator"}
	}
	for _, c := range b.Data {
		if c >= 0x80 {
			return "", &InvalidAsciiError{Reason: "non-ASCII byte"}
		}
	}
	return strings.TrimRight(string(b.Data), "\x00"), nil
}

// Value decodes the entry into the value union. Single values decode to
// their scalar variant, ASCII data decodes to one string regardless of
// count, and everything else decodes to a List.
func (b *BufferedEntry) Value() (Value, error) {
	if err := b.validateFull(); err != nil {
		return nil, err
	}
	if b.Type == TypeAscii {
		s, err := b.Ascii()
		if err != nil {
			return nil, err
		}
		return Ascii(s), nil
	}
	if b.Count == 1 {
		return elemValue(b.Type, b.Data)
	}
	w := b.Type.Width()
	out := make(List, b.Count)
	for i := uint64(0); i < b.Count; i++ {
		v, err := elemValue(b.Type, b.Data[i*w:(i+1)*w])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// elemValue decodes one native-order element.
func elemValue(t TagType, data []byte) (Value, error) {
	switch t {
	case TypeByte:
		return Byte(data[0]), nil
	case TypeSByte:
		return SByte(data[0]), nil
	case TypeUndefined:
		return Undefined(data[0]), nil
	case TypeShort:
		return Short(encbin.NativeEndian.Uint16(data)), nil
	case TypeSShort:
		return SShort(encbin.NativeEndian.Uint16(data)), nil
	case TypeLong:
		return Long(encbin.NativeEndian.Uint32(data)), nil
	case TypeSLong:
		return SLong(encbin.NativeEndian.Uint32(data)), nil
	case TypeLong8:
		return Long8(encbin.NativeEndian.Uint64(data)), nil
	case TypeSLong8:
		return SLong8(encbin.NativeEndian.Uint64(data)), nil
	case TypeFloat:
		return Float(math.Float32frombits(encbin.NativeEndian.Uint32(data))), nil
	case TypeDouble:
		return Double(math.Float64frombits(encbin.NativeEndian.Uint64(data))), nil
	case TypeRational:
		return Rational{
			Num: encbin.NativeEndian.Uint32(data[0:4]),
			Den: encbin.NativeEndian.Uint32(data[4:8]),
		}, nil
	case TypeSRational:
		return SRational{
			Num: int32(encbin.NativeEndian.Uint32(data[0:4])),
			Den: int32(encbin.NativeEndian.Uint32(data[4:8])),
		}, nil
	default:
		return nil, &ConversionError{Type: t, Want: "value"}
	}
}

// EncodeValue builds a buffered entry from a decoded value. Lists must be
// homogeneous; ASCII values regain their NUL terminator. This is the
// inverse of [BufferedEntry.Value].
func EncodeValue(v Value) (*BufferedEntry, error) {
	switch val := v.(type) {
	case Ascii:
		data := append([]byte(string(val)), 0)
		return &BufferedEntry{Type: TypeAscii, Count: uint64(len(data)), Data: data}, nil
	case List:
		if len(val) == 0 {
			return nil, fmt.Errorf("empty list has no element type: %w", ErrUsage)
		}
		first, err := EncodeValue(val[0])
		if err != nil {
			return nil, err
		}
		out := &BufferedEntry{Type: first.Type, Count: uint64(len(val))}
		out.Data = make([]byte, 0, uint64(len(val))*first.Type.Width())
		for _, item := range val {
			enc, err := EncodeValue(item)
			if err != nil {
				return nil, err
			}
			if enc.Type != first.Type {
				return nil, fmt.Errorf("mixed value types %v and %v in list: %w", first.Type, enc.Type, ErrUsage)
			}
			out.Data = append(out.Data, enc.Data...)
		}
		return out, nil
	default:
		return encodeScalar(v)
	}
}

func encodeScalar(v Value) (*BufferedEntry, error) {
	var (
		t    TagType
		data []byte
	)
	switch val := v.(type) {
	case Byte:
		t, data = TypeByte, []byte{byte(val)}
	case SByte:
		t, data = TypeSByte, []byte{byte(val)}
	case Undefined:
		t, data = TypeUndefined, []byte{byte(val)}
	case Short:
		t = TypeShort
		data = encbin.NativeEndian.AppendUint16(nil, uint16(val))
	case SShort:
		t = TypeSShort
		data = encbin.NativeEndian.AppendUint16(nil, uint16(val))
	case Long:
		t = TypeLong
		data = encbin.NativeEndian.AppendUint32(nil, uint32(val))
	case SLong:
		t = TypeSLong
		data = encbin.NativeEndian.AppendUint32(nil, uint32(val))
	case Long8:
		t = TypeLong8
		data = encbin.NativeEndian.AppendUint64(nil, uint64(val))
	case SLong8:
		t = TypeSLong8
		data = encbin.NativeEndian.AppendUint64(nil, uint64(val))
	case Float:
		t = TypeFloat
		data = encbin.NativeEndian.AppendUint32(nil, math.Float32bits(float32(val)))
	case Double:
		t = TypeDouble
		data = encbin.NativeEndian.AppendUint64(nil, math.Float64bits(float64(val)))
	case Rational:
		t = TypeRational
		data = encbin.NativeEndian.AppendUint32(nil, val.Num)
		data = encbin.NativeEndian.AppendUint32(data, val.Den)
	case SRational:
		t = TypeSRational
		data = encbin.NativeEndian.AppendUint32(nil, uint32(val.Num))
		data = encbin.NativeEndian.AppendUint32(data, uint32(val.Den))
	default:
		return nil, fmt.Errorf("cannot encode %T: %w", v, ErrUsage)
	}
	return &BufferedEntry{Type: t, Count: 1, Data: data}, nil
}
