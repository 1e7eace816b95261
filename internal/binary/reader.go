// Package binary provides low-level binary I/O operations for TIFF directory parsing.
package binary

import (
	"encoding/binary"
	"io"
	"math"
)

// Reader provides methods for reading TIFF binary data. The widths of entry
// counts, value counts and offsets depend on whether the file is classic
// TIFF or BigTIFF; the reader is configured once and hands out the right
// width for each field kind.
type Reader struct {
	r     io.ReaderAt
	order binary.ByteOrder
	big   bool
	pos   int64
}

// Config holds reader configuration, derived from the file header by the caller.
type Config struct {
	ByteOrder binary.ByteOrder
	Big       bool // BigTIFF field widths
}

// NewReader creates a binary reader with the given configuration.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{
		r:     r,
		order: cfg.ByteOrder,
		big:   cfg.Big,
		pos:   0,
	}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying io.ReaderAt but has independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{
		r:     r.r,
		order: r.order,
		big:   r.big,
		pos:   offset,
	}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// ReadBytes reads exactly n bytes from the current position.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	_, err := r.r.ReadAt(buf, r.pos)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

// ReadInt8 reads a signed 8-bit integer.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadInt16 reads a signed 16-bit integer.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads a signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a signed 64-bit integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads a 32-bit IEEE 754 value.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads a 64-bit IEEE 754 value.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadEntryCount reads the number of entries at the start of a directory:
// 2 bytes for classic TIFF, 8 for BigTIFF.
func (r *Reader) ReadEntryCount() (uint64, error) {
	if r.big {
		return r.ReadUint64()
	}
	n, err := r.ReadUint16()
	return uint64(n), err
}

// ReadCount reads an entry's value count: 4 bytes for classic TIFF, 8 for BigTIFF.
func (r *Reader) ReadCount() (uint64, error) {
	if r.big {
		return r.ReadUint64()
	}
	n, err := r.ReadUint32()
	return uint64(n), err
}

// ReadOffset reads a file offset: 4 bytes for classic TIFF, 8 for BigTIFF.
func (r *Reader) ReadOffset() (uint64, error) {
	if r.big {
		return r.ReadUint64()
	}
	n, err := r.ReadUint32()
	return uint64(n), err
}

// OffsetSize returns the width in bytes of the offset field, which is also
// the capacity of an entry's inline value field.
func (r *Reader) OffsetSize() int {
	if r.big {
		return 8
	}
	return 4
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	_, err := r.r.ReadAt(buf, r.pos)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Big reports whether BigTIFF field widths are in effect.
func (r *Reader) Big() bool {
	return r.big
}

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}
