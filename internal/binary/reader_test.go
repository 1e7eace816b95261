package binary

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// bytesReaderAt wraps a byte slice to implement io.ReaderAt.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, nil
	}
	n := copy(p, b[off:])
	return n, nil
}

func classicLE() Config {
	return Config{ByteOrder: binary.LittleEndian}
}

func TestReaderReadUint8(t *testing.T) {
	data := bytesReaderAt{0x42, 0xFF, 0x00}
	r := NewReader(data, classicLE())

	v, err := r.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0x42 {
		t.Errorf("expected 0x42, got 0x%02x", v)
	}

	v, err = r.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0xFF {
		t.Errorf("expected 0xFF, got 0x%02x", v)
	}
}

func TestReaderReadUint16(t *testing.T) {
	// Little-endian: 0x0102 stored as [0x02, 0x01]
	data := bytesReaderAt{0x02, 0x01, 0xFF, 0xFF}
	r := NewReader(data, classicLE())

	v, err := r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16 failed: %v", err)
	}
	if v != 0x0102 {
		t.Errorf("expected 0x0102, got 0x%04x", v)
	}

	v, err = r.ReadUint16()
	if err != nil {
		t.Fatalf("ReadUint16 failed: %v", err)
	}
	if v != 0xFFFF {
		t.Errorf("expected 0xFFFF, got 0x%04x", v)
	}
}

func TestReaderReadUint32(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(0x12345678))
	binary.Write(&buf, binary.LittleEndian, uint32(0xDEADBEEF))

	r := NewReader(bytesReaderAt(buf.Bytes()), classicLE())

	v, err := r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32 failed: %v", err)
	}
	if v != 0x12345678 {
		t.Errorf("expected 0x12345678, got 0x%08x", v)
	}

	v, err = r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32 failed: %v", err)
	}
	if v != 0xDEADBEEF {
		t.Errorf("expected 0xDEADBEEF, got 0x%08x", v)
	}
}

func TestReaderReadUint64(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint64(0x123456789ABCDEF0))

	r := NewReader(bytesReaderAt(buf.Bytes()), classicLE())

	v, err := r.ReadUint64()
	if err != nil {
		t.Fatalf("ReadUint64 failed: %v", err)
	}
	if v != 0x123456789ABCDEF0 {
		t.Errorf("expected 0x123456789ABCDEF0, got 0x%016x", v)
	}
}

func TestReaderReadSigned(t *testing.T) {
	// -5 as little-endian int32
	data := bytesReaderAt{0xFB, 0xFF, 0xFF, 0xFF}
	r := NewReader(data, classicLE())

	v, err := r.ReadInt32()
	if err != nil {
		t.Fatalf("ReadInt32 failed: %v", err)
	}
	if v != -5 {
		t.Errorf("expected -5, got %d", v)
	}
}

func TestReaderReadFloat(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, float32(1.5))
	binary.Write(&buf, binary.LittleEndian, float64(2.25))

	r := NewReader(bytesReaderAt(buf.Bytes()), classicLE())

	f32, err := r.ReadFloat32()
	if err != nil {
		t.Fatalf("ReadFloat32 failed: %v", err)
	}
	if f32 != 1.5 {
		t.Errorf("expected 1.5, got %v", f32)
	}

	f64, err := r.ReadFloat64()
	if err != nil {
		t.Fatalf("ReadFloat64 failed: %v", err)
	}
	if f64 != 2.25 {
		t.Errorf("expected 2.25, got %v", f64)
	}
}

func TestReaderReadOffset(t *testing.T) {
	tests := []struct {
		name     string
		big      bool
		data     []byte
		expected uint64
	}{
		{"classic", false, []byte{0x78, 0x56, 0x34, 0x12}, 0x12345678},
		{"bigtiff", true, []byte{0xF0, 0xDE, 0xBC, 0x9A, 0x78, 0x56, 0x34, 0x12}, 0x123456789ABCDEF0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{ByteOrder: binary.LittleEndian, Big: tt.big}
			r := NewReader(bytesReaderAt(tt.data), cfg)

			v, err := r.ReadOffset()
			if err != nil {
				t.Fatalf("ReadOffset failed: %v", err)
			}
			if v != tt.expected {
				t.Errorf("expected 0x%x, got 0x%x", tt.expected, v)
			}
		})
	}
}

func TestReaderReadEntryCount(t *testing.T) {
	tests := []struct {
		name     string
		big      bool
		order    binary.ByteOrder
		data     []byte
		expected uint64
	}{
		{"classic little", false, binary.LittleEndian, []byte{0x0A, 0x00}, 10},
		{"classic big", false, binary.BigEndian, []byte{0x00, 0x0A}, 10},
		{"bigtiff little", true, binary.LittleEndian, []byte{0x0A, 0, 0, 0, 0, 0, 0, 0}, 10},
		{"bigtiff big", true, binary.BigEndian, []byte{0, 0, 0, 0, 0, 0, 0, 0x0A}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(bytesReaderAt(tt.data), Config{ByteOrder: tt.order, Big: tt.big})

			v, err := r.ReadEntryCount()
			if err != nil {
				t.Fatalf("ReadEntryCount failed: %v", err)
			}
			if v != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, v)
			}
		})
	}
}

func TestReaderReadCount(t *testing.T) {
	classic := NewReader(bytesReaderAt{0x03, 0x00, 0x00, 0x00}, classicLE())
	v, err := classic.ReadCount()
	if err != nil {
		t.Fatalf("ReadCount failed: %v", err)
	}
	if v != 3 {
		t.Errorf("expected 3, got %d", v)
	}
	if classic.Pos() != 4 {
		t.Errorf("expected pos 4, got %d", classic.Pos())
	}

	big := NewReader(bytesReaderAt{0x03, 0, 0, 0, 0, 0, 0, 0}, Config{ByteOrder: binary.LittleEndian, Big: true})
	v, err = big.ReadCount()
	if err != nil {
		t.Fatalf("ReadCount failed: %v", err)
	}
	if v != 3 {
		t.Errorf("expected 3, got %d", v)
	}
	if big.Pos() != 8 {
		t.Errorf("expected pos 8, got %d", big.Pos())
	}
}

func TestReaderAt(t *testing.T) {
	data := bytesReaderAt{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}
	r := NewReader(data, classicLE())

	// Read from offset 3
	r2 := r.At(3)
	v, err := r2.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0x03 {
		t.Errorf("expected 0x03, got 0x%02x", v)
	}

	// Original reader should be unaffected
	v, err = r.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0x00 {
		t.Errorf("expected 0x00, got 0x%02x", v)
	}
}

func TestReaderSkip(t *testing.T) {
	data := bytesReaderAt{0x00, 0x01, 0x02, 0x03, 0x04}
	r := NewReader(data, classicLE())

	r.Skip(2)
	v, err := r.ReadUint8()
	if err != nil {
		t.Fatalf("ReadUint8 failed: %v", err)
	}
	if v != 0x02 {
		t.Errorf("expected 0x02, got 0x%02x", v)
	}
}

func TestReaderPeek(t *testing.T) {
	data := bytesReaderAt{0x00, 0x01, 0x02, 0x03}
	r := NewReader(data, classicLE())

	// Peek should not advance position
	peeked, err := r.Peek(2)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if !bytes.Equal(peeked, []byte{0x00, 0x01}) {
		t.Errorf("expected [0x00, 0x01], got %v", peeked)
	}

	if r.Pos() != 0 {
		t.Errorf("Peek should not advance position, got %d", r.Pos())
	}

	// Read should still get the same data
	read, err := r.ReadBytes(2)
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	if !bytes.Equal(read, peeked) {
		t.Errorf("Read after Peek mismatch: %v vs %v", read, peeked)
	}
}

func TestReaderOffsetSize(t *testing.T) {
	classic := NewReader(bytesReaderAt{}, classicLE())
	if classic.OffsetSize() != 4 {
		t.Errorf("expected 4, got %d", classic.OffsetSize())
	}

	big := NewReader(bytesReaderAt{}, Config{ByteOrder: binary.LittleEndian, Big: true})
	if big.OffsetSize() != 8 {
		t.Errorf("expected 8, got %d", big.OffsetSize())
	}
}
