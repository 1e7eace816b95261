package cog

import (
	"bytes"
	"context"
	encbin "encoding/binary"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/robert-malhotra/go-cog/internal/binary"
)

// Store provides byte-range access to the underlying file. Implementations
// may read from local files, object storage, or HTTP range requests; the
// decoder only ever asks for exact ranges.
type Store interface {
	// ReadRange returns exactly length bytes starting at offset.
	ReadRange(ctx context.Context, offset, length uint64) ([]byte, error)
}

// Format describes the file flavor. The byte order and BigTIFF flag come
// from the file header, which the caller parses before handing ranges to
// this package.
type Format struct {
	ByteOrder encbin.ByteOrder
	BigTIFF   bool
}

func (f Format) config() binary.Config {
	return binary.Config{ByteOrder: f.ByteOrder, Big: f.BigTIFF}
}

func (f Format) countSize() uint64 {
	if f.BigTIFF {
		return 8
	}
	return 2
}

func (f Format) entrySize() uint64 {
	if f.BigTIFF {
		return 20
	}
	return 12
}

func (f Format) offsetSize() uint64 {
	if f.BigTIFF {
		return 8
	}
	return 4
}

// maxDirectoryEntries bounds the entry count read from the file before any
// allocation happens.
const maxDirectoryEntries = 1 << 20

// Decoder reads directories and tag data from a Store.
type Decoder struct {
	store  Store
	format Format
	logger log.Logger
}

// NewDecoder creates a decoder over the given store.
func NewDecoder(store Store, format Format, opts ...Option) *Decoder {
	o := applyOptions(opts)
	return &Decoder{
		store:  store,
		format: format,
		logger: o.logger,
	}
}

// Format returns the file flavor this decoder was created with.
func (d *Decoder) Format() Format {
	return d.format
}

// ReadDirectory reads the directory at offset and returns it together with
// the offset of the next directory in the chain, zero at the end.
func (d *Decoder) ReadDirectory(ctx context.Context, offset uint64) (*Directory, uint64, error) {
	countSize := d.format.countSize()
	head, err := d.store.ReadRange(ctx, offset, countSize)
	if err != nil {
		return nil, 0, fmt.Errorf("reading entry count at %d: %w", offset, err)
	}

	var n uint64
	if d.format.BigTIFF {
		n = d.format.ByteOrder.Uint64(head)
	} else {
		n = uint64(d.format.ByteOrder.Uint16(head))
	}
	if n > maxDirectoryEntries {
		return nil, 0, fmt.Errorf("directory at %d declares %d entries: %w", offset, n, ErrLimits)
	}

	total := countSize + n*d.format.entrySize() + d.format.offsetSize()
	raw, err := d.store.ReadRange(ctx, offset, total)
	if err != nil {
		return nil, 0, fmt.Errorf("reading directory at %d: %w", offset, err)
	}

	r := binary.NewReader(bytes.NewReader(raw), d.format.config())
	dir, next, err := DecodeDirectory(r)
	if err != nil {
		return nil, 0, fmt.Errorf("directory at %d: %w", offset, err)
	}
	level.Debug(d.logger).Log("msg", "read directory", "offset", offset, "entries", dir.Len(), "next", next)
	return dir, next, nil
}

// ReadTagData loads the deferred data a descriptor points at, normalized to
// native byte order. Reference descriptors do not produce buffered data;
// resolve those through sub-directory parsing instead.
func (d *Decoder) ReadTagData(ctx context.Context, desc *OffsetDescriptor) (*BufferedEntry, error) {
	if desc.Type.IsReference() {
		return nil, &ReferenceTypeError{Type: desc.Type}
	}
	n, err := desc.ByteLength()
	if err != nil {
		return nil, err
	}
	raw, err := d.store.ReadRange(ctx, desc.Offset, n)
	if err != nil {
		return nil, fmt.Errorf("reading %d bytes of tag data at %d: %w", n, desc.Offset, err)
	}
	level.Debug(d.logger).Log("msg", "read tag data", "offset", desc.Offset, "type", desc.Type, "count", desc.Count)
	return NewBufferedEntry(desc.Type, desc.Count, raw, d.format.ByteOrder)
}

// Resolve returns buffered data for tag, loading and promoting it if the
// entry is still deferred. Already-resolved entries are returned as is.
func (d *Decoder) Resolve(ctx context.Context, dir *Directory, tag Tag) (*BufferedEntry, error) {
	e, err := dir.Require(tag)
	if err != nil {
		return nil, err
	}
	if buf, ok := e.Buffered(); ok {
		return buf, nil
	}
	desc, _ := e.Offset()
	buf, err := d.ReadTagData(ctx, desc)
	if err != nil {
		return nil, err
	}
	if err := dir.Promote(tag, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// referenceOffsets extracts directory offsets from an entry of reference
// type, or from the LONG/LONG8 encodings some writers use for sub-IFD tags.
func (d *Decoder) referenceOffsets(ctx context.Context, e Entry) ([]uint64, error) {
	if buf, ok := e.Buffered(); ok {
		switch buf.Type {
		case TypeLong, TypeLong8:
			out := make([]uint64, buf.Count)
			for i := range out {
				v, err := buf.Uint64At(uint64(i))
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return out, nil
		default:
			return nil, &ConversionError{Type: buf.Type, Want: "directory offsets"}
		}
	}

	desc, _ := e.Offset()
	width := desc.Type.Width()
	switch desc.Type {
	case TypeIFD, TypeIFD8, TypeLong, TypeLong8:
	default:
		return nil, &ConversionError{Type: desc.Type, Want: "directory offsets"}
	}
	n, err := desc.ByteLength()
	if err != nil {
		return nil, err
	}

	var raw []byte
	if n <= d.format.offsetSize() {
		// Reference entries always decode as descriptors, so offsets that
		// fit the value field arrive packed in desc.Offset. Re-serialize
		// the field to recover them.
		raw = make([]byte, d.format.offsetSize())
		if d.format.BigTIFF {
			d.format.ByteOrder.PutUint64(raw, desc.Offset)
		} else {
			d.format.ByteOrder.PutUint32(raw, uint32(desc.Offset))
		}
	} else {
		raw, err = d.store.ReadRange(ctx, desc.Offset, n)
		if err != nil {
			return nil, fmt.Errorf("reading %d directory offsets at %d: %w", desc.Count, desc.Offset, err)
		}
	}

	out := make([]uint64, desc.Count)
	for i := range out {
		if width == 8 {
			out[i] = d.format.ByteOrder.Uint64(raw[uint64(i)*8:])
		} else {
			out[i] = uint64(d.format.ByteOrder.Uint32(raw[uint64(i)*4:]))
		}
	}
	return out, nil
}

// ReaderAtStore adapts an io.ReaderAt, such as an os.File, to the Store
// interface.
type ReaderAtStore struct {
	R io.ReaderAt
}

// ReadRange implements Store.
func (s ReaderAtStore) ReadRange(_ context.Context, offset, length uint64) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := s.R.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	return buf, nil
}
