package cog

import (
	"fmt"

	"github.com/robert-malhotra/go-cog/internal/binary"
)

// Directory is one image file directory: an ordered set of entries keyed by
// tag. Entries keep the order they appear in the file. A tag that appears
// more than once keeps its first position but the later entry's data wins.
type Directory struct {
	order   []Tag
	entries map[Tag]Entry
}

// DecodeDirectory reads a directory at the reader's current position.
// It returns the directory and the offset of the next directory in the
// chain, zero when this is the last one.
func DecodeDirectory(r *binary.Reader) (*Directory, uint64, error) {
	n, err := r.ReadEntryCount()
	if err != nil {
		return nil, 0, fmt.Errorf("reading entry count: %w", err)
	}
	if n > maxDirectoryEntries {
		return nil, 0, fmt.Errorf("directory declares %d entries: %w", n, ErrLimits)
	}

	d := &Directory{
		order:   make([]Tag, 0, n),
		entries: make(map[Tag]Entry, n),
	}
	for i := uint64(0); i < n; i++ {
		tag, entry, err := DecodeEntry(r)
		if err != nil {
			return nil, 0, fmt.Errorf("entry %d: %w", i, err)
		}
		d.put(tag, entry)
	}

	next, err := r.ReadOffset()
	if err != nil {
		return nil, 0, fmt.Errorf("reading next directory offset: %w", err)
	}
	return d, next, nil
}

func (d *Directory) put(tag Tag, entry Entry) {
	if _, ok := d.entries[tag]; !ok {
		d.order = append(d.order, tag)
	}
	d.entries[tag] = entry
}

// Len returns the number of distinct tags.
func (d *Directory) Len() int {
	return len(d.order)
}

// Tags returns the tags in file order.
func (d *Directory) Tags() []Tag {
	out := make([]Tag, len(d.order))
	copy(out, d.order)
	return out
}

// Contains reports whether the directory has an entry for tag.
func (d *Directory) Contains(tag Tag) bool {
	_, ok := d.entries[tag]
	return ok
}

// Get returns the entry for tag, if present.
func (d *Directory) Get(tag Tag) (Entry, bool) {
	e, ok := d.entries[tag]
	return e, ok
}

// Require returns the entry for tag or a RequiredTagError.
func (d *Directory) Require(tag Tag) (Entry, error) {
	e, ok := d.entries[tag]
	if !ok {
		return Entry{}, &RequiredTagError{Tag: tag}
	}
	return e, nil
}

// RequireResolved returns buffered data for tag. It fails if the tag is
// absent or its data has not been loaded yet.
func (d *Directory) RequireResolved(tag Tag) (*BufferedEntry, error) {
	e, err := d.Require(tag)
	if err != nil {
		return nil, err
	}
	buf, ok := e.Buffered()
	if !ok {
		return nil, &UnresolvedTagError{Tag: tag}
	}
	return buf, nil
}

// Promote attaches loaded data to a deferred entry, replacing its offset
// descriptor. It fails if the tag is absent or already resolved.
func (d *Directory) Promote(tag Tag, buf *BufferedEntry) error {
	e, ok := d.entries[tag]
	if !ok {
		return &RequiredTagError{Tag: tag}
	}
	if e.Resolved() {
		return &DuplicateTagDataError{Tag: tag}
	}
	d.entries[tag] = bufferedEntry(buf)
	return nil
}
