package cog

import (
	"context"
	"errors"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/robert-malhotra/go-cog/internal/chunkcache"
)

// ErrNoMoreLevels is returned by LoadNext when the directory chain has been
// walked to its end.
var ErrNoMoreLevels = errors.New("no more overview levels")

// OverviewSet walks a file's directory chain and serves chunk locations for
// each loaded overview level. Levels load on demand and stay loaded;
// lookups against a level that has not been loaded fail immediately rather
// than triggering a load.
type OverviewSet struct {
	dec       *Decoder
	chunkSize uint64
	logger    log.Logger

	loadMu sync.Mutex // serializes chain walking

	mu      sync.Mutex
	levels  []*Overview
	next    uint64
	done    bool
	seen    map[uint64]int
	parsing map[uint64]struct{}
}

// Overview is one loaded level: its directory plus lazily loaded tile
// offset and byte count data.
type Overview struct {
	set     *OverviewSet
	index   int
	dir     *Directory
	offsets *tagCache
	counts  *tagCache
	subs    map[Tag][]*Directory
}

// NewOverviewSet creates a set over the directory chain starting at
// firstOffset. No I/O happens until a level is loaded.
func NewOverviewSet(store Store, format Format, firstOffset uint64, opts ...Option) *OverviewSet {
	o := applyOptions(opts)
	return &OverviewSet{
		dec: &Decoder{
			store:  store,
			format: format,
			logger: o.logger,
		},
		chunkSize: o.chunkSize,
		logger:    o.logger,
		next:      firstOffset,
		done:      firstOffset == 0,
		seen:      make(map[uint64]int),
		parsing:   make(map[uint64]struct{}),
	}
}

// Decoder returns the decoder the set reads through.
func (s *OverviewSet) Decoder() *Decoder {
	return s.dec
}

// Levels returns the number of loaded levels.
func (s *OverviewSet) Levels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.levels)
}

// Level returns a loaded overview level.
func (s *OverviewSet) Level(i int) (*Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.levels) {
		return nil, &OverviewNotLoadedError{Level: i}
	}
	return s.levels[i], nil
}

// LoadNext loads the next level in the chain. It returns ErrNoMoreLevels
// once the chain is exhausted.
func (s *OverviewSet) LoadNext(ctx context.Context) (*Overview, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil, ErrNoMoreLevels
	}
	offset := s.next
	if _, ok := s.seen[offset]; ok {
		s.mu.Unlock()
		return nil, &CycleError{Offset: offset}
	}
	s.mu.Unlock()

	dir, next, err := s.dec.ReadDirectory(ctx, offset)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	index := len(s.levels)
	ov := s.newOverview(index, dir)
	s.levels = append(s.levels, ov)
	s.seen[offset] = index
	s.next = next
	s.done = next == 0
	s.mu.Unlock()

	level.Debug(s.logger).Log("msg", "loaded overview", "level", index, "offset", offset, "entries", dir.Len())
	return ov, nil
}

// LoadAll loads every remaining level in the chain.
func (s *OverviewSet) LoadAll(ctx context.Context) error {
	for {
		if _, err := s.LoadNext(ctx); err != nil {
			if errors.Is(err, ErrNoMoreLevels) {
				return nil
			}
			return err
		}
	}
}

// ChunkLocation returns the file offset and byte count of chunk index at
// the given level.
func (s *OverviewSet) ChunkLocation(ctx context.Context, levelIndex int, index uint64) (uint64, uint64, error) {
	ov, err := s.Level(levelIndex)
	if err != nil {
		return 0, 0, err
	}
	return ov.ChunkLocation(ctx, index)
}

func (s *OverviewSet) newOverview(index int, dir *Directory) *Overview {
	return &Overview{
		set:     s,
		index:   index,
		dir:     dir,
		offsets: s.newTagCache(dir, TagTileOffsets, TagStripOffsets),
		counts:  s.newTagCache(dir, TagTileByteCounts, TagStripByteCounts),
		subs:    make(map[Tag][]*Directory),
	}
}

// Index returns the level's position in the chain.
func (o *Overview) Index() int {
	return o.index
}

// Directory returns the level's directory.
func (o *Overview) Directory() *Directory {
	return o.dir
}

// TileOffset returns the file offset of chunk index.
func (o *Overview) TileOffset(ctx context.Context, index uint64) (uint64, error) {
	if o.offsets == nil {
		return 0, &RequiredTagError{Tag: TagTileOffsets}
	}
	return o.offsets.at(ctx, o.set.dec, index)
}

// TileByteCount returns the byte count of chunk index.
func (o *Overview) TileByteCount(ctx context.Context, index uint64) (uint64, error) {
	if o.counts == nil {
		return 0, &RequiredTagError{Tag: TagTileByteCounts}
	}
	return o.counts.at(ctx, o.set.dec, index)
}

// ChunkLocation returns the file offset and byte count of chunk index.
func (o *Overview) ChunkLocation(ctx context.Context, index uint64) (uint64, uint64, error) {
	off, err := o.TileOffset(ctx, index)
	if err != nil {
		return 0, 0, err
	}
	n, err := o.TileByteCount(ctx, index)
	if err != nil {
		return 0, 0, err
	}
	return off, n, nil
}

// SubDirectories parses the directories an entry of reference type points
// at, such as SubIFDs. Parsed directories are kept with the level, so
// repeat calls return the same slice. Offsets that point back at a
// directory already parsed, or one currently being parsed, fail with a
// CycleError.
func (o *Overview) SubDirectories(ctx context.Context, tag Tag) ([]*Directory, error) {
	s := o.set

	s.mu.Lock()
	if subs, ok := o.subs[tag]; ok {
		s.mu.Unlock()
		return subs, nil
	}
	s.mu.Unlock()

	e, err := o.dir.Require(tag)
	if err != nil {
		return nil, err
	}
	offsets, err := s.dec.referenceOffsets(ctx, e)
	if err != nil {
		return nil, err
	}

	subs := make([]*Directory, 0, len(offsets))
	for _, off := range offsets {
		s.mu.Lock()
		_, known := s.seen[off]
		_, inFlight := s.parsing[off]
		if known || inFlight {
			s.mu.Unlock()
			return nil, &CycleError{Offset: off}
		}
		s.parsing[off] = struct{}{}
		s.mu.Unlock()

		dir, _, err := s.dec.ReadDirectory(ctx, off)

		s.mu.Lock()
		delete(s.parsing, off)
		if err == nil {
			s.seen[off] = o.index
		}
		s.mu.Unlock()

		if err != nil {
			return nil, err
		}
		subs = append(subs, dir)
	}

	s.mu.Lock()
	o.subs[tag] = subs
	s.mu.Unlock()
	return subs, nil
}

// tagCache serves indexed unsigned lookups against one entry's data, either
// directly from buffered data or through a chunked lazy cache over its
// deferred data.
type tagCache struct {
	tag   Tag
	buf   *BufferedEntry
	desc  *OffsetDescriptor
	cache *chunkcache.Cache[*BufferedEntry]
}

func (s *OverviewSet) newTagCache(dir *Directory, primary, fallback Tag) *tagCache {
	tag := primary
	e, ok := dir.Get(primary)
	if !ok {
		tag = fallback
		if e, ok = dir.Get(fallback); !ok {
			return nil
		}
	}
	if buf, ok := e.Buffered(); ok {
		return &tagCache{tag: tag, buf: buf}
	}
	desc, _ := e.Offset()
	return &tagCache{
		tag:   tag,
		desc:  desc,
		cache: chunkcache.New[*BufferedEntry](s.chunkSize, desc.Count),
	}
}

func (t *tagCache) at(ctx context.Context, dec *Decoder, index uint64) (uint64, error) {
	if t.buf != nil {
		return t.buf.Uint64At(index)
	}
	buf, sub, err := t.cache.Get(ctx, index, func(ctx context.Context, _, start, n uint64) (*BufferedEntry, error) {
		w := t.desc.Type.Width()
		raw, err := dec.store.ReadRange(ctx, t.desc.Offset+start*w, n*w)
		if err != nil {
			return nil, err
		}
		return NewBufferedEntry(t.desc.Type, n, raw, dec.format.ByteOrder)
	})
	if err != nil {
		return 0, err
	}
	return buf.Uint64At(sub)
}
