// Package cog reads image file directories from TIFF and BigTIFF files and
// serves tile locations from them lazily, as needed for cloud-optimized
// access patterns where the file is reached over byte-range requests.
//
// The package decodes directory structure and tag data only. Pixel data is
// located, never decoded: callers get the offset and byte count of each
// tile and fetch or decompress it themselves.
//
// # Reading Directories
//
// The caller parses the file header (byte order mark, version, first
// directory offset) and hands the results to this package as a [Format]
// and a starting offset:
//
//	set := cog.NewOverviewSet(store, cog.Format{ByteOrder: binary.LittleEndian}, firstOffset)
//	if err := set.LoadAll(ctx); err != nil { ... }
//	off, n, err := set.ChunkLocation(ctx, 0, tileIndex)
//
// Directory entries small enough to fit the entry's value field are decoded
// immediately; larger data stays behind an [OffsetDescriptor] until
// something asks for it. Tile offsets and byte counts load in fixed-size
// chunks through a concurrency-safe cache, so a lookup touches only the
// byte range it needs.
//
// # Values
//
// Loaded entry data is held as a [BufferedEntry] in native byte order.
// Typed accessors ([BufferedEntry.Uint64], [BufferedEntry.Ascii], ...)
// enforce the declared tag type: widening numeric conversions succeed,
// narrowing ones fail when the value does not fit, and conversions across
// signedness or to unrelated types fail outright. [BufferedEntry.Value]
// decodes to the [Value] union for generic consumers.
//
// # Errors
//
// Errors unwrap to one of the category sentinels [ErrFormat],
// [ErrUnsupported], [ErrUsage], [ErrLimits] or [ErrRange], with concrete
// types carrying the tag, type and size context.
package cog
