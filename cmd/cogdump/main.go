// Diagnostic tool for dumping TIFF directory structure
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/robert-malhotra/go-cog/cog"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/cogdump/main.go <file.tif>")
		os.Exit(1)
	}

	filename := os.Args[1]
	fmt.Printf("=== Analyzing %s ===\n\n", filename)

	f, err := os.Open(filename)
	if err != nil {
		fmt.Printf("ERROR: Failed to open file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	format, first, err := readHeader(f)
	if err != nil {
		fmt.Printf("ERROR: Failed to parse header: %v\n", err)
		os.Exit(1)
	}

	flavor := "classic TIFF"
	if format.BigTIFF {
		flavor = "BigTIFF"
	}
	fmt.Printf("Flavor: %s, byte order: %v, first directory at %d\n\n", flavor, format.ByteOrder, first)

	logger := level.NewFilter(log.NewLogfmtLogger(os.Stderr), level.AllowInfo())
	if os.Getenv("COGDUMP_DEBUG") != "" {
		logger = level.NewFilter(log.NewLogfmtLogger(os.Stderr), level.AllowDebug())
	}

	ctx := context.Background()
	set := cog.NewOverviewSet(cog.ReaderAtStore{R: f}, format, first, cog.WithLogger(logger))
	if err := set.LoadAll(ctx); err != nil {
		fmt.Printf("ERROR: Failed to load directory chain: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < set.Levels(); i++ {
		ov, err := set.Level(i)
		if err != nil {
			fmt.Printf("ERROR: level %d: %v\n", i, err)
			continue
		}
		dumpLevel(ctx, set, ov)
	}
}

func dumpLevel(ctx context.Context, set *cog.OverviewSet, ov *cog.Overview) {
	dir := ov.Directory()
	fmt.Printf("Level %d: %d tags\n", ov.Index(), dir.Len())

	for _, tag := range dir.Tags() {
		entry, _ := dir.Get(tag)
		if buf, ok := entry.Buffered(); ok {
			v, err := buf.Value()
			if err != nil {
				fmt.Printf("  %-28v %v x%d  ERROR: %v\n", tag, buf.Type, buf.Count, err)
				continue
			}
			fmt.Printf("  %-28v %v x%d  %v\n", tag, buf.Type, buf.Count, v)
			continue
		}
		desc, _ := entry.Offset()
		fmt.Printf("  %-28v %v x%d  @%d\n", tag, desc.Type, desc.Count, desc.Offset)
	}

	if off, n, err := ov.ChunkLocation(ctx, 0); err == nil {
		fmt.Printf("  first chunk: offset %d, %d bytes\n", off, n)
	}

	if dir.Contains(cog.TagSubIFDs) {
		subs, err := ov.SubDirectories(ctx, cog.TagSubIFDs)
		if err != nil {
			fmt.Printf("  SubIFDs: ERROR: %v\n", err)
		} else {
			for j, sub := range subs {
				fmt.Printf("  SubIFD %d: %d tags\n", j, sub.Len())
			}
		}
	}
	fmt.Println()
}

// readHeader parses the TIFF or BigTIFF header: byte order mark, version,
// and the offset of the first directory.
func readHeader(r io.ReaderAt) (cog.Format, uint64, error) {
	head := make([]byte, 16)
	if _, err := r.ReadAt(head[:8], 0); err != nil {
		return cog.Format{}, 0, err
	}

	var order binary.ByteOrder
	switch {
	case head[0] == 'I' && head[1] == 'I':
		order = binary.LittleEndian
	case head[0] == 'M' && head[1] == 'M':
		order = binary.BigEndian
	default:
		return cog.Format{}, 0, fmt.Errorf("not a TIFF file: bad byte order mark %q", head[:2])
	}

	switch version := order.Uint16(head[2:4]); version {
	case 42:
		return cog.Format{ByteOrder: order}, uint64(order.Uint32(head[4:8])), nil
	case 43:
		if _, err := r.ReadAt(head[8:16], 8); err != nil {
			return cog.Format{}, 0, err
		}
		if order.Uint16(head[4:6]) != 8 || order.Uint16(head[6:8]) != 0 {
			return cog.Format{}, 0, fmt.Errorf("malformed BigTIFF header")
		}
		return cog.Format{ByteOrder: order, BigTIFF: true}, order.Uint64(head[8:16]), nil
	default:
		return cog.Format{}, 0, fmt.Errorf("unknown TIFF version %d", version)
	}
}
