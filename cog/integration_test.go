package cog

import (
	"bytes"
	"context"
	encbin "encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

// encodeTIFF produces a real uncompressed TIFF through the x/image encoder.
func encodeTIFF(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 0x40, A: 0xFF})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Uncompressed}))
	return buf.Bytes()
}

func parseHeader(t *testing.T, data []byte) (Format, uint64) {
	t.Helper()
	require.GreaterOrEqual(t, len(data), 8)

	var order encbin.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = encbin.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = encbin.BigEndian
	default:
		t.Fatalf("bad byte order mark %q", data[:2])
	}
	require.EqualValues(t, 42, order.Uint16(data[2:4]))
	return Format{ByteOrder: order}, uint64(order.Uint32(data[4:8]))
}

func entryCount(t *testing.T, dir *Directory, tag Tag) uint64 {
	t.Helper()
	e, err := dir.Require(tag)
	require.NoError(t, err)
	if buf, ok := e.Buffered(); ok {
		return buf.Count
	}
	desc, _ := e.Offset()
	return desc.Count
}

func TestDecodeEncodedTIFF(t *testing.T) {
	const width, height = 16, 16
	data := encodeTIFF(t, width, height)

	format, first := parseHeader(t, data)
	set := NewOverviewSet(memStore(data), format, first)
	require.NoError(t, set.LoadAll(context.Background()))
	require.Equal(t, 1, set.Levels())

	ov, err := set.Level(0)
	require.NoError(t, err)
	dir := ov.Directory()

	w, err := dir.RequireResolved(TagImageWidth)
	require.NoError(t, err)
	wv, err := w.Uint64()
	require.NoError(t, err)
	assert.EqualValues(t, width, wv)

	h, err := dir.RequireResolved(TagImageLength)
	require.NoError(t, err)
	hv, err := h.Uint64()
	require.NoError(t, err)
	assert.EqualValues(t, height, hv)

	// Every strip the encoder wrote must be locatable, in bounds, and the
	// byte counts must add up to the uncompressed NRGBA payload.
	strips := entryCount(t, dir, TagStripOffsets)
	require.Equal(t, strips, entryCount(t, dir, TagStripByteCounts))

	var total uint64
	for i := uint64(0); i < strips; i++ {
		off, n, err := ov.ChunkLocation(context.Background(), i)
		require.NoError(t, err)
		assert.LessOrEqual(t, off+n, uint64(len(data)))
		total += n
	}
	assert.EqualValues(t, width*height*4, total)
}

func TestDecodeEncodedTIFFResolution(t *testing.T) {
	data := encodeTIFF(t, 8, 8)
	format, first := parseHeader(t, data)

	set := NewOverviewSet(memStore(data), format, first)
	require.NoError(t, set.LoadAll(context.Background()))

	ov, err := set.Level(0)
	require.NoError(t, err)
	dir := ov.Directory()

	if !dir.Contains(TagXResolution) {
		t.Skip("encoder wrote no resolution tags")
	}

	res, err := set.Decoder().Resolve(context.Background(), dir, TagXResolution)
	require.NoError(t, err)

	rat, err := res.Rational()
	require.NoError(t, err)
	assert.NotZero(t, rat.Den)
}
