package cog

import "github.com/go-kit/log"

// DefaultChunkSize is the number of elements loaded per chunk when looking
// up tile offsets and byte counts.
const DefaultChunkSize = 256

// Option configures a Decoder or OverviewSet.
type Option func(*options)

type options struct {
	logger    log.Logger
	chunkSize uint64
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger:    log.NewNopLogger(),
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithChunkSize sets the number of elements fetched per chunk for tile
// offset and byte count lookups.
func WithChunkSize(n uint64) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}
