// SPDX-License-Identifier: EPL-2.0

package read

// DefaultBlockLen is the default number of frames in a prefetch block.
const DefaultBlockLen = 16384

// DefaultNumLookAheadBlocks is the default number of lookahead blocks kept
// filled ahead of the playhead.
const DefaultNumLookAheadBlocks = 4

// DefaultNumCacheBlocks is the default number of blocks held by one cache.
const DefaultNumCacheBlocks = 4

// DefaultNumCaches is the default number of user-addressable caches.
const DefaultNumCaches = 1

// SeekMode describes how Seek should search for a cache that already
// covers the target frame.
type SeekMode int

const (
	// Auto searches all caches, lowest index first, for one that covers
	// the seek target before falling back to buffering through the
	// lookahead ring.
	Auto SeekMode = iota
	// NoHint skips the cache search entirely and always buffers through
	// the lookahead ring, even if a cache happens to cover the target.
	// Useful when the caller knows no cache is relevant and wants to
	// avoid the (cheap, but non-zero) scan.
	NoHint
)

// Options configures a read stream. Open panics unless BlockLen and
// NumLookAheadBlocks are positive; NumCacheBlocks and NumCaches may be
// zero, and Open panics if either is negative.
type Options struct {
	// BlockLen is the number of frames per prefetch block.
	BlockLen int
	// NumLookAheadBlocks is the size of the lookahead ring.
	NumLookAheadBlocks int
	// NumCacheBlocks is the number of blocks held by each cache.
	NumCacheBlocks int
	// NumCaches is the number of user-addressable cache slots.
	NumCaches int
	// ChannelCapacity overrides the computed SPSC queue capacity. Zero
	// means "compute a generous default".
	ChannelCapacity int
}

// DefaultOptions returns the recommended options for most uses.
func DefaultOptions() Options {
	return Options{
		BlockLen:            DefaultBlockLen,
		NumLookAheadBlocks:  DefaultNumLookAheadBlocks,
		NumCacheBlocks:      DefaultNumCacheBlocks,
		NumCaches:           DefaultNumCaches,
	}
}

func (o Options) channelCapacity() int {
	if o.ChannelCapacity > 0 {
		return o.ChannelCapacity
	}

	return (o.NumCacheBlocks+o.NumLookAheadBlocks)*4 + o.NumCaches*4 + 8
}
