// SPDX-License-Identifier: EPL-2.0

package read

// Decoder opens an audio file and streams decoded frames into
// caller-supplied blocks. A Decoder instance is owned exclusively by the
// IO server goroutine for the lifetime of one stream: it is constructed
// when the server goroutine starts and closed when the server goroutine
// exits.
//
// Decode must be deterministic for a given (startFrame, block length)
// pair, must never allocate beyond what is documented, and must zero-fill
// any frames past end of file rather than leaving them untouched.
type Decoder interface {
	// Open opens path and begins decoding from startFrame. It returns the
	// total number of frames in the file, the channel count, the sample
	// rate in Hz, and a decoder-suggested block length (callers may
	// ignore the hint and use their own).
	Open(path string, startFrame int64) (totalFrames int64, numChannels, sampleRate, blockLenHint int, err error)

	// Decode fills dst's channels starting at the decoder's current read
	// position with exactly dst.Len() frames, zero-filling any frames at
	// or past end of file. It reports how many of those frames held real
	// (non-silence) file data and advances the decoder's position by
	// dst.Len() frames (even past EOF).
	Decode(dst *Block) (filledFrames int, err error)

	// Seek repositions the decoder's read position ahead of the next
	// Decode call. Decode itself takes no start frame, so the IO server
	// calls Seek whenever the next block it must decode does not start
	// where sequential decoding left off (after a seek, a ring reset, or
	// around a cache fill); Seek must therefore land exactly on frame.
	// Decoders that cannot seek cheaply (e.g. forward-only demuxers) may
	// treat backward seeks as a reopen-and-skip.
	Seek(frame int64) error

	// Close releases any resources held by the decoder. It is called
	// exactly once, from the IO server goroutine, as the server exits.
	Close() error
}
