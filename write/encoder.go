// SPDX-License-Identifier: EPL-2.0

// Package write provides a realtime-safe, block-recycling disk writer for
// audio files. A realtime client hands full blocks of samples to a
// dedicated non-realtime IO server goroutine, which encodes them and hands
// the same blocks back for reuse, so that writing never allocates and
// never blocks on file IO.
package write

// Encoder writes decoded audio frames to a file. An Encoder instance is
// owned exclusively by the IO server goroutine for the lifetime of one
// stream: it is constructed when the server goroutine opens the file and
// closed when the stream finishes or the server goroutine exits.
type Encoder interface {
	// Open creates path for writing with the given channel count and
	// sample rate.
	Open(path string, numChannels, sampleRate int) error

	// Encode writes the first validFrames frames of b's channels to the
	// file. It must not retain b past the call: the caller reuses b's
	// backing storage as soon as Encode returns.
	Encode(b *Block, validFrames int) error

	// Finish flushes any buffered data and finalizes the file (for
	// example, patching a WAV header's size fields now that the final
	// frame count is known). It is called exactly once, when the stream
	// is told to finish.
	Finish() error

	// Close releases any resources held by the encoder. It is called
	// exactly once, from the IO server goroutine, as the server exits.
	Close() error
}
