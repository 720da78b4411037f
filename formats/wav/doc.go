// SPDX-License-Identifier: EPL-2.0

// Package wav adapts canonical RIFF/WAVE files to read.Decoder and
// write.Encoder.
//
// # Supported formats
//
// Six subformats are supported, named by BitDepth: Uint8, Int16, Int24,
// Int32 (PCM), and Float32, Float64 (IEEE float). Any channel count and
// sample rate is supported.
//
// # Decoding
//
//	dec := &wav.Decoder{}
//	stream, err := read.Open(dec, "input.wav", 0, read.DefaultOptions())
//
// Decoder parses the header with github.com/go-audio/wav, then reads and
// seeks sample data directly against the file so that Seek is an exact
// byte-offset computation.
//
// # Encoding
//
//	enc := &wav.Encoder{BitDepth: wav.Int16}
//	stream, err := write.Open(enc, "output.wav", 2, 48000, write.DefaultOptions())
//	// ... stream.Write(...) ...
//	err = stream.FinishAndClose()
//
// Encoder writes the header immediately on Open with placeholder RIFF and
// "data" chunk sizes, and patches both in place once Finish knows the
// final frame count.
package wav
