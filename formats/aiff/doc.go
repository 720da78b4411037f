// SPDX-License-Identifier: EPL-2.0

// Package aiff adapts AIFF (Audio Interchange File Format, big-endian
// PCM) files to read.Decoder using github.com/go-audio/aiff.
//
// Four PCM bit depths are supported: 8, 16, 24, and 32 bits per sample.
// Header parsing and sample decoding both go through go-audio/aiff and
// go-audio/audio's PCMBuffer/IntBuffer; Seek repositions the underlying
// file directly, which PCMBuffer's sequential reads then pick up on the
// next call.
//
// AIFF encoding is out of scope; this package is decode-only.
//
//	dec := &aiff.Decoder{}
//	stream, err := read.Open(dec, "input.aiff", 0, read.DefaultOptions())
package aiff
