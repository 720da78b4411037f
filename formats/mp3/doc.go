// SPDX-License-Identifier: EPL-2.0

// Package mp3 adapts MPEG-1 Layer 3 audio to read.Decoder using
// github.com/hajimehoshi/go-mp3.
//
// go-mp3 always decodes to 16-bit signed stereo PCM regardless of the
// source file's original channel layout, so Decoder.Open always reports
// two channels. Seeking is exact: go-mp3's Decoder.Seek re-derives the
// nearest preceding frame boundary from the underlying file rather than
// replaying from the start.
//
// MP3 encoding is out of scope; this package is decode-only.
//
//	dec := &mp3.Decoder{}
//	stream, err := read.Open(dec, "input.mp3", 0, read.DefaultOptions())
package mp3
