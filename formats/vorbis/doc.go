// SPDX-License-Identifier: EPL-2.0

// Package vorbis adapts Ogg Vorbis audio to read.Decoder using
// github.com/jfreymuth/oggvorbis.
//
// oggvorbis.Reader reports neither a frame count nor a seek position, so
// Decoder.Open pays for one throwaway decode pass over the file to learn
// its length up front, and Seek falls back to the reopen-and-skip
// strategy read.Decoder's contract allows for forward-only demuxers:
// backward seeks reopen the file, and every seek then discards decoded
// frames until it reaches the target.
//
// Vorbis encoding is out of scope; this package is decode-only.
//
//	dec := &vorbis.Decoder{}
//	stream, err := read.Open(dec, "input.ogg", 0, read.DefaultOptions())
package vorbis
