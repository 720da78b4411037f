// SPDX-License-Identifier: EPL-2.0

// Package diskstream provides realtime-safe streaming of audio samples
// between a realtime audio thread and files on disk.
//
// On the realtime side, reading and writing never blocks, allocates, or
// takes a lock that can contend with a non-realtime worker. All blocking
// file IO happens on a dedicated worker goroutine, one per stream, reached
// only through a pair of lock-free single-producer/single-consumer queues.
//
// # Reading
//
// The read subpackage exposes a prefetching, seekable reader:
//
//	dec := &wav.Decoder{}
//	stream, err := read.Open(dec, "song.wav", 0, read.DefaultOptions())
//	if err != nil {
//	    // handle error
//	}
//	defer stream.Close()
//
//	if err := stream.BlockUntilReady(); err != nil {
//	    // handle error
//	}
//
//	data, err := stream.Read(1024)
//
// # Writing
//
// The write subpackage exposes a block-recycling writer:
//
//	enc := &wav.Encoder{BitDepth: wav.Int16}
//	stream, err := write.Open(enc, "out.wav", 2, 48000, write.DefaultOptions())
//	if err != nil {
//	    // handle error
//	}
//
//	err = stream.Write(channels)
//	err = stream.FinishAndClose()
//
// # Decoder and encoder adapters
//
// The formats subpackages wire external codec libraries behind the
// read.Decoder and write.Encoder contracts: formats/wav for canonical
// PCM/float WAV, and formats/mp3, formats/vorbis, formats/aiff for
// read-only decoding of the corresponding container formats.
package diskstream

// FileInfo describes a stream's file-level metadata, shared by both the
// read and write sides.
type FileInfo struct {
	// NumFrames is the total number of frames in the file. On a write
	// stream this grows as frames are written.
	NumFrames int64
	// NumChannels is the number of audio channels.
	NumChannels int
	// SampleRate is the sample rate in Hz.
	SampleRate int
	// BlockLen is the fixed block length, in frames, used by the stream.
	BlockLen int
}
