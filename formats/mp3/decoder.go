// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"io"
	"os"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/diskstream/read"
)

// bytesPerFrame is go-mp3's fixed output format: 16-bit signed PCM,
// stereo, little-endian, interleaved.
const (
	numMP3Channels = 2
	bytesPerSample = 2
	bytesPerFrame  = bytesPerSample * numMP3Channels
)

// mp3Decoder is the subset of *gomp3.Decoder this package drives,
// narrowed to an interface so decoder_test.go can substitute a mock
// without decoding real MP3 frames.
type mp3Decoder interface {
	io.Reader
	io.Seeker
	SampleRate() int
	Length() int64
}

// Decoder adapts an MP3 stream to read.Decoder. go-mp3 always decodes to
// 16-bit signed stereo PCM regardless of the source file's channel
// layout, so Open always reports two channels.
type Decoder struct {
	file *os.File
	dec  mp3Decoder
	buf  []byte
}

// Open implements read.Decoder.
func (d *Decoder) Open(path string, startFrame int64) (int64, int, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return 0, 0, 0, 0, err
	}

	d.file = f
	d.dec = dec

	totalFrames := dec.Length() / bytesPerFrame

	if startFrame > 0 {
		if err := d.Seek(startFrame); err != nil {
			f.Close()
			return 0, 0, 0, 0, err
		}
	}

	return totalFrames, numMP3Channels, dec.SampleRate(), read.DefaultBlockLen, nil
}

// Decode implements read.Decoder.
func (d *Decoder) Decode(dst *read.Block) (int, error) {
	need := dst.Len() * bytesPerFrame
	if len(d.buf) < need {
		d.buf = make([]byte, need)
	}
	buf := d.buf[:need]

	n, err := io.ReadFull(d.dec, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, err
	}

	framesRead := n / bytesPerFrame

	for i := 0; i < framesRead; i++ {
		off := i * bytesPerFrame
		left := int16(binary.LittleEndian.Uint16(buf[off : off+2]))
		right := int16(binary.LittleEndian.Uint16(buf[off+2 : off+4]))
		dst.Channels[0][i] = float32(left) / 32768
		dst.Channels[1][i] = float32(right) / 32768
	}
	for i := framesRead; i < dst.Len(); i++ {
		dst.Channels[0][i] = 0
		dst.Channels[1][i] = 0
	}

	dst.SetFrames(dst.Len())

	return framesRead, nil
}

// Seek implements read.Decoder. go-mp3's Decoder.Seek re-derives the
// nearest preceding frame boundary from the underlying file, so this is
// an exact seek rather than a best-effort skip.
func (d *Decoder) Seek(frame int64) error {
	_, err := d.dec.Seek(frame*bytesPerFrame, io.SeekStart)
	return err
}

// Close implements read.Decoder.
func (d *Decoder) Close() error {
	if d.file == nil {
		return nil
	}

	return d.file.Close()
}
