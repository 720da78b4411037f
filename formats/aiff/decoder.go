// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"io"
	"os"

	goaiff "github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/ik5/diskstream/read"
)

// aiffReader is the subset of *goaiff.Decoder this package drives,
// narrowed to an interface so decoder_test.go can substitute a mock
// without decoding a real AIFF file.
type aiffReader interface {
	IsValidFile() bool
	ReadInfo()
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Decoder adapts an AIFF (PCM, big-endian) file to read.Decoder. It
// parses the header with go-audio/aiff and reads samples through
// PCMBuffer/IntBuffer, the same types the library exposes for this
// purpose; seeking is done directly against the open file, which
// PCMBuffer's sequential reads pick up transparently on the next call.
type Decoder struct {
	file           *os.File
	dec            aiffReader
	dataStart      int64
	numChannels    int
	bytesPerSample int
	bytesPerFrame  int
	intBuf         *goaudio.IntBuffer
}

// Open implements read.Decoder.
func (d *Decoder) Open(path string, startFrame int64) (int64, int, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	dec := goaiff.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return 0, 0, 0, 0, ErrNotAiffFile
	}

	dec.ReadInfo()

	format := dec.Format()
	if format == nil {
		f.Close()
		return 0, 0, 0, 0, ErrUnsupportedAiffLayout
	}

	bytesPerSample, err := bytesPerSampleFromBitDepth(int(dec.BitDepth))
	if err != nil {
		f.Close()
		return 0, 0, 0, 0, err
	}

	dataStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.Close()
		return 0, 0, 0, 0, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, 0, 0, 0, err
	}

	numChannels := format.NumChannels
	bytesPerFrame := bytesPerSample * numChannels
	totalFrames := (fi.Size() - dataStart) / int64(bytesPerFrame)

	d.file = f
	d.dec = dec
	d.dataStart = dataStart
	d.numChannels = numChannels
	d.bytesPerSample = bytesPerSample
	d.bytesPerFrame = bytesPerFrame
	d.intBuf = &goaudio.IntBuffer{Format: format}

	if err := d.Seek(startFrame); err != nil {
		f.Close()
		return 0, 0, 0, 0, err
	}

	return totalFrames, numChannels, format.SampleRate, read.DefaultBlockLen, nil
}

// Decode implements read.Decoder.
func (d *Decoder) Decode(dst *read.Block) (int, error) {
	n := dst.Len()
	need := n * d.numChannels

	if cap(d.intBuf.Data) < need {
		d.intBuf.Data = make([]int, need)
	} else {
		d.intBuf.Data = d.intBuf.Data[:need]
	}

	got, err := d.dec.PCMBuffer(d.intBuf)
	if err != nil && err != io.EOF {
		return 0, err
	}

	framesRead := got / d.numChannels
	maxVal := float32(int64(1) << uint(d.bytesPerSample*8-1))

	for i := 0; i < framesRead; i++ {
		off := i * d.numChannels
		for ch := 0; ch < d.numChannels; ch++ {
			dst.Channels[ch][i] = float32(d.intBuf.Data[off+ch]) / maxVal
		}
	}
	for i := framesRead; i < n; i++ {
		for ch := 0; ch < d.numChannels; ch++ {
			dst.Channels[ch][i] = 0
		}
	}

	dst.SetFrames(n)

	return framesRead, nil
}

// Seek implements read.Decoder. Seeking the underlying file is enough:
// PCMBuffer has no position state of its own past whatever the
// decoder's reader currently offers.
func (d *Decoder) Seek(frame int64) error {
	_, err := d.file.Seek(d.dataStart+frame*int64(d.bytesPerFrame), io.SeekStart)
	return err
}

// Close implements read.Decoder.
func (d *Decoder) Close() error {
	if d.file == nil {
		return nil
	}

	return d.file.Close()
}

func bytesPerSampleFromBitDepth(bits int) (int, error) {
	switch bits {
	case 8:
		return 1, nil
	case 16:
		return 2, nil
	case 24:
		return 3, nil
	case 32:
		return 4, nil
	default:
		return 0, ErrUnsupportedBitDepth
	}
}
