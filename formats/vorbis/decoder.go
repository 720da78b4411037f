// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/diskstream/read"
)

// vorbisReader is the subset of *oggvorbis.Reader this package drives,
// narrowed to an interface so decoder_test.go can substitute a mock
// without decoding a real Ogg stream.
type vorbisReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

// Decoder adapts an Ogg Vorbis stream to read.Decoder. oggvorbis.Reader
// exposes no length or seek API, so Open measures the total frame count
// with one throwaway decode pass, and Seek falls back to the
// reopen-and-skip strategy read.Decoder documents for forward-only
// demuxers: backward seeks reopen the file, all seeks then discard
// decoded frames up to the target.
type Decoder struct {
	path        string
	file        *os.File
	dec         vorbisReader
	numChannels int
	pos         int64

	buf []float32 // interleaved scratch for one Decode call
}

// Open implements read.Decoder.
func (d *Decoder) Open(path string, startFrame int64) (int64, int, int, int, error) {
	totalFrames, numChannels, sampleRate, err := countFrames(path)
	if err != nil {
		return 0, 0, 0, 0, err
	}

	d.path = path
	d.numChannels = numChannels

	if err := d.reopen(); err != nil {
		return 0, 0, 0, 0, err
	}

	if err := d.Seek(startFrame); err != nil {
		d.file.Close()
		return 0, 0, 0, 0, err
	}

	return totalFrames, numChannels, sampleRate, read.DefaultBlockLen, nil
}

// countFrames decodes path once, start to finish, to learn its total
// frame count, which oggvorbis.Reader does not report up front; the
// channel count and sample rate come straight from the reader's header.
func countFrames(path string) (int64, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, err
	}
	defer f.Close()

	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return 0, 0, 0, err
	}

	numChannels := dec.Channels()
	sampleRate := dec.SampleRate()

	buf := make([]float32, 4096*numChannels)
	var total int64

	for {
		n, err := dec.Read(buf)
		total += int64(n / numChannels)
		if n == 0 || err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, 0, err
		}
	}

	return total, numChannels, sampleRate, nil
}

func (d *Decoder) reopen() error {
	if d.file != nil {
		d.file.Close()
	}

	f, err := os.Open(d.path)
	if err != nil {
		return err
	}

	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return err
	}

	d.file = f
	d.dec = dec
	d.pos = 0

	return nil
}

// Decode implements read.Decoder.
func (d *Decoder) Decode(dst *read.Block) (int, error) {
	frameLen := dst.Len()
	need := frameLen * d.numChannels
	if len(d.buf) < need {
		d.buf = make([]float32, need)
	}
	buf := d.buf[:need]

	got := 0
	for got < need {
		n, err := d.dec.Read(buf[got:])
		got += n
		if n == 0 || err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}

	framesRead := got / d.numChannels

	for i := 0; i < framesRead; i++ {
		off := i * d.numChannels
		for ch := 0; ch < d.numChannels; ch++ {
			dst.Channels[ch][i] = buf[off+ch]
		}
	}
	for i := framesRead; i < frameLen; i++ {
		for ch := 0; ch < d.numChannels; ch++ {
			dst.Channels[ch][i] = 0
		}
	}

	dst.SetFrames(frameLen)
	d.pos += int64(framesRead)

	return framesRead, nil
}

// Seek implements read.Decoder.
func (d *Decoder) Seek(frame int64) error {
	if frame < d.pos {
		if err := d.reopen(); err != nil {
			return err
		}
	}

	discard := frame - d.pos
	if discard <= 0 {
		d.pos = frame
		return nil
	}

	need := discard * int64(d.numChannels)
	bufLen := int64(4096 * d.numChannels)
	if need < bufLen {
		bufLen = need
	}
	buf := make([]float32, bufLen)

	var skipped int64
	for skipped < need {
		remaining := need - skipped
		if remaining < int64(len(buf)) {
			buf = buf[:remaining]
		}

		n, err := d.dec.Read(buf)
		skipped += int64(n)
		if n == 0 || err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	d.pos = frame

	return nil
}

// Close implements read.Decoder.
func (d *Decoder) Close() error {
	if d.file == nil {
		return nil
	}

	return d.file.Close()
}
