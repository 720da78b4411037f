// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/diskstream/block"
)

// fakeAiffDecoder stands in for *goaiff.Decoder: a fixed sequence of
// interleaved int samples at a given bit depth.
type fakeAiffDecoder struct {
	format  *goaudio.Format
	samples []int // interleaved
	pos     int
	valid   bool
}

func (f *fakeAiffDecoder) IsValidFile() bool       { return f.valid }
func (f *fakeAiffDecoder) ReadInfo()               {}
func (f *fakeAiffDecoder) Format() *goaudio.Format { return f.format }

func (f *fakeAiffDecoder) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	n := copy(buf.Data, f.samples[f.pos:])
	f.pos += n

	if f.pos >= len(f.samples) {
		return n, io.EOF
	}

	return n, nil
}

func TestBytesPerSampleFromBitDepth(t *testing.T) {
	t.Parallel()

	cases := map[int]int{8: 1, 16: 2, 24: 3, 32: 4}
	for bits, want := range cases {
		got, err := bytesPerSampleFromBitDepth(bits)
		if err != nil {
			t.Fatalf("bytesPerSampleFromBitDepth(%d): %v", bits, err)
		}
		if got != want {
			t.Errorf("bytesPerSampleFromBitDepth(%d) = %d, want %d", bits, got, want)
		}
	}

	if _, err := bytesPerSampleFromBitDepth(20); err != ErrUnsupportedBitDepth {
		t.Errorf("bytesPerSampleFromBitDepth(20) error = %v, want ErrUnsupportedBitDepth", err)
	}
}

func TestDecoder_DecodeNormalizesSamples(t *testing.T) {
	t.Parallel()

	d := &Decoder{
		dec:            &fakeAiffDecoder{samples: []int{0, 32767, -32768, 16384}},
		numChannels:    2,
		bytesPerSample: 2,
		intBuf:         &goaudio.IntBuffer{},
	}

	dst := block.New(2, 2)
	n, err := d.Decode(dst)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}

	if dst.Channels[0][0] != 0 {
		t.Errorf("left[0] = %v, want 0", dst.Channels[0][0])
	}
	if diff := dst.Channels[1][0] - 1.0; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("right[0] = %v, want ~1.0", dst.Channels[1][0])
	}
	if dst.Channels[0][1] != -1.0 {
		t.Errorf("left[1] = %v, want -1.0", dst.Channels[0][1])
	}
}

func TestDecoder_DecodePastEndZeroFills(t *testing.T) {
	t.Parallel()

	d := &Decoder{
		dec:            &fakeAiffDecoder{samples: []int{100, 200}},
		numChannels:    1,
		bytesPerSample: 2,
		intBuf:         &goaudio.IntBuffer{},
	}

	dst := block.New(1, 5)
	n, err := d.Decode(dst)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}

	for i := 2; i < 5; i++ {
		if dst.Channels[0][i] != 0 {
			t.Fatalf("frame %d = %v, want 0 (past EOF)", i, dst.Channels[0][i])
		}
	}
}

func TestDecoder_SeekRepositionsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scratch.bin")
	if err := os.WriteFile(path, make([]byte, 64), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	d := &Decoder{
		file:          f,
		dataStart:     4,
		bytesPerFrame: 4,
	}

	if err := d.Seek(3); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("Seek (query): %v", err)
	}
	if want := int64(4 + 3*4); pos != want {
		t.Fatalf("file position = %d, want %d", pos, want)
	}
}

func TestDecoder_CloseWithoutOpenIsSafe(t *testing.T) {
	t.Parallel()

	d := &Decoder{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
