// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"os"

	"github.com/ik5/diskstream/write"
)

// riffHeaderLen is 12 (RIFF/size/WAVE) + 24 ("fmt " chunk, PCM layout) + 8
// ("data" chunk header), the same canonical 44-byte layout
// ik5-audpbx/formats/wav's original pcm_16_writer.go pre-allocated.
const riffHeaderLen = 44

// Encoder adapts write.Encoder to write a canonical RIFF/WAVE file in one
// of BitDepth's subformats. The RIFF and "data" chunk sizes are patched in
// place once Finish knows the final frame count, rather than computed up
// front: a streaming encoder never knows how many frames it will get
// until the caller says so.
type Encoder struct {
	// BitDepth selects the sample container this Encoder writes. The zero
	// value is Uint8; callers normally set this explicitly.
	BitDepth BitDepth

	file          *os.File
	numChannels   int
	bytesPerFrame int
	dataBytes     int64
	buf           []byte
}

// Open implements write.Encoder.
func (e *Encoder) Open(path string, numChannels, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	e.file = f
	e.numChannels = numChannels
	e.bytesPerFrame = e.BitDepth.bytesPerSample() * numChannels

	if err := e.writeHeader(sampleRate); err != nil {
		f.Close()
		return err
	}

	return nil
}

func (e *Encoder) writeHeader(sampleRate int) error {
	header := make([]byte, riffHeaderLen)

	bytesPerSample := e.BitDepth.bytesPerSample()
	byteRate := sampleRate * e.numChannels * bytesPerSample
	blockAlign := e.numChannels * bytesPerSample

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36) // patched by Finish
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], e.BitDepth.audioFormat())
	binary.LittleEndian.PutUint16(header[22:24], uint16(e.numChannels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], e.BitDepth.bits())

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched by Finish

	_, err := e.file.Write(header)

	return err
}

// Encode implements write.Encoder.
func (e *Encoder) Encode(b *write.Block, validFrames int) error {
	need := validFrames * e.bytesPerFrame
	if len(e.buf) < need {
		e.buf = make([]byte, need)
	}
	buf := e.buf[:need]

	bps := e.BitDepth.bytesPerSample()

	for i := 0; i < validFrames; i++ {
		off := i * e.bytesPerFrame
		for ch := 0; ch < e.numChannels; ch++ {
			e.BitDepth.encodeSample(buf[off+ch*bps:off+(ch+1)*bps], b.Channels[ch][i])
		}
	}

	if _, err := e.file.Write(buf); err != nil {
		return err
	}

	e.dataBytes += int64(need)

	return nil
}

// Finish implements write.Encoder: it patches the RIFF and "data" chunk
// size fields now that the final frame count is known.
func (e *Encoder) Finish() error {
	var sizeBuf [4]byte

	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(36+e.dataBytes))
	if _, err := e.file.WriteAt(sizeBuf[:], 4); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(e.dataBytes))
	if _, err := e.file.WriteAt(sizeBuf[:], 40); err != nil {
		return err
	}

	return e.file.Sync()
}

// Close implements write.Encoder.
func (e *Encoder) Close() error {
	if e.file == nil {
		return nil
	}

	return e.file.Close()
}
