// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides deterministic decoder and encoder test
// doubles used by the read and write packages' tests. It deliberately does
// not import either package, so that both can import audiotest without a
// cycle; structural interface satisfaction (read.Decoder, write.Encoder)
// is enough.
package audiotest

import (
	"errors"
	"math"
	"sync"

	"github.com/ik5/diskstream/block"
)

// ErrMockClosed is returned by MockDecoder/MockEncoder methods called
// after Close.
var ErrMockClosed = errors.New("audiotest: mock already closed")

// Waveform computes one sample at an absolute frame index and channel.
type Waveform func(frame int64, channel int) float32

// Silence is a Waveform that always yields zero.
func Silence(frame int64, channel int) float32 { return 0 }

// Sine returns a Waveform generating a sine wave at frequency Hz, sampled
// at sampleRate.
func Sine(frequency float64, sampleRate int) Waveform {
	return func(frame int64, channel int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	}
}

// Constant returns a Waveform that always yields value.
func Constant(value float32) Waveform {
	return func(frame int64, channel int) float32 { return value }
}

// Ramp returns a Waveform whose value at frame f is f, as a float32. It is
// useful for tests that need to assert exactly which frames landed where,
// since every sample is distinguishable by value.
func Ramp(channel int) Waveform {
	return func(frame int64, ch int) float32 { return float32(frame) }
}

// MockDecoder is a read.Decoder test double that synthesizes samples from
// a Waveform instead of reading a file. Every field is set at
// construction; Decode is a pure function of the decoder's current
// position and frame count, so seeking is exact and free.
type MockDecoder struct {
	TotalFrames int64
	NumChannels int
	SampleRate  int
	BlockHint   int
	Waveform    Waveform

	// FailOpen, if set, is returned verbatim by Open instead of opening.
	FailOpen error
	// FailAtFrame, if non-negative, makes Decode return FailErr once the
	// decoder's position reaches this frame.
	FailAtFrame int64
	FailErr     error

	mu       sync.Mutex
	pos      int64
	closed   bool
	opened   bool
}

// NewMockDecoder builds a ready-to-use MockDecoder.
func NewMockDecoder(totalFrames int64, numChannels, sampleRate int, wave Waveform) *MockDecoder {
	return &MockDecoder{
		TotalFrames: totalFrames,
		NumChannels: numChannels,
		SampleRate:  sampleRate,
		BlockHint:   0,
		Waveform:    wave,
		FailAtFrame: -1,
	}
}

func (m *MockDecoder) Open(path string, startFrame int64) (int64, int, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOpen != nil {
		return 0, 0, 0, 0, m.FailOpen
	}

	m.pos = startFrame
	m.opened = true

	return m.TotalFrames, m.NumChannels, m.SampleRate, m.BlockHint, nil
}

func (m *MockDecoder) Decode(dst *block.Block) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrMockClosed
	}

	if m.FailAtFrame >= 0 && m.pos >= m.FailAtFrame {
		return 0, m.FailErr
	}

	n := dst.Len()
	filled := 0

	for i := 0; i < n; i++ {
		frame := m.pos + int64(i)
		if frame >= m.TotalFrames {
			for ch := range dst.Channels {
				dst.Channels[ch][i] = 0
			}
			continue
		}

		for ch := range dst.Channels {
			dst.Channels[ch][i] = m.Waveform(frame, ch)
		}
		filled++
	}

	dst.SetFrames(n)
	m.pos += int64(n)

	return filled, nil
}

func (m *MockDecoder) Seek(frame int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMockClosed
	}

	m.pos = frame

	return nil
}

func (m *MockDecoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// MockEncoder is a write.Encoder test double that records every block it
// is asked to encode, for assertions on frame counts and ordering.
type MockEncoder struct {
	FailOpen   error
	FailEncode error
	FailFinish error

	mu       sync.Mutex
	opened   bool
	finished bool
	closed   bool
	written  []float32 // first channel only, concatenated, for assertions
	frames   int64
}

func (m *MockEncoder) Open(path string, numChannels, sampleRate int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailOpen != nil {
		return m.FailOpen
	}

	m.opened = true

	return nil
}

func (m *MockEncoder) Encode(b *block.Block, validFrames int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMockClosed
	}
	if m.FailEncode != nil {
		return m.FailEncode
	}

	if len(b.Channels) > 0 {
		m.written = append(m.written, b.Channels[0][:validFrames]...)
	}
	m.frames += int64(validFrames)

	return nil
}

func (m *MockEncoder) Finish() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailFinish != nil {
		return m.FailFinish
	}

	m.finished = true

	return nil
}

func (m *MockEncoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

// FramesWritten returns the total valid frame count passed to Encode.
func (m *MockEncoder) FramesWritten() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.frames
}

// Finished reports whether Finish has been called.
func (m *MockEncoder) Finished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.finished
}
