// SPDX-License-Identifier: EPL-2.0

package read_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ik5/diskstream/internal/audiotest"
	"github.com/ik5/diskstream/read"
)

func testOptions() read.Options {
	return read.Options{
		BlockLen:           64,
		NumLookAheadBlocks: 2,
		NumCacheBlocks:      2,
		NumCaches:           1,
	}
}

func openRamp(t *testing.T, totalFrames int64, startFrame int64) *read.Stream {
	t.Helper()

	dec := audiotest.NewMockDecoder(totalFrames, 2, 48000, audiotest.Ramp(0))
	s, err := read.Open(dec, "mock.raw", startFrame, testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStream_ReadReturnsFrameIndexedSamples(t *testing.T) {
	s := openRamp(t, 1000, 0)

	if err := s.BlockUntilReady(); err != nil {
		t.Fatalf("BlockUntilReady: %v", err)
	}

	data, err := s.Read(10)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if data.NumFrames() != 10 {
		t.Fatalf("NumFrames = %d, want 10", data.NumFrames())
	}

	ch := data.Channel(0)
	for i, v := range ch {
		if v != float32(i) {
			t.Fatalf("frame %d = %v, want %v", i, v, float32(i))
		}
	}

	if s.Playhead() != 10 {
		t.Fatalf("Playhead = %d, want 10", s.Playhead())
	}
}

func TestStream_ReadNeverSpansBlockBoundary(t *testing.T) {
	s := openRamp(t, 1000, 60)

	if err := s.BlockUntilReady(); err != nil {
		t.Fatalf("BlockUntilReady: %v", err)
	}

	data, err := s.Read(10)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if data.NumFrames() != 4 {
		t.Fatalf("NumFrames = %d, want 4 (capped at the 64-frame block boundary)", data.NumFrames())
	}

	if s.Playhead() != 64 {
		t.Fatalf("Playhead = %d, want 64", s.Playhead())
	}

	for {
		ready, err := s.IsReady()
		if err != nil {
			t.Fatalf("IsReady: %v", err)
		}
		if ready {
			break
		}
		time.Sleep(time.Millisecond)
	}

	data, err = s.Read(10)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if data.NumFrames() != 10 {
		t.Fatalf("NumFrames = %d, want 10", data.NumFrames())
	}
	if data.Channel(0)[0] != 64 {
		t.Fatalf("first sample = %v, want 64", data.Channel(0)[0])
	}
}

func TestStream_ReadPastEndOfFileReportsEOF(t *testing.T) {
	s := openRamp(t, 100, 0)

	for {
		ready, err := s.IsReady()
		if err != nil {
			t.Fatalf("IsReady: %v", err)
		}
		if ready {
			break
		}
		time.Sleep(time.Millisecond)
	}

	var data read.Data
	for s.Playhead() < 100 {
		d, err := s.Read(64)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if d.NumFrames() == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		data = d
	}

	if !data.ReachedEndOfFile() {
		t.Fatalf("expected the final read to report end of file")
	}
}

func TestStream_SeekIntoCacheIsReadyImmediately(t *testing.T) {
	s := openRamp(t, 10000, 0)

	ok, err := s.Cache(0, 5000)
	if err != nil {
		t.Fatalf("Cache: %v", err)
	}
	if !ok {
		t.Fatalf("Cache returned false")
	}

	// IsReady reflects the ring (the current playhead's source), not a
	// cache that isn't active yet, so poll by retrying the Seek itself.
	for i := 0; ; i++ {
		if i > 2000 {
			t.Fatalf("cache never became ready")
		}
		if seekReady, err := s.Seek(5000, read.Auto); err == nil && seekReady {
			break
		}
		time.Sleep(time.Millisecond)
	}

	ready, err := s.IsReady()
	if err != nil {
		t.Fatalf("IsReady after seek into cache: %v", err)
	}
	if !ready {
		t.Fatalf("expected immediate readiness after seeking into a loaded cache")
	}

	data, err := s.Read(5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if data.Channel(0)[0] != 5000 {
		t.Fatalf("first sample = %v, want 5000", data.Channel(0)[0])
	}
}

func TestStream_SeekUncoveredBuffersThenReadsCorrectFrame(t *testing.T) {
	s := openRamp(t, 10000, 0)

	if err := s.BlockUntilReady(); err != nil {
		t.Fatalf("BlockUntilReady: %v", err)
	}

	ready, err := s.Seek(7000, read.Auto)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if ready {
		t.Fatalf("expected Seek into an uncovered region to report not-ready")
	}

	if err := s.BlockUntilReady(); err != nil {
		t.Fatalf("BlockUntilReady: %v", err)
	}

	data, err := s.Read(1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if data.Channel(0)[0] != 7000 {
		t.Fatalf("first sample = %v, want 7000", data.Channel(0)[0])
	}
}

func TestStream_SeekIsIdempotent(t *testing.T) {
	s := openRamp(t, 10000, 0)

	if err := s.BlockUntilReady(); err != nil {
		t.Fatalf("BlockUntilReady: %v", err)
	}

	if _, err := s.Seek(500, read.Auto); err != nil {
		t.Fatalf("first Seek: %v", err)
	}
	if _, err := s.Seek(500, read.Auto); err != nil {
		t.Fatalf("second Seek: %v", err)
	}

	if err := s.BlockUntilReady(); err != nil {
		t.Fatalf("BlockUntilReady: %v", err)
	}

	if p := s.Playhead(); p != 500 {
		t.Fatalf("Playhead = %d, want 500", p)
	}
}

func TestStream_CacheIndexOutOfRange(t *testing.T) {
	s := openRamp(t, 1000, 0)

	if _, err := s.Cache(5, 0); !errors.Is(err, read.ErrCacheIndexOutOfRange) {
		t.Fatalf("Cache(5, ...) error = %v, want ErrCacheIndexOutOfRange", err)
	}
}

func TestStream_ReadZeroOrNegativeIsANoop(t *testing.T) {
	s := openRamp(t, 1000, 0)

	data, err := s.Read(0)
	if err != nil {
		t.Fatalf("Read(0): %v", err)
	}
	if data.NumFrames() != 0 {
		t.Fatalf("NumFrames = %d, want 0", data.NumFrames())
	}
	if s.Playhead() != 0 {
		t.Fatalf("Playhead moved on a zero-length read")
	}

	data, err = s.Read(-5)
	if err != nil {
		t.Fatalf("Read(-5): %v", err)
	}
	if data.NumFrames() != 0 {
		t.Fatalf("NumFrames = %d, want 0", data.NumFrames())
	}
}

func TestStream_FatalDecodeErrorLatches(t *testing.T) {
	wantErr := errors.New("disk fell off")

	dec := audiotest.NewMockDecoder(10000, 2, 48000, audiotest.Silence)
	dec.FailAtFrame = 0
	dec.FailErr = wantErr

	s, err := read.Open(dec, "mock.raw", 0, testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	var fatal error
	for i := 0; i < 2000; i++ {
		_, err := s.IsReady()
		if err != nil {
			fatal = err
			break
		}
		time.Sleep(time.Millisecond)
	}
	if fatal == nil {
		t.Fatalf("expected a latched fatal error")
	}

	var fe *read.FatalError
	if !errors.As(fatal, &fe) {
		t.Fatalf("error = %v, want a *read.FatalError", fatal)
	}
	if !errors.Is(fe.Cause, wantErr) {
		t.Fatalf("Cause = %v, want %v", fe.Cause, wantErr)
	}

	if _, err := s.Read(10); !errors.As(err, &fe) {
		t.Fatalf("Read after latch: error = %v, want a *read.FatalError", err)
	}
}
