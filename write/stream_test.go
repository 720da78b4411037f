// SPDX-License-Identifier: EPL-2.0

package write_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ik5/diskstream/internal/audiotest"
	"github.com/ik5/diskstream/write"
)

func testOptions() write.Options {
	return write.Options{
		BlockLen:       16,
		NumWriteBlocks: 4,
	}
}

func openMock(t *testing.T) (*write.Stream, *audiotest.MockEncoder) {
	t.Helper()

	enc := &audiotest.MockEncoder{}
	s, err := write.Open(enc, "mock.raw", 2, 48000, testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s, enc
}

func frames(n int, start float32) [][]float32 {
	ch0 := make([]float32, n)
	ch1 := make([]float32, n)
	for i := 0; i < n; i++ {
		ch0[i] = start + float32(i)
		ch1[i] = -(start + float32(i))
	}

	return [][]float32{ch0, ch1}
}

func TestStream_WriteExactlyOneBlockFlushesIt(t *testing.T) {
	s, enc := openMock(t)

	if err := s.Write(frames(16, 0)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for enc.FramesWritten() < 16 {
		if time.Now().After(deadline) {
			t.Fatalf("encoder never received the flushed block, got %d frames", enc.FramesWritten())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStream_WriteSpanningBlockBoundarySplitsCorrectly(t *testing.T) {
	s, enc := openMock(t)

	// 10 frames fill the first block to 10/16; another 10 overflows it by 4.
	if err := s.Write(frames(10, 0)); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := s.Write(frames(10, 10)); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for enc.FramesWritten() < 16 {
		if time.Now().After(deadline) {
			t.Fatalf("encoder never received the filled block, got %d frames", enc.FramesWritten())
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.FinishAndClose(); err != nil {
		t.Fatalf("FinishAndClose: %v", err)
	}

	deadline = time.Now().Add(time.Second)
	for {
		done, err := s.PollFileFinished()
		if err != nil {
			t.Fatalf("PollFileFinished: %v", err)
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("file never finished")
		}
		time.Sleep(time.Millisecond)
	}

	if got := enc.FramesWritten(); got != 20 {
		t.Fatalf("total frames written = %d, want 20", got)
	}
	if info := s.Info(); info.NumFrames != 20 {
		t.Fatalf("Info().NumFrames = %d, want 20", info.NumFrames)
	}
}

func TestStream_FinishAndCloseFlushesPartialBlock(t *testing.T) {
	s, enc := openMock(t)

	if err := s.Write(frames(5, 0)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.FinishAndClose(); err != nil {
		t.Fatalf("FinishAndClose: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		done, err := s.PollFileFinished()
		if err != nil {
			t.Fatalf("PollFileFinished: %v", err)
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("file never finished")
		}
		time.Sleep(time.Millisecond)
	}

	if !enc.Finished() {
		t.Fatalf("expected encoder.Finish to have been called")
	}
	if got := enc.FramesWritten(); got != 5 {
		t.Fatalf("frames written = %d, want 5", got)
	}
}

func TestStream_WriteAfterFinishAndCloseIsRejected(t *testing.T) {
	s, _ := openMock(t)

	if err := s.FinishAndClose(); err != nil {
		t.Fatalf("FinishAndClose: %v", err)
	}

	if err := s.Write(frames(1, 0)); !errors.Is(err, write.ErrStreamClosed) {
		t.Fatalf("Write after FinishAndClose: error = %v, want ErrStreamClosed", err)
	}
}

func TestStream_WriteBufferTooLongIsRejected(t *testing.T) {
	s, _ := openMock(t)

	if err := s.Write(frames(17, 0)); !errors.Is(err, write.ErrBufferTooLong) {
		t.Fatalf("Write(17 frames): error = %v, want ErrBufferTooLong", err)
	}
}

func TestStream_WriteMismatchedChannelCountIsRejected(t *testing.T) {
	s, _ := openMock(t)

	if err := s.Write(frames(4, 0)[:1]); !errors.Is(err, write.ErrInvalidBuffer) {
		t.Fatalf("Write with one channel: error = %v, want ErrInvalidBuffer", err)
	}
}

func TestStream_WriteMismatchedChannelLengthIsRejected(t *testing.T) {
	s, _ := openMock(t)

	buf := frames(4, 0)
	buf[1] = buf[1][:2]

	if err := s.Write(buf); !errors.Is(err, write.ErrInvalidBuffer) {
		t.Fatalf("Write with mismatched channel lengths: error = %v, want ErrInvalidBuffer", err)
	}
}

func TestStream_BlockUntilReady(t *testing.T) {
	s, _ := openMock(t)

	if err := s.BlockUntilReady(); err != nil {
		t.Fatalf("BlockUntilReady: %v", err)
	}

	ready, err := s.IsReady()
	if err != nil {
		t.Fatalf("IsReady: %v", err)
	}
	if !ready {
		t.Fatalf("expected a freshly opened stream to be ready")
	}
}

func TestStream_FatalEncodeErrorLatches(t *testing.T) {
	wantErr := errors.New("disk full")

	enc := &audiotest.MockEncoder{FailEncode: wantErr}
	s, err := write.Open(enc, "mock.raw", 2, 48000, testOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Write(frames(16, 0)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var fatal error
	deadline := time.Now().Add(time.Second)
	for {
		if _, err := s.IsReady(); err != nil {
			fatal = err
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a latched fatal error")
		}
		time.Sleep(time.Millisecond)
	}

	var fe *write.FatalError
	if !errors.As(fatal, &fe) {
		t.Fatalf("error = %v, want a *write.FatalError", fatal)
	}
	if !errors.Is(fe.Cause, wantErr) {
		t.Fatalf("Cause = %v, want %v", fe.Cause, wantErr)
	}

	if err := s.Write(frames(1, 0)); !errors.As(err, &fe) {
		t.Fatalf("Write after latch: error = %v, want a *write.FatalError", err)
	}
}

func TestStream_BlockConservation(t *testing.T) {
	s, enc := openMock(t)

	for i := 0; i < 50; i++ {
		// Four blocks cover only a few 16-frame flushes, so every later
		// Write needs a block the server has already handed back.
		if err := s.BlockUntilReady(); err != nil {
			t.Fatalf("BlockUntilReady before Write %d: %v", i, err)
		}
		if err := s.Write(frames(7, float32(i*7))); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	if err := s.FinishAndClose(); err != nil {
		t.Fatalf("FinishAndClose: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		done, err := s.PollFileFinished()
		if err != nil {
			t.Fatalf("PollFileFinished: %v", err)
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("file never finished")
		}
		time.Sleep(time.Millisecond)
	}

	if got := enc.FramesWritten(); got != 350 {
		t.Fatalf("frames written = %d, want 350", got)
	}
}
