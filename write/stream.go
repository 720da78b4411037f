// SPDX-License-Identifier: EPL-2.0

package write

import (
	"log/slog"
	"time"

	"github.com/ik5/diskstream"
	"github.com/ik5/diskstream/block"
	"github.com/ik5/diskstream/internal/spsc"
)

// blockingPollInterval is the poll period used by BlockUntilReady, not the
// realtime Write path.
const blockingPollInterval = time.Millisecond

// Stream is a realtime-safe writer for one audio file. A Stream must only
// be used from one goroutine at a time; like read.Stream, it holds no
// internal lock because every interaction with the IO server goroutine is
// routed through the lock-free queues in internal/spsc.
//
// Writing uses a double-buffer scheme: current is the block being filled
// by Write calls, next is a spare ready to take over the instant current
// fills up, and pool holds every other block currently not in flight to
// or from the server.
type Stream struct {
	toServer   *spsc.Ring[toServerMsg]
	fromServer *spsc.Ring[fromServerMsg]
	srv        *server
	pool       *block.Pool

	opts Options
	info diskstream.FileInfo

	current *Block
	next    *Block

	fatalErr     error
	closed       bool
	fileFinished bool
}

// Open opens path through enc and starts a dedicated IO server goroutine.
// enc is owned by that goroutine for the lifetime of the returned Stream;
// the caller must not touch it again.
func Open(enc Encoder, path string, numChannels, sampleRate int, opts Options) (*Stream, error) {
	if opts.BlockLen <= 0 {
		panic("diskstream/write: BlockLen must be positive")
	}
	if opts.NumWriteBlocks <= 2 {
		panic("diskstream/write: NumWriteBlocks must be greater than two")
	}
	if numChannels <= 0 || sampleRate <= 0 {
		return nil, ErrInvalidArgument
	}

	toServerQ := spsc.New[toServerMsg](opts.channelCapacity())
	fromServerQ := spsc.New[fromServerMsg](opts.channelCapacity())

	srv := newServer(enc, toServerQ, fromServerQ, slog.Default().With("component", "diskstream.write", "path", path))

	resultCh := make(chan error, 1)

	go func() {
		err := enc.Open(path, numChannels, sampleRate)
		resultCh <- err
		if err != nil {
			close(srv.closeCh)
			return
		}
		srv.run()
	}()

	if err := <-resultCh; err != nil {
		return nil, err
	}

	pool := block.NewPool(opts.NumWriteBlocks, numChannels, opts.BlockLen)

	s := &Stream{
		toServer:   toServerQ,
		fromServer: fromServerQ,
		srv:        srv,
		pool:       pool,
		opts:       opts,
		info: diskstream.FileInfo{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
			BlockLen:    opts.BlockLen,
		},
	}

	s.current = s.takeFreshBlock()
	s.next = s.takeFreshBlock()

	return s, nil
}

// takeFreshBlock takes a block from the pool and marks it empty: pool
// blocks come back from block.New with Frames() == Len() (fully valid, the
// convention a read.Decoder wants), which is the wrong initial state for a
// block that is about to be written into from scratch.
func (s *Stream) takeFreshBlock() *Block {
	b, ok := s.pool.Take()
	if !ok {
		return nil
	}

	b.SetFrames(0)

	return b
}

// Info returns the stream's file-level metadata. NumFrames grows as frames
// are written.
func (s *Stream) Info() diskstream.FileInfo {
	return s.info
}

// IsReady reports whether Write can currently accept a full block's worth
// of frames without blocking or failing.
func (s *Stream) IsReady() (bool, error) {
	if err := s.poll(); err != nil {
		return false, err
	}
	if s.closed {
		return false, ErrStreamClosed
	}

	return s.current != nil && s.next != nil && s.toServer.Slots() > 0, nil
}

// BlockUntilReady blocks the calling goroutine until IsReady reports true.
// Not realtime-safe; intended for setup code only.
func (s *Stream) BlockUntilReady() error {
	for {
		ready, err := s.IsReady()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}

		time.Sleep(blockingPollInterval)
	}
}

// Write copies one channel-major buffer of frames into the stream,
// flushing full blocks to the IO server as they fill. Every channel slice
// in channels must have the same length, which must not exceed
// Options.BlockLen; callers that have more than one block's worth of
// frames must call Write once per block.
func (s *Stream) Write(channels [][]float32) error {
	if s.fatalErr != nil {
		return &FatalError{Cause: s.fatalErr}
	}
	if s.closed {
		return ErrStreamClosed
	}
	if len(channels) != s.info.NumChannels {
		return ErrInvalidBuffer
	}

	bufLen := 0
	if len(channels) > 0 {
		bufLen = len(channels[0])
	}
	for _, ch := range channels {
		if len(ch) != bufLen {
			return ErrInvalidBuffer
		}
	}
	if bufLen > s.opts.BlockLen {
		return ErrBufferTooLong
	}
	if bufLen == 0 {
		return nil
	}

	if err := s.poll(); err != nil {
		return err
	}
	if s.toServer.Slots() < 1 {
		return ErrChannelFull
	}
	if s.current == nil || s.next == nil {
		return ErrUnderflow
	}

	cur := s.current
	written := cur.Frames()

	if written+bufLen > s.opts.BlockLen {
		firstLen := s.opts.BlockLen - written
		secondLen := bufLen - firstLen

		for ch := range channels {
			copy(cur.Channels[ch][written:s.opts.BlockLen], channels[ch][:firstLen])
		}
		cur.SetFrames(s.opts.BlockLen)

		if !s.toServer.Push(toServerMsg{kind: msgWriteBlock, block: cur, validFrames: s.opts.BlockLen}) {
			cur.SetFrames(written)
			return ErrChannelFull
		}

		next := s.next
		for ch := range channels {
			copy(next.Channels[ch][:secondLen], channels[ch][firstLen:])
		}
		next.SetFrames(secondLen)

		s.current = next
		s.next = s.takeFreshBlock()
	} else {
		end := written + bufLen

		for ch := range channels {
			copy(cur.Channels[ch][written:end], channels[ch])
		}
		cur.SetFrames(end)

		if end == s.opts.BlockLen {
			if !s.toServer.Push(toServerMsg{kind: msgWriteBlock, block: cur, validFrames: end}) {
				cur.SetFrames(written)
				return ErrChannelFull
			}

			s.current = s.next
			s.next = s.takeFreshBlock()
		}
	}

	s.info.NumFrames += int64(bufLen)

	return nil
}

// FinishAndClose flushes any partially filled block, tells the IO server
// to finalize the file, and marks the stream closed: Write cannot be used
// after this returns, even though the file may still be finishing on the
// server goroutine. Poll PollFileFinished to learn when it actually lands.
func (s *Stream) FinishAndClose() error {
	if s.fatalErr != nil {
		return &FatalError{Cause: s.fatalErr}
	}
	if s.closed {
		return ErrStreamClosed
	}

	if err := s.poll(); err != nil {
		return err
	}

	if s.current != nil && s.current.Frames() > 0 {
		if s.toServer.Slots() < 1 {
			return ErrChannelFull
		}

		s.toServer.Push(toServerMsg{kind: msgWriteBlock, block: s.current, validFrames: s.current.Frames()})
		s.current = nil
	}

	if s.toServer.Slots() < 1 {
		return ErrChannelFull
	}

	s.toServer.Push(toServerMsg{kind: msgFinish})
	s.closed = true

	return nil
}

// PollFileFinished reports whether the file has finished being written to
// disk after a call to FinishAndClose.
func (s *Stream) PollFileFinished() (bool, error) {
	if err := s.poll(); err != nil {
		return false, err
	}

	return s.fileFinished, nil
}

func (s *Stream) poll() error {
	if s.fatalErr != nil {
		return &FatalError{Cause: s.fatalErr}
	}

	for {
		msg, ok := s.fromServer.TryPop()
		if !ok {
			return nil
		}

		switch msg.kind {
		case msgNewWriteBlock:
			switch {
			case s.current == nil:
				s.current = msg.block
			case s.next == nil:
				s.next = msg.block
			default:
				s.pool.Put(msg.block)
			}
		case msgFileFinished:
			s.fileFinished = true
		case msgFatalError:
			s.fatalErr = msg.err
			return &FatalError{Cause: msg.err}
		}
	}
}

// Close shuts down the IO server goroutine and waits for it to exit. It is
// idempotent. Calling it before FinishAndClose abandons the file in
// whatever state the encoder last left it; callers that want a complete
// file must call FinishAndClose (and, to be sure, poll PollFileFinished)
// first.
func (s *Stream) Close() error {
	if !s.closed {
		s.closed = true

		for !s.toServer.Push(toServerMsg{kind: msgShutdown}) {
			time.Sleep(blockingPollInterval)
		}
	}

	// Wait for the server goroutine to exit, whether it got here via
	// msgShutdown above or already exited on its own after msgFinish (in
	// which case srv.closeCh is already closed and this returns at once).
	<-s.srv.closeCh

	return nil
}
