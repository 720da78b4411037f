// SPDX-License-Identifier: EPL-2.0

package read

import (
	"log/slog"
	"time"

	"github.com/ik5/diskstream"
	"github.com/ik5/diskstream/block"
	"github.com/ik5/diskstream/internal/spsc"
)

// blockingPollInterval is the poll period used by BlockUntilReady. It is a
// non-realtime convenience call, so the sleep loop here is fine where it
// would not be on the Read hot path.
const blockingPollInterval = time.Millisecond

// sourceKind tells the stream which of the two block sources currently
// backs the playhead.
type sourceKind int

const (
	sourceRing sourceKind = iota
	sourceCache
)

// cacheData is the payload a cache holds once filled: a contiguous run of
// NumCacheBlocks blocks starting at cacheEntry.startFrame.
type cacheData struct {
	blocks []*Block
}

// cacheEntry tracks one user-addressable cache slot. data is the currently
// installed, servable payload; it is kept in place (and kept servable)
// even while a new fill for this same index is in flight, so moving a
// cache never produces a gap of unreadiness. loading is true while a fill
// request is outstanding; gen discriminates a fill response that arrived
// for a request this cache has since moved past (a second Cache call
// before the first's response arrived).
type cacheEntry struct {
	data       *cacheData
	startFrame int64
	loading    bool
	gen        int64
}

// ringSlot is one block-aligned position in the lookahead ring.
type ringSlot struct {
	block      *Block
	startFrame int64
}

// Stream is a realtime-safe, seekable, prefetching reader for one audio
// file. A Stream must only be used from one goroutine at a time; like
// the IO server it drives, it holds no internal lock, since contention
// with the server is avoided entirely by routing every interaction
// through the lock-free queues in internal/spsc.
type Stream struct {
	toServer   *spsc.Ring[toServerMsg]
	fromServer *spsc.Ring[fromServerMsg]
	srv        *server
	pool       *block.Pool

	opts Options
	info diskstream.FileInfo

	epoch    int64
	fatalErr error
	closed   bool

	playhead int64
	source   sourceKind

	// ring state
	ring          []ringSlot
	ringHeadIdx   int
	ringHeadStart int64
	frameInBlock  int
	numPrefetch   int

	// cache state
	caches           []cacheEntry
	activeCacheIndex int
	handoffScheduled bool

	// silence is a shared, never-mutated-after-construction zeroed block
	// returned by readFromRing while the ring's front slot has not yet
	// been filled by the server.
	silence *Block
}

// Open opens path through dec and starts a dedicated IO server goroutine
// positioned at startFrame. dec is owned by that goroutine for the
// lifetime of the returned Stream; the caller must not touch it again.
func Open(dec Decoder, path string, startFrame int64, opts Options) (*Stream, error) {
	if opts.BlockLen <= 0 || opts.NumLookAheadBlocks <= 0 {
		panic("diskstream/read: BlockLen and NumLookAheadBlocks must be positive")
	}
	if opts.NumCacheBlocks < 0 || opts.NumCaches < 0 {
		panic("diskstream/read: NumCacheBlocks and NumCaches must not be negative")
	}
	if startFrame < 0 {
		return nil, ErrInvalidArgument
	}

	toServerQ := spsc.New[toServerMsg](opts.channelCapacity())
	fromServerQ := spsc.New[fromServerMsg](opts.channelCapacity())

	srv := newServer(dec, toServerQ, fromServerQ, slog.Default().With("component", "diskstream.read", "path", path))

	type openResult struct {
		totalFrames int64
		numChannels int
		sampleRate  int
		err         error
	}
	resultCh := make(chan openResult, 1)

	go func() {
		total, channels, rate, _, err := dec.Open(path, startFrame)
		resultCh <- openResult{total, channels, rate, err}
		if err != nil {
			close(srv.closeCh)
			return
		}
		srv.ringPos = startFrame
		srv.run()
	}()

	res := <-resultCh
	if res.err != nil {
		return nil, res.err
	}

	numInFlight := opts.NumLookAheadBlocks + opts.NumCacheBlocks
	poolSize := opts.NumLookAheadBlocks + opts.NumCacheBlocks*opts.NumCaches + numInFlight
	pool := block.NewPool(poolSize, res.numChannels, opts.BlockLen)

	s := &Stream{
		toServer:   toServerQ,
		fromServer: fromServerQ,
		srv:        srv,
		pool:       pool,
		opts:       opts,
		info: diskstream.FileInfo{
			NumFrames:   res.totalFrames,
			NumChannels: res.numChannels,
			SampleRate:  res.sampleRate,
			BlockLen:    opts.BlockLen,
		},
		ring:        make([]ringSlot, opts.NumLookAheadBlocks),
		numPrefetch: opts.NumLookAheadBlocks,
		caches:      make([]cacheEntry, opts.NumCaches),
		playhead:    startFrame,
		silence:     block.New(res.numChannels, opts.BlockLen),
	}

	aligned := startFrame - startFrame%int64(opts.BlockLen)
	s.resetRingAt(aligned, int(startFrame-aligned))

	return s, nil
}

// Info returns the stream's file-level metadata.
func (s *Stream) Info() diskstream.FileInfo {
	return s.info
}

// Playhead returns the current read position, in frames.
func (s *Stream) Playhead() int64 {
	return s.playhead
}

// NumCaches returns the number of user-addressable caches this stream was
// opened with.
func (s *Stream) NumCaches() int {
	return len(s.caches)
}

// CanMoveCache reports whether Cache(index, ...) can be called without
// introducing a gap of unreadiness, for any currently-loaded cache at
// index. A cache retains its previously loaded data, and keeps serving it,
// for the entire time a new fill for the same index is in flight, so a
// move is always seamless once the index is valid.
func (s *Stream) CanMoveCache(index int) bool {
	return index >= 0 && index < len(s.caches)
}

func (s *Stream) cacheLen() int64 {
	return int64(s.opts.NumCacheBlocks) * int64(s.opts.BlockLen)
}

// Cache asks the IO server to fill cache index with NumCacheBlocks blocks
// starting at startFrame. It returns (false, nil) if that cache already
// holds exactly this range and no fill is needed.
func (s *Stream) Cache(index int, startFrame int64) (bool, error) {
	if s.fatalErr != nil {
		return false, &FatalError{Cause: s.fatalErr}
	}
	if s.closed {
		return false, ErrStreamClosed
	}
	if index < 0 || index >= len(s.caches) {
		return false, ErrCacheIndexOutOfRange
	}
	if startFrame < 0 {
		return false, ErrInvalidArgument
	}

	if err := s.poll(); err != nil {
		return false, err
	}

	entry := &s.caches[index]
	if entry.data != nil && !entry.loading && entry.startFrame == startFrame {
		return false, nil
	}

	if s.toServer.Slots() < 1 {
		return false, ErrChannelFull
	}

	blocks, ok := s.pool.TakeN(s.opts.NumCacheBlocks)
	if !ok {
		return false, ErrPoolExhausted
	}

	entry.gen++
	entry.loading = true

	if !s.toServer.Push(toServerMsg{
		kind:       msgCacheFill,
		epoch:      s.epoch,
		startFrame: startFrame,
		cacheIndex: index,
		cacheGen:   entry.gen,
		blocks:     blocks,
	}) {
		s.pool.PutN(blocks)
		entry.loading = false
		entry.gen--
		return false, ErrChannelFull
	}

	return true, nil
}

// Seek moves the playhead to frame. If a cache already covers frame (the
// lowest-indexed one wins ties), the stream switches to serving from it
// immediately and returns (true, nil). Otherwise it resets the lookahead
// ring to start buffering from frame's block boundary and returns (false,
// nil); IsReady reports when the first block has arrived.
func (s *Stream) Seek(frame int64, mode SeekMode) (bool, error) {
	if s.fatalErr != nil {
		return false, &FatalError{Cause: s.fatalErr}
	}
	if s.closed {
		return false, ErrStreamClosed
	}
	if frame < 0 {
		return false, ErrInvalidArgument
	}

	if err := s.poll(); err != nil {
		return false, err
	}

	if s.toServer.Slots() < s.numPrefetch+1 {
		return false, ErrChannelFull
	}

	s.epoch++

	if mode == Auto {
		for i := range s.caches {
			c := &s.caches[i]
			if c.data == nil {
				continue
			}
			if frame >= c.startFrame && frame < c.startFrame+s.cacheLen() {
				s.source = sourceCache
				s.activeCacheIndex = i
				s.playhead = frame
				s.handoffScheduled = false
				return true, nil
			}
		}
	}

	aligned := frame - frame%int64(s.opts.BlockLen)
	s.resetRingAt(aligned, int(frame-aligned))
	s.playhead = frame

	return false, nil
}

// IsReady reports whether the next Read call will return real (not
// buffering-silence) data.
func (s *Stream) IsReady() (bool, error) {
	if s.fatalErr != nil {
		return false, &FatalError{Cause: s.fatalErr}
	}
	if err := s.poll(); err != nil {
		return false, err
	}
	if s.closed {
		return false, ErrStreamClosed
	}

	if s.source == sourceCache {
		return s.caches[s.activeCacheIndex].data != nil, nil
	}

	return s.ring[s.ringHeadIdx].block != nil, nil
}

// BlockUntilReady polls IsReady until it reports true or an error occurs.
// It is a non-realtime convenience for callers outside the audio callback,
// such as initial playback setup.
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

// Read returns up to numFrames of audio starting at the current playhead.
// It never returns more than the frames remaining before the current
// block's boundary, so a read spanning a boundary always takes two calls.
// Past end of file it keeps returning decoder-provided silence; callers
// detect this through Data.ReachedEndOfFile.
func (s *Stream) Read(numFrames int) (Data, error) {
	if s.fatalErr != nil {
		return Data{}, &FatalError{Cause: s.fatalErr}
	}
	if s.closed {
		return Data{}, ErrStreamClosed
	}
	if numFrames <= 0 {
		return Data{}, nil
	}
	if numFrames > s.opts.BlockLen {
		numFrames = s.opts.BlockLen
	}

	if err := s.poll(); err != nil {
		return Data{}, err
	}

	if s.source == sourceCache {
		return s.readFromCache(numFrames)
	}

	return s.readFromRing(numFrames)
}

func (s *Stream) readFromCache(numFrames int) (Data, error) {
	cache := &s.caches[s.activeCacheIndex]
	if cache.data == nil {
		return Data{}, nil
	}

	offset := s.playhead - cache.startFrame
	if offset < 0 || offset >= s.cacheLen() {
		if !s.handoffScheduled || s.ringHeadStart != s.playhead {
			// The playhead walked off the cache before a handoff was
			// scheduled (e.g. a cache much shorter than one lookahead
			// window). Recover by buffering fresh from here; this
			// reintroduces the gap of unreadiness the handoff normally
			// avoids.
			aligned := s.playhead - s.playhead%int64(s.opts.BlockLen)
			s.resetRingAt(aligned, int(s.playhead-aligned))
		}
		s.source = sourceRing
		return s.readFromRing(numFrames)
	}

	blockIdx := int(offset) / s.opts.BlockLen
	frameInBlock := int(offset) % s.opts.BlockLen
	avail := s.opts.BlockLen - frameInBlock

	n := numFrames
	if n > avail {
		n = avail
	}

	blk := cache.data.blocks[blockIdx]
	eof := s.playhead+int64(n) >= s.info.NumFrames

	s.playhead += int64(n)
	s.maybeHandoffFromCache(cache)

	return Data{block: blk, offset: frameInBlock, numFrames: n, reachedEOF: eof}, nil
}

// maybeHandoffFromCache begins buffering the region just past the active
// cache once fewer than one lookahead ring's worth of frames remain in
// it, so the ring is already populated by the time the playhead walks off
// the end of the cache.
func (s *Stream) maybeHandoffFromCache(cache *cacheEntry) {
	if s.handoffScheduled {
		return
	}

	remaining := cache.startFrame + s.cacheLen() - s.playhead
	if remaining > int64(s.numPrefetch*s.opts.BlockLen) {
		return
	}
	if s.toServer.Slots() < s.numPrefetch+1 {
		// Try again on a later Read call; the cache still holds enough
		// data to keep serving in the meantime.
		return
	}

	s.scheduleHandoff(cache.startFrame + s.cacheLen())
	s.frameInBlock = 0
	s.handoffScheduled = true
}

func (s *Stream) readFromRing(numFrames int) (Data, error) {
	slot := &s.ring[s.ringHeadIdx]

	if slot.block == nil {
		avail := s.opts.BlockLen - s.frameInBlock
		n := numFrames
		if n > avail {
			n = avail
		}

		s.playhead += int64(n)
		s.frameInBlock += n
		if s.frameInBlock >= s.opts.BlockLen {
			s.advanceRing()
			s.frameInBlock = 0
		}

		return Data{block: s.silence, offset: 0, numFrames: n, reachedEOF: false}, nil
	}

	avail := s.opts.BlockLen - s.frameInBlock
	n := numFrames
	if n > avail {
		n = avail
	}

	eof := s.playhead+int64(n) >= s.info.NumFrames

	data := Data{block: slot.block, offset: s.frameInBlock, numFrames: n, reachedEOF: eof}

	s.playhead += int64(n)
	s.frameInBlock += n
	if s.frameInBlock >= s.opts.BlockLen {
		s.advanceRing()
		s.frameInBlock = 0
	}

	return data, nil
}

// advanceRing retires the block at the ring's head, returning it to the
// pool, and posts a request for the block NumLookAheadBlocks ahead of the
// slot that is now the new head.
func (s *Stream) advanceRing() {
	slot := &s.ring[s.ringHeadIdx]
	if slot.block != nil {
		s.pool.Put(slot.block)
		slot.block = nil
	}

	newStart := s.ringHeadStart + int64(s.numPrefetch)*int64(s.opts.BlockLen)
	slot.startFrame = newStart

	if blk, ok := s.pool.Take(); ok {
		if !s.toServer.Push(toServerMsg{kind: msgReadIntoSlot, epoch: s.epoch, startFrame: newStart, slotIndex: s.ringHeadIdx, block: blk}) {
			s.pool.Put(blk)
		}
	}

	s.ringHeadIdx = (s.ringHeadIdx + 1) % s.numPrefetch
	s.ringHeadStart += int64(s.opts.BlockLen)
}

// scheduleHandoff repopulates every ring slot with a fresh request for
// NumLookAheadBlocks consecutive blocks starting at alignedStart, without
// touching the active source. It backs both Seek's uncovered case and the
// cache-to-ring handoff.
func (s *Stream) scheduleHandoff(alignedStart int64) {
	// The server decodes sequentially from wherever its decoder is
	// currently positioned. SeekTo is pushed first so that, by the
	// queue's FIFO order, the decoder is already at alignedStart when the
	// ReadIntoSlot requests below arrive; the server also seeks on its own
	// whenever a ReadIntoSlot's start frame differs from its position.
	s.toServer.Push(toServerMsg{kind: msgSeekTo, epoch: s.epoch, startFrame: alignedStart})

	for i := 0; i < s.numPrefetch; i++ {
		slot := &s.ring[i]
		if slot.block != nil {
			s.pool.Put(slot.block)
			slot.block = nil
		}

		start := alignedStart + int64(i)*int64(s.opts.BlockLen)
		slot.startFrame = start

		if blk, ok := s.pool.Take(); ok {
			if !s.toServer.Push(toServerMsg{kind: msgReadIntoSlot, epoch: s.epoch, startFrame: start, slotIndex: i, block: blk}) {
				s.pool.Put(blk)
			}
		}
	}

	s.ringHeadIdx = 0
	s.ringHeadStart = alignedStart
}

// resetRingAt switches the active source to the ring and schedules a
// fresh fill starting at alignedStart, with the playhead frameOffset
// frames into the first slot.
func (s *Stream) resetRingAt(alignedStart int64, frameOffset int) {
	s.scheduleHandoff(alignedStart)
	s.frameInBlock = frameOffset
	s.source = sourceRing
	s.handoffScheduled = false
}

// poll drains every pending response from the IO server, installing each
// into its ring slot or cache entry, or discarding it back to the pool if
// it has been superseded by a later epoch or cache generation.
func (s *Stream) poll() error {
	for {
		msg, ok := s.fromServer.TryPop()
		if !ok {
			return nil
		}

		switch msg.kind {
		case msgSlotFilled:
			slot := &s.ring[msg.slotIndex]
			if msg.epoch == s.epoch && msg.startFrame == slot.startFrame {
				if slot.block != nil {
					s.pool.Put(slot.block)
				}
				slot.block = msg.block
			} else {
				s.pool.Put(msg.block)
			}
		case msgCacheFilled:
			entry := &s.caches[msg.cacheIndex]
			if msg.cacheGen == entry.gen {
				old := entry.data
				entry.data = &cacheData{blocks: msg.blocks}
				entry.startFrame = msg.startFrame
				entry.loading = false
				if old != nil {
					s.pool.PutN(old.blocks)
				}
			} else {
				s.pool.PutN(msg.blocks)
			}
		case msgFatalError:
			s.fatalErr = msg.err
			return &FatalError{Cause: msg.err}
		}
	}
}

// Close signals the IO server to shut down and blocks until it has. It is
// not realtime-safe and must be called exactly once, outside the audio
// callback.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	for !s.toServer.Push(toServerMsg{kind: msgShutdown}) {
		time.Sleep(blockingPollInterval)
	}
	<-s.srv.closeCh

	return nil
}
