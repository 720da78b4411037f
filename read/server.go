// SPDX-License-Identifier: EPL-2.0

package read

import (
	"log/slog"
	"time"

	"github.com/ik5/diskstream/internal/spsc"
)

// serverWaitTime is how long the IO server idles between polls of an empty
// inbound queue. Go's runtime has no SPSC-with-park primitive in the
// retrieval pack's ecosystem (rtrb's blocking behavior is Rust-specific),
// so a short sleep backoff is the idiomatic substitute here.
const serverWaitTime = 500 * time.Microsecond

// server is the non-realtime IO worker for one read stream. It owns the
// Decoder and all blocking file access exclusively; the realtime client
// never touches either.
type server struct {
	decoder Decoder
	log     *slog.Logger

	toServer   *spsc.Ring[toServerMsg]
	fromServer *spsc.Ring[fromServerMsg]
	closeCh    chan struct{}

	fatal error

	// ringPos tracks the decoder's current read position as the ring
	// side of the protocol understands it. handleCacheFill seeks away
	// from and back to this position so that a cache fill never disturbs
	// the sequential decoding the ring depends on.
	ringPos int64
}

func newServer(decoder Decoder, toServer *spsc.Ring[toServerMsg], fromServer *spsc.Ring[fromServerMsg], log *slog.Logger) *server {
	return &server{
		decoder:    decoder,
		log:        log,
		toServer:   toServer,
		fromServer: fromServer,
		closeCh:    make(chan struct{}),
	}
}

func (s *server) run() {
	defer close(s.closeCh)
	defer s.decoder.Close()

	for {
		msg, ok := s.toServer.TryPop()
		if !ok {
			time.Sleep(serverWaitTime)
			continue
		}

		switch msg.kind {
		case msgReadIntoSlot:
			s.handleReadIntoSlot(msg)
			if s.fatal != nil {
				return
			}
		case msgSeekTo:
			if err := s.decoder.Seek(msg.startFrame); err != nil {
				s.latch(msg.epoch, err)
				return
			}
			s.ringPos = msg.startFrame
		case msgCacheFill:
			s.handleCacheFill(msg)
			if s.fatal != nil {
				return
			}
		case msgShutdown:
			return
		}
	}
}

func (s *server) handleReadIntoSlot(msg toServerMsg) {
	if msg.startFrame != s.ringPos {
		if err := s.decoder.Seek(msg.startFrame); err != nil {
			s.latch(msg.epoch, err)
			return
		}
	}

	filled, err := s.decoder.Decode(msg.block)
	if err != nil {
		s.latch(msg.epoch, err)
		return
	}
	s.ringPos = msg.startFrame + int64(msg.block.Len())

	s.send(fromServerMsg{
		kind:         msgSlotFilled,
		epoch:        msg.epoch,
		startFrame:   msg.startFrame,
		slotIndex:    msg.slotIndex,
		block:        msg.block,
		filledFrames: filled,
	})
}

// handleCacheFill decodes msg.blocks starting at msg.startFrame, then
// seeks back to wherever the ring's sequential decoding was, so that a
// cache fill is invisible to ring reads interleaved around it.
func (s *server) handleCacheFill(msg toServerMsg) {
	savedPos := s.ringPos

	if err := s.decoder.Seek(msg.startFrame); err != nil {
		s.latch(msg.epoch, err)
		return
	}

	for _, b := range msg.blocks {
		if _, err := s.decoder.Decode(b); err != nil {
			s.latch(msg.epoch, err)
			return
		}
	}

	if err := s.decoder.Seek(savedPos); err != nil {
		s.latch(msg.epoch, err)
		return
	}

	s.send(fromServerMsg{
		kind:       msgCacheFilled,
		epoch:      msg.epoch,
		startFrame: msg.startFrame,
		cacheIndex: msg.cacheIndex,
		cacheGen:   msg.cacheGen,
		blocks:     msg.blocks,
	})
}

func (s *server) latch(epoch int64, err error) {
	s.fatal = err
	s.log.Error("fatal decode error, latching", "error", err)
	s.send(fromServerMsg{kind: msgFatalError, epoch: epoch, err: err})
}

// send retries the push, sleeping serverWaitTime between attempts and
// never parking on a channel, until the outbound ring has room; there is
// no attempt limit. The ring is sized generously enough relative to the
// pool that this should never spin for long; it exists as a safety net,
// mirroring ReadServer::send_msg's retry loop in the original
// implementation.
func (s *server) send(msg fromServerMsg) {
	for !s.fromServer.Push(msg) {
		time.Sleep(serverWaitTime)
	}
}
