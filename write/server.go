// SPDX-License-Identifier: EPL-2.0

package write

import (
	"log/slog"
	"time"

	"github.com/ik5/diskstream/internal/spsc"
)

// serverWaitTime is how long the IO server idles between polls of an empty
// inbound queue, mirroring read/server.go's backoff.
const serverWaitTime = 500 * time.Microsecond

// server is the non-realtime IO worker for one write stream. It owns the
// Encoder and all blocking file access exclusively; the realtime client
// never touches either.
type server struct {
	encoder Encoder
	log     *slog.Logger

	toServer   *spsc.Ring[toServerMsg]
	fromServer *spsc.Ring[fromServerMsg]
	closeCh    chan struct{}

	fatal error
}

func newServer(encoder Encoder, toServer *spsc.Ring[toServerMsg], fromServer *spsc.Ring[fromServerMsg], log *slog.Logger) *server {
	return &server{
		encoder:    encoder,
		log:        log,
		toServer:   toServer,
		fromServer: fromServer,
		closeCh:    make(chan struct{}),
	}
}

func (s *server) run() {
	defer close(s.closeCh)
	defer s.encoder.Close()

	for {
		msg, ok := s.toServer.TryPop()
		if !ok {
			time.Sleep(serverWaitTime)
			continue
		}

		switch msg.kind {
		case msgWriteBlock:
			s.handleWriteBlock(msg)
			if s.fatal != nil {
				return
			}
		case msgFinish:
			s.handleFinish()
			return
		case msgShutdown:
			return
		}
	}
}

func (s *server) handleWriteBlock(msg toServerMsg) {
	if err := s.encoder.Encode(msg.block, msg.validFrames); err != nil {
		s.latch(err)
		return
	}

	msg.block.SetFrames(0)
	s.send(fromServerMsg{kind: msgNewWriteBlock, block: msg.block})
}

func (s *server) handleFinish() {
	if err := s.encoder.Finish(); err != nil {
		s.latch(err)
		return
	}

	s.send(fromServerMsg{kind: msgFileFinished})
}

func (s *server) latch(err error) {
	s.fatal = err
	s.log.Error("fatal encode error, latching", "error", err)
	s.send(fromServerMsg{kind: msgFatalError, err: err})
}

// send retries the push, sleeping serverWaitTime between attempts and
// never parking on a channel, until the outbound ring has room; there is
// no attempt limit. It mirrors read/server.go's send.
func (s *server) send(msg fromServerMsg) {
	for !s.fromServer.Push(msg) {
		time.Sleep(serverWaitTime)
	}
}
