// SPDX-License-Identifier: EPL-2.0

package read

// msgKind tags the payload carried by toServerMsg / fromServerMsg.
type msgKind int

const (
	msgReadIntoSlot msgKind = iota
	msgSeekTo
	msgCacheFill
	msgShutdown

	msgSlotFilled
	msgCacheFilled
	msgFatalError
)

// toServerMsg is sent from the realtime client to the IO server. Every
// outbound read/cache job carries the epoch active when it was posted;
// the server only ever echoes epoch back, it never inspects it.
type toServerMsg struct {
	kind msgKind

	epoch      int64
	startFrame int64

	// msgReadIntoSlot
	slotIndex int
	block     *Block

	// msgCacheFill
	cacheIndex int
	cacheGen   int64
	blocks     []*Block
}

// fromServerMsg is sent from the IO server back to the realtime client.
type fromServerMsg struct {
	kind msgKind

	epoch      int64
	startFrame int64

	// msgSlotFilled
	slotIndex    int
	block        *Block
	filledFrames int

	// msgCacheFilled
	cacheIndex int
	cacheGen   int64
	blocks     []*Block

	// msgFatalError
	err error
}
