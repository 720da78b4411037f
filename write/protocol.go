// SPDX-License-Identifier: EPL-2.0

package write

// msgKind tags the payload carried by toServerMsg / fromServerMsg.
type msgKind int

const (
	msgWriteBlock msgKind = iota
	msgFinish
	msgShutdown

	msgNewWriteBlock
	msgFileFinished
	msgFatalError
)

// toServerMsg is sent from the realtime client to the IO server.
type toServerMsg struct {
	kind msgKind

	// msgWriteBlock
	block       *Block
	validFrames int
}

// fromServerMsg is sent from the IO server back to the realtime client.
type fromServerMsg struct {
	kind msgKind

	// msgNewWriteBlock: the same block object the client last sent in a
	// msgWriteBlock, handed back once the server is done encoding it.
	block *Block

	// msgFatalError
	err error
}
