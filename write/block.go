// SPDX-License-Identifier: EPL-2.0

package write

import "github.com/ik5/diskstream/block"

// Block is the unit of audio data exchanged between the realtime client
// and the IO server. Frames/SetFrames track how many leading frames hold
// real, caller-written data. block.New leaves that count at Len(), so the
// stream resets it to zero when it takes a block fresh off the pool
// (takeFreshBlock), unlike a freshly decoded read/Block.
type Block = block.Block
