// SPDX-License-Identifier: EPL-2.0

package read

import "github.com/ik5/diskstream/block"

// Block is the unit of decoded audio data exchanged between the IO server
// and the realtime client.
type Block = block.Block
