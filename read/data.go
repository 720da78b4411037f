// SPDX-License-Identifier: EPL-2.0

package read

// Data is a borrowed view into the samples returned by Read. It is only
// valid until the next call to Read, Seek, or Cache on the same stream.
type Data struct {
	block      *Block
	offset     int
	numFrames  int
	reachedEOF bool
}

// NumFrames returns the number of frames in this view.
func (d Data) NumFrames() int {
	return d.numFrames
}

// NumChannels returns the number of channels available.
func (d Data) NumChannels() int {
	if d.block == nil {
		return 0
	}

	return len(d.block.Channels)
}

// Channel returns the samples for one channel. Its length equals
// NumFrames().
func (d Data) Channel(i int) []float32 {
	if d.block == nil {
		return nil
	}

	return d.block.Channels[i][d.offset : d.offset+d.numFrames]
}

// ReachedEndOfFile reports whether this view reaches the end of the file:
// its last frame is the file's final frame or lies past it. A view of
// buffering silence (returned while the block has not arrived yet)
// always reports false.
func (d Data) ReachedEndOfFile() bool {
	return d.reachedEOF
}
