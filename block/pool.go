// SPDX-License-Identifier: EPL-2.0

package block

// Pool is a pre-allocated free-list of Blocks, all sized identically. It
// is not safe for concurrent use: each stream's realtime client owns its
// Pool exclusively (the IO server keeps no pool and hands back the same
// blocks it received), and blocks move between sides only as payloads of
// spsc messages, never through a shared Pool.
//
// Take and Put are O(1) and never allocate, satisfying the realtime-safety
// requirement that the hot path never grows the heap.
type Pool struct {
	free           []*Block
	numChannels    int
	blockLen       int
	numConstructed int
}

// NewPool pre-allocates count Blocks of numChannels channels and blockLen
// frames each.
func NewPool(count, numChannels, blockLen int) *Pool {
	p := &Pool{
		free:        make([]*Block, 0, count),
		numChannels: numChannels,
		blockLen:    blockLen,
	}

	for i := 0; i < count; i++ {
		p.free = append(p.free, New(numChannels, blockLen))
	}
	p.numConstructed = count

	return p
}

// Take removes and returns a free block, or (nil, false) if the pool is
// exhausted.
func (p *Pool) Take() (*Block, bool) {
	n := len(p.free)
	if n == 0 {
		return nil, false
	}

	b := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]

	return b, true
}

// Put returns a block to the free list. The block must have come from this
// pool (or be sized identically to blocks from this pool); Put does not
// verify this on the hot path.
func (p *Pool) Put(b *Block) {
	p.free = append(p.free, b)
}

// TakeN removes and returns n free blocks as a single slice, or (nil,
// false) if fewer than n are available. On failure the pool is left
// untouched: TakeN never takes some and leaves the rest behind.
func (p *Pool) TakeN(n int) ([]*Block, bool) {
	if len(p.free) < n {
		return nil, false
	}

	out := make([]*Block, n)
	for i := 0; i < n; i++ {
		b, _ := p.Take()
		out[i] = b
	}

	return out, true
}

// PutN returns every block in bs to the free list.
func (p *Pool) PutN(bs []*Block) {
	p.free = append(p.free, bs...)
}

// Len returns the number of blocks currently available for Take.
func (p *Pool) Len() int {
	return len(p.free)
}

// NumConstructed returns the total number of blocks this pool ever
// allocated. It is constant for the pool's lifetime and is used by tests
// to check the block-conservation invariant.
func (p *Pool) NumConstructed() int {
	return p.numConstructed
}

// NumChannels returns the channel count of every block in this pool.
func (p *Pool) NumChannels() int {
	return p.numChannels
}

// BlockLen returns the frame length of every block in this pool.
func (p *Pool) BlockLen() int {
	return p.blockLen
}
