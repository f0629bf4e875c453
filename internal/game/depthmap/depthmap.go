// Package depthmap implements the lossless block codec for island
// shoreline depth grids.
//
// A square grid of byte samples is split into 8x8 blocks. Blocks whose 64
// samples are equal are stored inline in the block table; all others are
// copied into a pool of raw blocks referenced from the table.
package depthmap

import (
	"errors"
	"fmt"
)

// Block geometry.
const (
	BlockSize  = 8
	BlockShift = 3
	BlockCells = BlockSize * BlockSize // 64
)

// Table entry layout: bit 15 = uniform flag, bits [14:0] = value or pool index.
const (
	uniformFlag  uint16 = 0x8000
	payloadMask  uint16 = 0x7FFF
	MaxPoolBlocks       = int(payloadMask) + 1 // 32768
)

// MaxSize bounds the grid edge accepted by Build and Load.
const MaxSize = 1 << 15

// Empty is returned by Get on a map with no data.
// Consumers read it as "no island data here".
const Empty byte = 255

// Errors.
var (
	ErrInvalidSize  = errors.New("depth grid size must be a positive multiple of 8")
	ErrPoolOverflow = errors.New("depth grid has too many non-uniform blocks")
	ErrMalformed    = errors.New("malformed depth map")
)

// Map is a compressed depth grid. The zero Map is empty and returns Empty
// for every coordinate. A built or loaded Map is read-only and safe for
// concurrent Get calls.
type Map struct {
	size              uint32
	blocksPerRow      uint32
	blocksPerRowShift uint32
	table             []uint16
	pool              []byte
}

// Build compresses grid, a size x size row-major sample buffer.
// It panics if the result does not decode back to grid.
func Build(grid []byte, size int) (*Map, error) {
	if size <= 0 || size%BlockSize != 0 || size > MaxSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if len(grid) != size*size {
		return nil, fmt.Errorf("%w: grid has %d samples, want %d", ErrInvalidSize, len(grid), size*size)
	}

	bpr := size >> BlockShift
	m := &Map{
		size:              uint32(size),
		blocksPerRow:      uint32(bpr),
		blocksPerRowShift: shiftOf(uint32(bpr)),
		table:             make([]uint16, bpr*bpr),
	}

	var block [BlockCells]byte
	for i := range m.table {
		by, bx := i/bpr, i%bpr
		start := (by<<BlockShift)*size + (bx << BlockShift)
		for row := range BlockSize {
			off := start + row*size
			copy(block[row*BlockSize:(row+1)*BlockSize], grid[off:off+BlockSize])
		}

		if uniform(&block) {
			m.table[i] = uniformFlag | uint16(block[0])
			continue
		}

		slot := len(m.pool) / BlockCells
		if slot >= MaxPoolBlocks {
			return nil, fmt.Errorf("%w: more than %d", ErrPoolOverflow, MaxPoolBlocks)
		}
		m.table[i] = uint16(slot)
		m.pool = append(m.pool, block[:]...)
	}

	m.verify(grid)
	return m, nil
}

func uniform(block *[BlockCells]byte) bool {
	v := block[0]
	for _, s := range block[1:] {
		if s != v {
			return false
		}
	}
	return true
}

// verify panics if any sample fails to decode to its source value.
func (m *Map) verify(grid []byte) {
	size := int(m.size)
	for y := range size {
		for x := range size {
			if got, want := m.Get(x, y), grid[x+y*size]; got != want {
				panic(fmt.Sprintf("depthmap: encoder fault at (%d,%d): got %d, want %d", x, y, got, want))
			}
		}
	}
}

// Get returns the sample at (x, y). It panics if the coordinates lie
// outside the grid.
func (m *Map) Get(x, y int) byte {
	if len(m.table) == 0 {
		return Empty
	}
	if x < 0 || y < 0 || x >= int(m.size) || y >= int(m.size) {
		panic(fmt.Sprintf("depthmap: sample (%d,%d) out of range [0,%d)", x, y, m.size))
	}

	entry := m.table[(y>>BlockShift)*int(m.blocksPerRow)+(x>>BlockShift)]
	if entry&uniformFlag != 0 {
		return byte(entry & payloadMask)
	}
	cx := x & (BlockSize - 1)
	cy := y & (BlockSize - 1)
	return m.pool[int(entry)<<(2*BlockShift)+cy<<BlockShift+cx]
}

// Samples decodes the whole grid into a fresh size x size row-major buffer.
func (m *Map) Samples() []byte {
	size := int(m.size)
	grid := make([]byte, size*size)
	for y := range size {
		for x := range size {
			grid[x+y*size] = m.Get(x, y)
		}
	}
	return grid
}

// IsEmpty reports whether the map holds no data.
func (m *Map) IsEmpty() bool {
	return len(m.table) == 0
}

// Size returns the grid edge length in samples.
func (m *Map) Size() int { return int(m.size) }

// BlocksPerRow returns the number of blocks along one grid edge.
func (m *Map) BlocksPerRow() int { return int(m.blocksPerRow) }

// PoolBlocks returns the number of non-uniform blocks.
func (m *Map) PoolBlocks() int { return len(m.pool) / BlockCells }

// UniformBlocks returns the number of blocks stored inline.
func (m *Map) UniformBlocks() int { return len(m.table) - m.PoolBlocks() }

// EncodedSize returns the persisted size of the map in bytes.
func (m *Map) EncodedSize() int {
	return headerSize + 2*len(m.table) + len(m.pool)
}

// shiftOf returns log2(n) for powers of two and 0 otherwise.
func shiftOf(n uint32) uint32 {
	for i := range uint32(31) {
		if 1<<i == n {
			return i
		}
	}
	return 0
}
