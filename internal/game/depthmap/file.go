package depthmap

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// header is the fixed file prefix. Field order is the on-disk order; the
// format has no version tag, so any change here breaks existing caches.
type header struct {
	Size              uint32
	BlocksPerRow      uint32
	BlockSize         uint32
	BlockShift        uint32
	BlocksPerRowShift uint32
	PoolBlocks        uint32
}

const headerSize = 6 * 4

// WriteTo writes the map in the persisted layout: header, u16 table,
// raw pool blocks. All integers are little-endian.
func (m *Map) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	h := header{
		Size:              m.size,
		BlocksPerRow:      m.blocksPerRow,
		BlockSize:         BlockSize,
		BlockShift:        BlockShift,
		BlocksPerRowShift: m.blocksPerRowShift,
		PoolBlocks:        uint32(m.PoolBlocks()),
	}
	if err := binary.Write(cw, binary.LittleEndian, h); err != nil {
		return cw.n, fmt.Errorf("writing depth map header: %w", err)
	}
	if err := binary.Write(cw, binary.LittleEndian, m.table); err != nil {
		return cw.n, fmt.Errorf("writing depth map table: %w", err)
	}
	if _, err := cw.Write(m.pool); err != nil {
		return cw.n, fmt.Errorf("writing depth map pool: %w", err)
	}
	return cw.n, nil
}

// ReadFrom replaces m with a map read from r. On error m is left unchanged.
func (m *Map) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}

	var h header
	if err := binary.Read(cr, binary.LittleEndian, &h); err != nil {
		return cr.n, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if err := h.validate(); err != nil {
		return cr.n, err
	}

	table := make([]uint16, int(h.BlocksPerRow)*int(h.BlocksPerRow))
	if err := binary.Read(cr, binary.LittleEndian, table); err != nil {
		return cr.n, fmt.Errorf("%w: table: %v", ErrMalformed, err)
	}
	for i, entry := range table {
		if entry&uniformFlag == 0 && uint32(entry) >= h.PoolBlocks {
			return cr.n, fmt.Errorf("%w: block %d references pool slot %d of %d", ErrMalformed, i, entry, h.PoolBlocks)
		}
	}

	pool := make([]byte, int(h.PoolBlocks)*BlockCells)
	if _, err := io.ReadFull(cr, pool); err != nil {
		return cr.n, fmt.Errorf("%w: pool: %v", ErrMalformed, err)
	}

	*m = Map{
		size:              h.Size,
		blocksPerRow:      h.BlocksPerRow,
		blocksPerRowShift: h.BlocksPerRowShift,
		table:             table,
		pool:              pool,
	}
	return cr.n, nil
}

func (h header) validate() error {
	switch {
	case h.BlockSize != BlockSize || h.BlockShift != BlockShift:
		return fmt.Errorf("%w: block size %d shift %d", ErrMalformed, h.BlockSize, h.BlockShift)
	case h.Size == 0 || h.Size > MaxSize || h.Size%BlockSize != 0:
		return fmt.Errorf("%w: size %d", ErrMalformed, h.Size)
	case h.BlocksPerRow<<BlockShift != h.Size:
		return fmt.Errorf("%w: %d blocks per row for size %d", ErrMalformed, h.BlocksPerRow, h.Size)
	case h.PoolBlocks > h.BlocksPerRow*h.BlocksPerRow || h.PoolBlocks > uint32(MaxPoolBlocks):
		return fmt.Errorf("%w: %d pool blocks", ErrMalformed, h.PoolBlocks)
	}
	return nil
}

// MarshalBinary encodes the map in the persisted layout.
func (m *Map) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(m.EncodedSize())
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes data produced by MarshalBinary. Trailing bytes
// are rejected. On error m is left unchanged.
func (m *Map) UnmarshalBinary(data []byte) error {
	var tmp Map
	n, err := tmp.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if int(n) != len(data) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(data)-int(n))
	}
	*m = tmp
	return nil
}

// Save writes the map to path.
func (m *Map) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating depth map %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if _, err := m.WriteTo(bw); err != nil {
		f.Close()
		return fmt.Errorf("saving depth map %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("saving depth map %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing depth map %s: %w", path, err)
	}
	return nil
}

// Load reads a map saved with Save.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading depth map %s: %w", path, err)
	}
	m := &Map{}
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("parsing depth map %s: %w", path, err)
	}
	return m, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
