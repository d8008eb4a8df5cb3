// Package arena implements the bump allocators backing one differentiation episode.
//
// Two shapes of storage are provided:
//   - Slab[T]: variable-length slices carved from a chain of blocks (operand
//     lists, precomputed partials, container outputs).
//   - Seq[T]: an append-only, index-stable sequence of fixed-size items
//     (the node tape itself).
//
// Neither type frees individual objects. Memory is reclaimed all at once by
// Reset, or back to a snapshot by Release(Mark). Blocks are retained across
// resets so that repeated episodes of similar size stop allocating after the
// first one.
//
// Architecture:
//   - Blocks never move once allocated: a slice or pointer handed out stays
//     valid until the release that covers it.
//   - Exhausting a block moves to the next retained block, or allocates a new
//     one whose size grows geometrically (Config.Growth).
//   - Allocation has no error path; running out of memory is a runtime fatal.
package arena

import "unsafe"

// Config controls block sizing.
type Config struct {
	InitialBlock int // Items in the first block.
	Growth       int // Multiplier applied to the block size on each new block.
}

// DefaultConfig returns sensible defaults for a single scalar model evaluation.
func DefaultConfig() Config {
	return Config{
		InitialBlock: 4096,
		Growth:       2,
	}
}

func (c Config) normalize() Config {
	if c.InitialBlock <= 0 {
		c.InitialBlock = DefaultConfig().InitialBlock
	}
	if c.Growth < 2 {
		c.Growth = 2
	}
	return c
}

// Stats reports allocator usage.
type Stats struct {
	Blocks        int   // Blocks currently retained.
	BytesReserved int64 // Bytes held by retained blocks.
	BytesInUse    int64 // Bytes handed out since the last reset.
	Grows         int64 // Number of block allocations over the arena lifetime.
}

// Add combines two stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Blocks:        s.Blocks + o.Blocks,
		BytesReserved: s.BytesReserved + o.BytesReserved,
		BytesInUse:    s.BytesInUse + o.BytesInUse,
		Grows:         s.Grows + o.Grows,
	}
}

// Mark is a cursor snapshot taken by Mark and restored by Release.
type Mark struct {
	block int
	off   int
	used  int64
}

// Slab hands out zeroed slices from a chain of blocks.
type Slab[T any] struct {
	cfg    Config
	blocks [][]T
	cur    int   // Index of the block being carved.
	off    int   // Cursor inside blocks[cur].
	next   int   // Size of the next new block.
	used   int64 // Items handed out since last reset.
	grows  int64
	onGrow func(bytes int64)
}

// NewSlab creates an empty slab. No memory is reserved until the first Alloc.
func NewSlab[T any](cfg Config) *Slab[T] {
	cfg = cfg.normalize()
	return &Slab[T]{cfg: cfg, next: cfg.InitialBlock}
}

// OnGrow registers a callback invoked with the byte size of every new block.
func (s *Slab[T]) OnGrow(fn func(bytes int64)) {
	s.onGrow = fn
}

// Alloc returns a zeroed slice of length and capacity n.
// The slice stays valid until Reset or a Release to an earlier mark.
func (s *Slab[T]) Alloc(n int) []T {
	if n <= 0 {
		return nil
	}
	if len(s.blocks) == 0 || s.off+n > len(s.blocks[s.cur]) {
		s.advance(n)
	}
	b := s.blocks[s.cur][s.off : s.off+n : s.off+n]
	s.off += n
	s.used += int64(n)
	clear(b)
	return b
}

// advance moves the cursor to a block with room for n items.
func (s *Slab[T]) advance(n int) {
	if len(s.blocks) > 0 {
		s.cur++
	}
	s.off = 0
	if s.cur < len(s.blocks) && len(s.blocks[s.cur]) >= n {
		return
	}

	size := max(s.next, n)
	s.next = size * s.cfg.Growth
	block := make([]T, size)
	s.grows++
	if s.onGrow != nil {
		s.onGrow(int64(size) * s.itemSize())
	}

	// Retained blocks that are too small stay behind the new one for later reuse.
	if s.cur >= len(s.blocks) {
		s.blocks = append(s.blocks, block)
		return
	}
	s.blocks = append(s.blocks, nil)
	copy(s.blocks[s.cur+1:], s.blocks[s.cur:])
	s.blocks[s.cur] = block
}

// Mark snapshots the current cursor.
func (s *Slab[T]) Mark() Mark {
	return Mark{block: s.cur, off: s.off, used: s.used}
}

// Release rewinds the cursor to m, invalidating everything allocated after it.
func (s *Slab[T]) Release(m Mark) {
	s.cur, s.off, s.used = m.block, m.off, m.used
}

// Reset invalidates every allocation and keeps the blocks for reuse.
func (s *Slab[T]) Reset() {
	s.Release(Mark{})
}

// Stats reports usage in bytes.
func (s *Slab[T]) Stats() Stats {
	size := s.itemSize()
	var reserved int64
	for _, b := range s.blocks {
		reserved += int64(len(b))
	}
	return Stats{
		Blocks:        len(s.blocks),
		BytesReserved: reserved * size,
		BytesInUse:    s.used * size,
		Grows:         s.grows,
	}
}

func (s *Slab[T]) itemSize() int64 {
	var zero T
	return int64(unsafe.Sizeof(zero))
}
