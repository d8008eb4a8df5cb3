package arena

import (
	"math/bits"
	"unsafe"
)

// Seq is an append-only sequence with stable element addresses.
//
// Block i holds base<<i items, so element k lives in block
// floor(log2(k/base+1)) and lookups are O(1) without a block table scan.
// Truncate keeps the blocks; later pushes overwrite the released slots.
type Seq[T any] struct {
	base   int
	blocks [][]T
	n      int
	grows  int64
	onGrow func(bytes int64)
}

// NewSeq creates an empty sequence whose first block holds cfg.InitialBlock items.
func NewSeq[T any](cfg Config) *Seq[T] {
	cfg = cfg.normalize()
	return &Seq[T]{base: cfg.InitialBlock}
}

// OnGrow registers a callback invoked with the byte size of every new block.
func (s *Seq[T]) OnGrow(fn func(bytes int64)) {
	s.onGrow = fn
}

// locate maps an index to its block and offset.
func (s *Seq[T]) locate(i int) (int, int) {
	q := uint(i/s.base + 1)
	b := bits.Len(q) - 1
	return b, i - s.base*((1<<b)-1)
}

// Push appends v and returns its index.
func (s *Seq[T]) Push(v T) int {
	i := s.n
	b, off := s.locate(i)
	if b == len(s.blocks) {
		size := s.base << b
		s.blocks = append(s.blocks, make([]T, size))
		s.grows++
		if s.onGrow != nil {
			var zero T
			s.onGrow(int64(size) * int64(unsafe.Sizeof(zero)))
		}
	}
	s.blocks[b][off] = v
	s.n++
	return i
}

// At returns a pointer to element i. The pointer stays valid until a
// Truncate below i.
func (s *Seq[T]) At(i int) *T {
	b, off := s.locate(i)
	return &s.blocks[b][off]
}

// Len returns the number of live elements.
func (s *Seq[T]) Len() int {
	return s.n
}

// Truncate drops every element at index n and above.
func (s *Seq[T]) Truncate(n int) {
	if n < s.n {
		s.n = max(n, 0)
	}
}

// Stats reports usage in bytes.
func (s *Seq[T]) Stats() Stats {
	var zero T
	size := int64(unsafe.Sizeof(zero))
	var reserved int64
	for _, b := range s.blocks {
		reserved += int64(len(b))
	}
	return Stats{
		Blocks:        len(s.blocks),
		BytesReserved: reserved * size,
		BytesInUse:    int64(s.n) * size,
		Grows:         s.grows,
	}
}
