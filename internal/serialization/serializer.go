package serialization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Serializer packs structured arguments into one flat vector.
//
// Matrices are written column-major. Reading back with a Deserializer in the
// same order and with the same shapes recovers the arguments.
type Serializer struct {
	buf []float64
}

// NewSerializer creates a serializer with room for capacity values.
func NewSerializer(capacity int) *Serializer {
	return &Serializer{buf: make([]float64, 0, capacity)}
}

// Scalar appends x.
func (s *Serializer) Scalar(x float64) {
	s.buf = append(s.buf, x)
}

// Slice appends xs in order.
func (s *Serializer) Slice(xs []float64) {
	s.buf = append(s.buf, xs...)
}

// Matrix appends m column by column.
func (s *Serializer) Matrix(m mat.Matrix) {
	r, c := m.Dims()
	for j := range c {
		for i := range r {
			s.buf = append(s.buf, m.At(i, j))
		}
	}
}

// Len returns the number of values written.
func (s *Serializer) Len() int {
	return len(s.buf)
}

// Values returns the packed vector. The slice is shared with the serializer.
func (s *Serializer) Values() []float64 {
	return s.buf
}

// Deserializer reads values packed by a Serializer.
type Deserializer struct {
	buf []float64
	pos int
}

// NewDeserializer reads from vals.
func NewDeserializer(vals []float64) *Deserializer {
	return &Deserializer{buf: vals}
}

func (d *Deserializer) take(n int) ([]float64, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, n, len(d.buf)-d.pos)
	}
	out := d.buf[d.pos : d.pos+n : d.pos+n]
	d.pos += n
	return out, nil
}

// Scalar reads one value.
func (d *Deserializer) Scalar() (float64, error) {
	v, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// Slice reads n values into a new slice.
func (d *Deserializer) Slice(n int) ([]float64, error) {
	v, err := d.take(n)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), v...), nil
}

// Matrix reads an r×c matrix stored column-major.
func (d *Deserializer) Matrix(r, c int) (*mat.Dense, error) {
	v, err := d.take(r * c)
	if err != nil {
		return nil, err
	}
	if r == 0 || c == 0 {
		return &mat.Dense{}, nil
	}
	m := mat.NewDense(r, c, nil)
	for j := range c {
		for i := range r {
			m.Set(i, j, v[j*r+i])
		}
	}
	return m, nil
}

// Remaining returns the number of unread values.
func (d *Deserializer) Remaining() int {
	return len(d.buf) - d.pos
}

// Done returns ErrTrailingValues if any value was left unread.
func (d *Deserializer) Done() error {
	if n := d.Remaining(); n > 0 {
		return fmt.Errorf("%w: %d", ErrTrailingValues, n)
	}
	return nil
}
