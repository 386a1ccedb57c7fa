// Package curve wraps the secp256k1 group operations needed by the demo
// engines and the key/signature types.
package curve

import (
	"errors"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// BytesScalar is the length of a marshalled Scalar.
const BytesScalar = 32

// Scalar is an integer modulo the order of the secp256k1 group.
type Scalar struct {
	s secp256k1.ModNScalar
}

// NewScalar returns a new zero Scalar.
func NewScalar() *Scalar {
	return &Scalar{}
}

// NewScalarUInt32 returns a new Scalar set to x.
func NewScalarUInt32(x uint32) *Scalar {
	var s Scalar
	s.s.SetInt(x)
	return &s
}

// NewScalarRandom returns a new Scalar sampled uniformly from rand.
func NewScalarRandom(rand io.Reader) (*Scalar, error) {
	var buf [BytesScalar]byte
	var s Scalar
	for {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return nil, err
		}
		if overflow := s.s.SetBytes(&buf); overflow == 0 && !s.s.IsZero() {
			return &s, nil
		}
	}
}

// Set sets s = x, and returns s.
func (s *Scalar) Set(x *Scalar) *Scalar {
	s.s.Set(&x.s)
	return s
}

// Add sets s = x + y, and returns s.
func (s *Scalar) Add(x, y *Scalar) *Scalar {
	s.s.Add2(&x.s, &y.s)
	return s
}

// Subtract sets s = x - y, and returns s.
func (s *Scalar) Subtract(x, y *Scalar) *Scalar {
	neg := new(secp256k1.ModNScalar).NegateVal(&y.s)
	s.s.Add2(&x.s, neg)
	return s
}

// Multiply sets s = x * y, and returns s.
func (s *Scalar) Multiply(x, y *Scalar) *Scalar {
	s.s.Mul2(&x.s, &y.s)
	return s
}

// Invert sets s = x⁻¹ mod q, and returns s.
func (s *Scalar) Invert(x *Scalar) *Scalar {
	s.s.InverseValNonConst(&x.s)
	return s
}

// Equal returns true if s = x.
func (s *Scalar) Equal(x *Scalar) bool {
	return s.s.Equals(&x.s)
}

// IsZero returns true if s = 0.
func (s *Scalar) IsZero() bool {
	return s.s.IsZero()
}

// ActOnBase returns s * G, where G is the canonical generator.
func (s *Scalar) ActOnBase() *Point {
	var p Point
	secp256k1.ScalarBaseMultNonConst(&s.s, &p.p)
	return &p
}

// Act returns s * q.
func (s *Scalar) Act(q *Point) *Point {
	var p Point
	secp256k1.ScalarMultNonConst(&s.s, &q.p, &p.p)
	return &p
}

// ToPrivateKey interprets the scalar as a secp256k1 private key.
func (s *Scalar) ToPrivateKey() *secp256k1.PrivateKey {
	return secp256k1.NewPrivateKey(&s.s)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Scalar) MarshalBinary() ([]byte, error) {
	data := make([]byte, BytesScalar)
	s.s.PutBytesUnchecked(data)
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != BytesScalar {
		return errors.New("curve.Scalar: invalid length")
	}
	var scalar secp256k1.ModNScalar
	if scalar.SetByteSlice(data) {
		return errors.New("curve.Scalar: scalar was >= q")
	}
	s.s.Set(&scalar)
	return nil
}

// WriteTo implements io.WriterTo.
func (s *Scalar) WriteTo(w io.Writer) (int64, error) {
	data, _ := s.MarshalBinary()
	n, err := w.Write(data)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Scalar) Domain() string { return "Scalar" }
