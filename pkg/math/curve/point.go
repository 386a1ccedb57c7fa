package curve

import (
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// BytesPoint is the length of a marshalled Point, in compressed form.
const BytesPoint = 33

// Point is a point on the secp256k1 curve, or the identity.
type Point struct {
	p secp256k1.JacobianPoint
}

// NewIdentityPoint returns the point at infinity.
func NewIdentityPoint() *Point {
	return &Point{}
}

// Add sets v = p + q, and returns v.
func (v *Point) Add(p, q *Point) *Point {
	secp256k1.AddNonConst(&p.p, &q.p, &v.p)
	return v
}

// Set sets v = p, and returns v.
func (v *Point) Set(p *Point) *Point {
	v.p.Set(&p.p)
	return v
}

// Equal returns true if v is equivalent to u.
func (v *Point) Equal(u *Point) bool {
	v.toAffine()
	u.toAffine()
	return v.p.X.Equals(&u.p.X) && v.p.Y.Equals(&u.p.Y) && v.p.Z.Equals(&u.p.Z)
}

// IsIdentity returns true if the point is ∞.
func (v *Point) IsIdentity() bool {
	return (v.p.X.IsZero() && v.p.Y.IsZero()) || v.p.Z.IsZero()
}

// ToPublicKey returns the point as a secp256k1 public key.
func (v *Point) ToPublicKey() (*secp256k1.PublicKey, error) {
	if v.IsIdentity() {
		return nil, errors.New("curve.Point: identity is not a valid public key")
	}
	v.toAffine()
	return secp256k1.NewPublicKey(&v.p.X, &v.p.Y), nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
// The point is written in compressed form, 33 bytes.
func (v *Point) MarshalBinary() ([]byte, error) {
	if v.IsIdentity() {
		return nil, errors.New("curve.Point: tried to marshal identity")
	}
	v.toAffine()
	data := make([]byte, BytesPoint)
	format := secp256k1.PubKeyFormatCompressedEven
	if v.p.Y.IsOdd() {
		format = secp256k1.PubKeyFormatCompressedOdd
	}
	data[0] = format
	v.p.X.PutBytesUnchecked(data[1:33])
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (v *Point) UnmarshalBinary(data []byte) error {
	if len(data) != BytesPoint {
		return errors.New("curve.Point: invalid length")
	}
	format := data[0]
	if format != secp256k1.PubKeyFormatCompressedOdd && format != secp256k1.PubKeyFormatCompressedEven {
		return errors.New("curve.Point: incorrect format")
	}
	var x, y secp256k1.FieldVal
	if overflow := x.SetByteSlice(data[1:33]); overflow {
		return errors.New("curve.Point: x >= field prime")
	}
	wantOddY := format == secp256k1.PubKeyFormatCompressedOdd
	if !secp256k1.DecompressY(&x, wantOddY, &y) {
		return fmt.Errorf("curve.Point: x coordinate %v is not on the secp256k1 curve", x)
	}
	y.Normalize()
	v.p.X.Set(&x)
	v.p.Y.Set(&y)
	v.p.Z.SetInt(1)
	return nil
}

// WriteTo implements io.WriterTo.
func (v *Point) WriteTo(w io.Writer) (int64, error) {
	data, err := v.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (*Point) Domain() string { return "Point" }

func (v *Point) toAffine() {
	if !v.p.Z.IsOne() {
		v.p.ToAffine()
	}
}
