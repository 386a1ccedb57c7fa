// Package ecdsa defines the artifacts produced by the keygen and sign
// operations: a party's LocalKey and a verifiable Signature.
package ecdsa

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	decred "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/taurusgroup/mpc-client/pkg/math/curve"
)

// Signature is an ECDSA signature over secp256k1.
type Signature struct {
	r, s secp256k1.ModNScalar
}

// Digest returns the 32 byte digest signed in place of the message.
func Digest(message []byte) []byte {
	d := sha3.Sum256(message)
	return d[:]
}

// Sign produces a deterministic (RFC 6979) signature of message under key.
func Sign(key *curve.Scalar, message []byte) *Signature {
	sig := decred.Sign(key.ToPrivateKey(), Digest(message))
	return &Signature{r: sig.R(), s: sig.S()}
}

// Verify reports whether the signature is valid for message under the public
// key point.
func (sig *Signature) Verify(public *curve.Point, message []byte) bool {
	pk, err := public.ToPublicKey()
	if err != nil {
		return false
	}
	return decred.NewSignature(&sig.r, &sig.s).Verify(Digest(message), pk)
}

// Serialize returns the DER encoded signature.
func (sig *Signature) Serialize() []byte {
	return decred.NewSignature(&sig.r, &sig.s).Serialize()
}

// MarshalBinary implements encoding.BinaryMarshaler, as r ∥ s, 64 bytes.
func (sig *Signature) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 2*curve.BytesScalar)
	r := sig.r.Bytes()
	s := sig.s.Bytes()
	out = append(out, r[:]...)
	out = append(out, s[:]...)
	return out, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (sig *Signature) UnmarshalBinary(data []byte) error {
	if len(data) != 2*curve.BytesScalar {
		return errors.New("ecdsa.Signature: invalid length")
	}
	if sig.r.SetByteSlice(data[:curve.BytesScalar]) {
		return errors.New("ecdsa.Signature: r >= group order")
	}
	if sig.s.SetByteSlice(data[curve.BytesScalar:]) {
		return errors.New("ecdsa.Signature: s >= group order")
	}
	return nil
}
