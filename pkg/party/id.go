package party

import (
	"encoding/binary"
	"io"
	"strconv"
)

// ByteSize is the number of bytes required to store an ID.
const ByteSize = 2

// MAX is the largest value an ID can take.
const MAX = (1 << (ByteSize * 8)) - 1

// ID is the identifier of a party within a group. Party numbers are assigned
// by the relay in join order, starting at 1, and remain stable for the
// lifetime of the group. 0 is never a valid ID and is used as the "broadcast"
// destination in message envelopes.
type ID uint16

// Bytes returns a big endian []byte slice of length party.ByteSize.
func (id ID) Bytes() []byte {
	b := make([]byte, ByteSize)
	binary.BigEndian.PutUint16(b, uint16(id))
	return b
}

// String returns a base 10 representation of the ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Valid reports whether the ID is a usable party number.
func (id ID) Valid() bool {
	return id != 0
}

// FromBytes reads the first party.ByteSize bytes of b and creates an ID from them.
func FromBytes(b []byte) ID {
	return ID(binary.BigEndian.Uint16(b))
}

// WriteTo implements io.WriterTo.
func (id ID) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(id.Bytes())
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (ID) Domain() string {
	return "Party ID"
}
