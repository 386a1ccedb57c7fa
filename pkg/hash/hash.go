// Package hash provides a domain separated hash function used to derive
// session identifiers (SSIDs) binding a protocol execution to its
// participants, threshold and payload.
package hash

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// DigestLengthBytes is the length of Sum's output.
const DigestLengthBytes = 32

// WriterToWithDomain represents a type writing itself to a hash state,
// and knowing the domain it should be separated under.
type WriterToWithDomain interface {
	io.WriterTo
	Domain() string
}

// Hash wraps a blake3 hasher and enforces domain separation on every write.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash with a fresh internal state.
func New() *Hash {
	return &Hash{h: blake3.New()}
}

// Digest returns a reader for the current output of the hash function.
// The hash state itself is not modified.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a digest of length DigestLengthBytes for the current hash state.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash: internal hash failure: %v", err))
	}
	return out
}

// WriteAny writes the given values to the hash state.
//
// Supported types:
//   - []byte
//   - uint16, uint32
//   - WriterToWithDomain
//
// Raw types get a generic domain; WriterToWithDomain provides its own.
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		switch t := d.(type) {
		case []byte:
			hash.writeDomain("bytes", len(t))
			_, _ = hash.h.Write(t)
		case uint16:
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], t)
			hash.writeDomain("uint16", 2)
			_, _ = hash.h.Write(b[:])
		case uint32:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], t)
			hash.writeDomain("uint32", 4)
			_, _ = hash.h.Write(b[:])
		case WriterToWithDomain:
			hash.writeDomain(t.Domain(), -1)
			if _, err := t.WriteTo(hash.h); err != nil {
				return fmt.Errorf("hash: write %q: %w", t.Domain(), err)
			}
		default:
			return fmt.Errorf("hash: unsupported type %T", d)
		}
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}

// writeDomain prefixes the next value with its domain and, when known, its
// length, so that concatenated writes cannot collide.
func (hash *Hash) writeDomain(domain string, size int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(len(domain)))
	_, _ = hash.h.Write(b[:])
	_, _ = hash.h.WriteString(domain)
	if size >= 0 {
		binary.BigEndian.PutUint64(b[:], uint64(size))
		_, _ = hash.h.Write(b[:])
	}
}

// BytesWithDomain is a useful wrapper to hash raw bytes under an explicit domain.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// WriteTo implements io.WriterTo.
func (b BytesWithDomain) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.Bytes)
	return int64(n), err
}

// Domain implements WriterToWithDomain.
func (b BytesWithDomain) Domain() string {
	return b.TheDomain
}
