package ecdsa

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/taurusgroup/mpc-client/pkg/math/curve"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

// LocalKey is a party's share of a jointly generated key. It is the only
// artifact expected to outlive a session: the holder retains it and presents
// its party number when logging in to later sign sessions. The Share field
// never crosses the transport.
type LocalKey struct {
	// I is the party number the share was generated for.
	I party.ID `cbor:"i"`
	// Threshold is the maximum number of parties assumed corrupted; t+1
	// shares are needed to sign.
	Threshold int `cbor:"t"`
	// PartyIDs is the full group membership the key was generated with.
	PartyIDs party.IDSlice `cbor:"parties"`
	// Share is the party's private share of the joint key.
	Share *curve.Scalar `cbor:"share"`
	// PublicShares maps each party number to its public share, allowing
	// shares revealed during signing to be verified.
	PublicShares map[party.ID]*curve.Point `cbor:"public_shares"`
	// PublicKey is the joint public key, identical for all parties.
	PublicKey *curve.Point `cbor:"public_key"`
}

// Validate performs a sanity check on the key: the party sets are coherent
// and the private share matches the public share recorded for I.
func (k *LocalKey) Validate() error {
	if k.Share == nil || k.PublicKey == nil {
		return errors.New("ecdsa.LocalKey: missing share or public key")
	}
	if !k.PartyIDs.Valid() || !k.PartyIDs.Contains(k.I) {
		return errors.New("ecdsa.LocalKey: invalid party set")
	}
	if k.Threshold < 1 || k.Threshold >= len(k.PartyIDs) {
		return fmt.Errorf("ecdsa.LocalKey: invalid threshold %d for %d parties", k.Threshold, len(k.PartyIDs))
	}
	public, ok := k.PublicShares[k.I]
	if !ok {
		return errors.New("ecdsa.LocalKey: missing own public share")
	}
	if !k.Share.ActOnBase().Equal(public) {
		return errors.New("ecdsa.LocalKey: share does not match public share")
	}
	return nil
}

// PublicKeyHex returns the compressed joint public key as a hex string.
func (k *LocalKey) PublicKeyHex() string {
	data, err := k.PublicKey.MarshalBinary()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(data)
}

// localKeyAlias avoids the BinaryMarshaler methods during cbor encoding.
type localKeyAlias LocalKey

// MarshalBinary implements encoding.BinaryMarshaler.
func (k *LocalKey) MarshalBinary() ([]byte, error) {
	return cbor.Marshal((*localKeyAlias)(k))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (k *LocalKey) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, (*localKeyAlias)(k))
}
