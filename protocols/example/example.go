// Package example provides engines suitable for demonstrating and testing the
// client without a production threshold signing implementation. The dkg and
// sign engines produce real secp256k1 ECDSA signatures, but reveal the key
// shares to the other participants while doing so. Do not use them to protect
// anything.
package example

import (
	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/protocol"
	"github.com/taurusgroup/mpc-client/protocols/example/dkg"
	"github.com/taurusgroup/mpc-client/protocols/example/sign"
	"github.com/taurusgroup/mpc-client/protocols/example/xor"
)

// StartXOR returns a StartFunc for a trivial two round protocol where each
// party broadcasts 32 random bytes and the output is the XOR of all
// contributions.
func StartXOR(selfID party.ID, partyIDs party.IDSlice) protocol.StartFunc {
	return xor.StartXOR(selfID, partyIDs)
}

// StartKeygen returns a StartFunc generating threshold ECDSA key shares using
// Feldman verifiable secret sharing. All n parties must participate; the
// result is an *ecdsa.LocalKey.
func StartKeygen(selfID party.ID, partyIDs party.IDSlice, threshold int) protocol.StartFunc {
	return dkg.StartKeygen(selfID, partyIDs, threshold)
}

// StartSign returns a StartFunc producing an *ecdsa.Signature over message
// with the given key share. The signers set must contain at least threshold+1
// of the parties the key was generated with.
//
// The engine reconstructs the full private key from the revealed shares, so
// it offers no security. It exists to exercise the signing flow end to end.
func StartSign(key *ecdsa.LocalKey, signers party.IDSlice, message []byte) protocol.StartFunc {
	return sign.StartSign(key, signers, message)
}
