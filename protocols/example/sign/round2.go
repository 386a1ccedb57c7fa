package sign

import (
	"errors"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/math/curve"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

type round2 struct {
	*round1

	// shares holds the revealed key shares, including our own.
	shares map[party.ID]*curve.Scalar
}

// message2 carries the revealed key share broadcast after round 1.
type message2 struct {
	Share *curve.Scalar `cbor:"share"`
}

// VerifyMessage checks the revealed share against the public share recorded
// at key generation.
func (r *round2) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message2)
	if !ok || body == nil || body.Share == nil {
		return round.ErrInvalidContent
	}
	public, ok := r.key.PublicShares[msg.From]
	if !ok {
		return errors.New("no public share recorded for sender")
	}
	if !body.Share.ActOnBase().Equal(public) {
		return errors.New("share does not match the public share")
	}
	return nil
}

// StoreMessage saves the sender's share.
func (r *round2) StoreMessage(msg round.Message) error {
	r.shares[msg.From] = msg.Content.(*message2).Share
	return nil
}

// Finalize interpolates the shares at zero to recover the key, and signs.
func (r *round2) Finalize(chan<- *round.Message) (round.Session, error) {
	secret := curve.NewScalar()
	for _, j := range r.PartyIDs() {
		term := curve.NewScalar().Multiply(curve.Lagrange(r.PartyIDs(), j), r.shares[j])
		secret.Add(secret, term)
	}
	if !secret.ActOnBase().Equal(r.key.PublicKey) {
		// every individual share was verified, so the key material itself is
		// inconsistent rather than any particular signer
		return r.AbortRound(errors.New("reconstructed key does not match the public key")), nil
	}

	sig := ecdsa.Sign(secret, r.message)
	if !sig.Verify(r.key.PublicKey, r.message) {
		return r.AbortRound(errors.New("produced signature failed to verify")), nil
	}
	return r.ResultRound(sig), nil
}

// RoundNumber implements round.Content.
func (message2) RoundNumber() round.Number { return 2 }

// MessageContent implements round.Round.
func (round2) MessageContent() round.Content { return &message2{} }

// Number implements round.Round.
func (round2) Number() round.Number { return 2 }
