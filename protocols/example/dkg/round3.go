package dkg

import (
	"errors"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/math/curve"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

type round3 struct {
	*round2

	// share accumulates Σⱼ fⱼ(i), starting from our own evaluation.
	share *curve.Scalar
}

// message3 carries the share fⱼ(i) sent privately to party i.
type message3 struct {
	Share *curve.Scalar `cbor:"share"`
}

// VerifyMessage checks the received share against the sender's commitments:
// share·G must equal the committed polynomial evaluated at our party number.
func (r *round3) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message3)
	if !ok || body == nil || body.Share == nil {
		return round.ErrInvalidContent
	}
	expected := evaluateExponent(r.commitments[msg.From], curve.FromID(r.SelfID()))
	if !body.Share.ActOnBase().Equal(expected) {
		return errors.New("share is not consistent with the commitments")
	}
	return nil
}

// StoreMessage adds the verified share to our own.
func (r *round3) StoreMessage(msg round.Message) error {
	r.share.Add(r.share, msg.Content.(*message3).Share)
	return nil
}

// Finalize assembles the LocalKey: the joint public key is the sum of the
// constant term commitments, and every party's public share is derivable from
// the commitments alone.
func (r *round3) Finalize(chan<- *round.Message) (round.Session, error) {
	publicKey := curve.NewIdentityPoint()
	for _, commitments := range r.commitments {
		publicKey.Add(publicKey, commitments[0])
	}

	publicShares := make(map[party.ID]*curve.Point, r.N())
	for _, j := range r.PartyIDs() {
		x := curve.FromID(j)
		public := curve.NewIdentityPoint()
		for _, commitments := range r.commitments {
			public.Add(public, evaluateExponent(commitments, x))
		}
		publicShares[j] = public
	}

	key := &ecdsa.LocalKey{
		I:            r.SelfID(),
		Threshold:    r.Threshold(),
		PartyIDs:     r.PartyIDs(),
		Share:        r.share,
		PublicShares: publicShares,
		PublicKey:    publicKey,
	}
	if err := key.Validate(); err != nil {
		return r.AbortRound(err), nil
	}
	return r.ResultRound(key), nil
}

// RoundNumber implements round.Content.
func (message3) RoundNumber() round.Number { return 3 }

// MessageContent implements round.Round.
func (round3) MessageContent() round.Content { return &message3{} }

// Number implements round.Round.
func (round3) Number() round.Number { return 3 }
