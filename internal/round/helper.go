package round

import (
	"errors"
	"fmt"
	"sync"

	"github.com/taurusgroup/mpc-client/pkg/hash"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

// ErrOutChannelFull is returned when the out channel cannot accept the
// message a round wants to send. The channel provided by the handler is
// buffered large enough for any protocol round, so this points to a
// misbehaving engine.
var ErrOutChannelFull = errors.New("round: failed to send message, out channel was full")

// Info contains the static information describing an engine execution.
type Info struct {
	// ProtocolID is an identifier for this protocol.
	ProtocolID string
	// FinalRoundNumber is the number of rounds before the output round.
	FinalRoundNumber Number
	// SelfID is this party's ID.
	SelfID party.ID
	// PartyIDs is the set of participating parties.
	PartyIDs []party.ID
	// Threshold is the maximum number of parties assumed corrupted.
	Threshold int
}

// Helper implements Session without Round, and can therefore be embedded in
// the first round of an engine in order to satisfy the Session interface.
type Helper struct {
	info Info

	partyIDs      party.IDSlice
	otherPartyIDs party.IDSlice

	// ssid is the unique identifier for this protocol execution.
	ssid []byte

	hash *hash.Hash

	mtx sync.Mutex
}

// NewSession creates a *Helper which can be embedded in the first Round so
// that the full struct implements Session.
//
// sessionID should be unique for each execution of the protocol; it is bound
// into the SSID together with the protocol, participants and threshold.
// auxInfo is an optional list of additional data bound to the hash state,
// such as the message being signed.
func NewSession(info Info, sessionID []byte, auxInfo ...hash.WriterToWithDomain) (*Helper, error) {
	partyIDs := party.NewIDSlice(info.PartyIDs)
	if !partyIDs.Valid() {
		return nil, errors.New("session: partyIDs invalid")
	}
	if !partyIDs.Contains(info.SelfID) {
		return nil, errors.New("session: selfID not included in partyIDs")
	}
	if n := len(partyIDs); info.Threshold < 0 || info.Threshold > n-1 {
		return nil, fmt.Errorf("session: threshold %d is invalid for number of parties %d", info.Threshold, n)
	}

	h := hash.New()
	if sessionID != nil {
		if err := h.WriteAny(hash.BytesWithDomain{TheDomain: "Session ID", Bytes: sessionID}); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}
	if err := h.WriteAny(hash.BytesWithDomain{TheDomain: "Protocol ID", Bytes: []byte(info.ProtocolID)}); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if err := h.WriteAny(partyIDs, uint32(info.Threshold)); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	for _, a := range auxInfo {
		if a == nil {
			continue
		}
		if err := h.WriteAny(a); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}

	return &Helper{
		info:          info,
		partyIDs:      partyIDs,
		otherPartyIDs: partyIDs.Remove(info.SelfID),
		ssid:          h.Clone().Sum(),
		hash:          h,
	}, nil
}

// Hash returns a clone of the hash function in its current state.
func (h *Helper) Hash() *hash.Hash {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.hash.Clone()
}

// BroadcastMessage constructs a Message addressed to all other parties and
// sends it over out.
func (h *Helper) BroadcastMessage(out chan<- *Message, content Content) error {
	msg := &Message{From: h.info.SelfID, Broadcast: true, Content: content}
	select {
	case out <- msg:
		return nil
	default:
		return ErrOutChannelFull
	}
}

// SendMessage sends content to the party to.
func (h *Helper) SendMessage(out chan<- *Message, content Content, to party.ID) error {
	msg := &Message{From: h.info.SelfID, To: to, Content: content}
	select {
	case out <- msg:
		return nil
	default:
		return ErrOutChannelFull
	}
}

// ResultRound returns a round wrapping the protocol output, signalling a
// successful termination to the handler.
func (h *Helper) ResultRound(result interface{}) Session {
	return &Output{Helper: h, Result: result}
}

// AbortRound returns a terminal round signalling an abort, optionally naming
// the misbehaving parties.
func (h *Helper) AbortRound(err error, culprits ...party.ID) Session {
	return &Abort{Helper: h, Culprits: culprits, Err: err}
}

// ProtocolID implements Session.
func (h *Helper) ProtocolID() string { return h.info.ProtocolID }

// FinalRoundNumber implements Session.
func (h *Helper) FinalRoundNumber() Number { return h.info.FinalRoundNumber }

// SSID implements Session.
func (h *Helper) SSID() []byte { return h.ssid }

// SelfID implements Session.
func (h *Helper) SelfID() party.ID { return h.info.SelfID }

// PartyIDs implements Session.
func (h *Helper) PartyIDs() party.IDSlice { return h.partyIDs }

// OtherPartyIDs implements Session.
func (h *Helper) OtherPartyIDs() party.IDSlice { return h.otherPartyIDs }

// Threshold implements Session.
func (h *Helper) Threshold() int { return h.info.Threshold }

// N implements Session.
func (h *Helper) N() int { return len(h.partyIDs) }
