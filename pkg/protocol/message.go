package protocol

import (
	"fmt"

	"github.com/taurusgroup/mpc-client/internal/round"
	"github.com/taurusgroup/mpc-client/pkg/party"
)

// Message is the envelope exchanged between parties through the relay.
// The Data field carries the cbor encoded round content and is opaque to the
// transport.
type Message struct {
	// SSID uniquely identifies the protocol execution this message belongs to.
	SSID []byte `cbor:"ssid"`
	// From is the party number of the sender.
	From party.ID `cbor:"from"`
	// To is the intended recipient. 0 indicates a broadcast to all parties.
	To party.ID `cbor:"to"`
	// Protocol identifies the protocol this message belongs to.
	Protocol string `cbor:"protocol"`
	// RoundNumber is the index of the round this message belongs to.
	RoundNumber round.Number `cbor:"round"`
	// Data is the cbor encoded round content.
	Data []byte `cbor:"data"`
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return fmt.Sprintf("message: round %d, from: %s, to: %s, protocol: %s", m.RoundNumber, m.From, m.To, m.Protocol)
}

// Broadcast returns true if the message is intended for all participants.
func (m Message) Broadcast() bool {
	return m.To == 0
}

// IsFor returns true if the message is intended for the designated party.
func (m Message) IsFor(id party.ID) bool {
	if m.From == id {
		return false
	}
	return m.Broadcast() || m.To == id
}
