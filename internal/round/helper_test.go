package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taurusgroup/mpc-client/pkg/party"
)

func TestNewSessionValidation(t *testing.T) {
	info := Info{
		ProtocolID:       "test/protocol",
		FinalRoundNumber: 2,
		SelfID:           1,
		PartyIDs:         []party.ID{1, 2, 3},
		Threshold:        1,
	}

	_, err := NewSession(info, nil)
	require.NoError(t, err)

	bad := info
	bad.SelfID = 4
	_, err = NewSession(bad, nil)
	assert.Error(t, err, "selfID not in partyIDs")

	bad = info
	bad.Threshold = 3
	_, err = NewSession(bad, nil)
	assert.Error(t, err, "threshold must be at most n-1")

	bad = info
	bad.PartyIDs = []party.ID{1, 1, 2}
	_, err = NewSession(bad, nil)
	assert.Error(t, err, "duplicate party IDs")
}

func TestSSIDSharedAcrossParties(t *testing.T) {
	sessionID := []byte("session")
	var ssids [][]byte
	for _, self := range []party.ID{1, 2, 3} {
		h, err := NewSession(Info{
			ProtocolID:       "test/protocol",
			FinalRoundNumber: 2,
			SelfID:           self,
			PartyIDs:         []party.ID{1, 2, 3},
			Threshold:        1,
		}, sessionID)
		require.NoError(t, err)
		ssids = append(ssids, h.SSID())
	}
	assert.Equal(t, ssids[0], ssids[1])
	assert.Equal(t, ssids[0], ssids[2])
}

func TestSSIDDependsOnSessionID(t *testing.T) {
	info := Info{
		ProtocolID:       "test/protocol",
		FinalRoundNumber: 2,
		SelfID:           1,
		PartyIDs:         []party.ID{1, 2},
		Threshold:        1,
	}
	a, err := NewSession(info, []byte("a"))
	require.NoError(t, err)
	b, err := NewSession(info, []byte("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a.SSID(), b.SSID())
}

func TestHelperPartySets(t *testing.T) {
	h, err := NewSession(Info{
		ProtocolID:       "test/protocol",
		FinalRoundNumber: 1,
		SelfID:           2,
		PartyIDs:         []party.ID{3, 1, 2},
		Threshold:        1,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, party.IDSlice{1, 2, 3}, h.PartyIDs())
	assert.Equal(t, party.IDSlice{1, 3}, h.OtherPartyIDs())
	assert.Equal(t, 3, h.N())
}
