// Package group provides the client's view of relay groups: fixed sets of n
// parties with a signing threshold t, which sessions are created under.
package group

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/transport"
)

var (
	// ErrInvalidThreshold indicates parameters violating 0 < t < n.
	ErrInvalidThreshold = errors.New("group: threshold must satisfy 0 < t < n")
	// ErrNotFound indicates an unknown group id.
	ErrNotFound = errors.New("group: not found")
	// ErrFull indicates a join attempt on a group which already has all its
	// parties.
	ErrFull = errors.New("group: all parties have joined")
)

// Group is a fixed set of parties under which sessions run. Party numbers are
// assigned in join order, the creator being party 1.
type Group struct {
	// ID is the relay-assigned group identifier.
	ID uuid.UUID
	// Parties is the total number of parties n.
	Parties uint16
	// Threshold is the maximum number of corrupted parties t; t+1 are needed
	// to sign.
	Threshold uint16
	// PartyNumber is this client's number within the group.
	PartyNumber party.ID
}

// PartyIDs returns the full set of party numbers 1..n.
func (g *Group) PartyIDs() party.IDSlice {
	return party.Range(int(g.Parties))
}

// Registry creates and joins groups through the relay.
type Registry struct {
	transport transport.Transport
	log       zerolog.Logger
}

// NewRegistry returns a Registry using the given transport.
func NewRegistry(t transport.Transport, log zerolog.Logger) *Registry {
	return &Registry{transport: t, log: log}
}

// Create registers a new group of n parties with threshold t. The caller
// becomes party 1. Parameters are validated locally before the relay is
// involved.
func (r *Registry) Create(ctx context.Context, parties, threshold uint16) (*Group, error) {
	if threshold < 1 || threshold >= parties {
		return nil, fmt.Errorf("%w: t=%d, n=%d", ErrInvalidThreshold, threshold, parties)
	}

	var res transport.GroupResponse
	req := transport.GroupCreateRequest{
		Parameters: transport.Parameters{Parties: parties, Threshold: threshold},
	}
	if err := r.transport.Call(ctx, transport.MethodGroupCreate, req, &res); err != nil {
		return nil, fmt.Errorf("group: create: %w", err)
	}
	g, err := fromResponse(&res)
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Stringer("group", g.ID).
		Uint16("parties", g.Parties).
		Uint16("threshold", g.Threshold).
		Msg("group created")
	return g, nil
}

// Join adds the caller to an existing group, assigning the next free party
// number.
func (r *Registry) Join(ctx context.Context, groupID uuid.UUID) (*Group, error) {
	var res transport.GroupResponse
	req := transport.GroupJoinRequest{GroupID: groupID.String()}
	if err := r.transport.Call(ctx, transport.MethodGroupJoin, req, &res); err != nil {
		return nil, fmt.Errorf("group: join: %w", mapRPCError(err))
	}
	g, err := fromResponse(&res)
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Stringer("group", g.ID).
		Stringer("party", g.PartyNumber).
		Msg("group joined")
	return g, nil
}

func fromResponse(res *transport.GroupResponse) (*Group, error) {
	id, err := uuid.Parse(res.GroupID)
	if err != nil {
		return nil, fmt.Errorf("group: relay returned invalid group id %q: %w", res.GroupID, err)
	}
	g := &Group{
		ID:          id,
		Parties:     res.Parameters.Parties,
		Threshold:   res.Parameters.Threshold,
		PartyNumber: party.ID(res.PartyNumber),
	}
	if !g.PartyNumber.Valid() || !g.PartyIDs().Contains(g.PartyNumber) {
		return nil, fmt.Errorf("group: relay assigned invalid party number %d", res.PartyNumber)
	}
	return g, nil
}

// mapRPCError converts relay error codes into the package's sentinels.
func mapRPCError(err error) error {
	var rpcErr *transport.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}
	switch rpcErr.Code {
	case transport.CodeNotFound:
		return ErrNotFound
	case transport.CodeGroupFull:
		return ErrFull
	default:
		return err
	}
}
