// Command example runs an all-in-one demonstration: it starts the in-memory
// relay, connects n clients to it, generates a threshold key and signs a
// message with t+1 of the parties.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/taurusgroup/mpc-client/internal/relay"
	"github.com/taurusgroup/mpc-client/pkg/client"
	"github.com/taurusgroup/mpc-client/pkg/ecdsa"
	"github.com/taurusgroup/mpc-client/pkg/party"
	"github.com/taurusgroup/mpc-client/pkg/session"
)

func main() {
	var (
		parties   = flag.Int("n", 3, "number of parties")
		threshold = flag.Int("t", 1, "threshold (t+1 parties sign)")
		message   = flag.String("m", "hello threshold world", "message to sign")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	log := zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	if err := run(log, *parties, *threshold, []byte(*message)); err != nil {
		log.Fatal().Err(err).Msg("demo failed")
	}
}

func run(log zerolog.Logger, n, t int, message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	endpoint, stop, err := startRelay(log)
	if err != nil {
		return err
	}
	defer stop()
	log.Info().Str("endpoint", endpoint).Msg("relay listening")

	// connect the clients and form the group
	clients := make(map[party.ID]*client.Client, n)
	first, err := client.Connect(ctx, endpoint, client.WithLogger(log))
	if err != nil {
		return err
	}
	defer first.Close()

	g, err := first.GroupCreate(ctx, uint16(n), uint16(t))
	if err != nil {
		return err
	}
	clients[g.PartyNumber] = first
	for i := 1; i < n; i++ {
		c, err := client.Connect(ctx, endpoint, client.WithLogger(log))
		if err != nil {
			return err
		}
		defer c.Close()
		joined, err := c.GroupJoin(ctx, g.ID)
		if err != nil {
			return err
		}
		clients[joined.PartyNumber] = c
	}
	log.Info().Stringer("group", g.ID).Int("parties", n).Int("threshold", t).Msg("group formed")

	keys, err := keygen(ctx, clients, g.ID, uint16(n), uint16(t))
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	log.Info().Str("public_key", keys[1].PublicKeyHex()).Msg("key generated")

	signers := party.Range(t + 1)
	sigs, err := sign(ctx, clients, g.ID, keys, signers, message)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	for id, sig := range sigs {
		if !sig.Verify(keys[1].PublicKey, message) {
			return fmt.Errorf("signature of party %d does not verify", id)
		}
	}
	log.Info().
		Str("signature", fmt.Sprintf("%x", sigs[signers[0]].Serialize())).
		Msg("message signed and verified")
	return nil
}

func keygen(ctx context.Context, clients map[party.ID]*client.Client, groupID uuid.UUID, n, t uint16) (map[party.ID]*ecdsa.LocalKey, error) {
	sess, err := clients[1].SessionCreate(ctx, groupID, session.KindKeygen, nil)
	if err != nil {
		return nil, err
	}
	for id := party.ID(2); int(id) <= int(n); id++ {
		if _, err := clients[id].SessionSignup(ctx, groupID, sess.ID); err != nil {
			return nil, err
		}
	}

	var mtx sync.Mutex
	keys := map[party.ID]*ecdsa.LocalKey{}
	var eg errgroup.Group
	for id, c := range clients {
		id, c := id, c
		eg.Go(func() error {
			key, err := c.Keygen(ctx, groupID, sess.ID, id, n, t)
			if err != nil {
				return err
			}
			mtx.Lock()
			keys[id] = key
			mtx.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}

func sign(ctx context.Context, clients map[party.ID]*client.Client, groupID uuid.UUID, keys map[party.ID]*ecdsa.LocalKey, signers party.IDSlice, message []byte) (map[party.ID]*ecdsa.Signature, error) {
	creator := signers[0]
	sess, err := clients[creator].SessionCreate(ctx, groupID, session.KindSign, message)
	if err != nil {
		return nil, err
	}
	for _, id := range signers[1:] {
		if _, err := clients[id].SessionLogin(ctx, groupID, sess.ID, id); err != nil {
			return nil, err
		}
	}

	var mtx sync.Mutex
	sigs := map[party.ID]*ecdsa.Signature{}
	var eg errgroup.Group
	for _, id := range signers {
		id := id
		eg.Go(func() error {
			sig, err := clients[id].Sign(ctx, groupID, sess.ID, keys[id], signers, message)
			if err != nil {
				return err
			}
			mtx.Lock()
			sigs[id] = sig
			mtx.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return sigs, nil
}

// startRelay serves the in-memory relay on a random local port.
func startRelay(log zerolog.Logger) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: relay.NewServer(log.With().Str("component", "relay").Logger())}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("relay stopped")
			os.Exit(1)
		}
	}()
	stop := func() { _ = srv.Close() }
	return fmt.Sprintf("ws://%s", listener.Addr()), stop, nil
}
