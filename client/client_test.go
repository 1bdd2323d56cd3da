package client

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mgerr "minignet/internal/errors"
	"minignet/internal/game"
	"minignet/internal/protocol"
	"minignet/internal/server"
	"minignet/util"
)

// startServer runs a real server on loopback for the test's lifetime.
func startServer(t *testing.T) (string, *game.World) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	world := game.NewWorld(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.New(world, server.Options{}, nil, nil).Serve(ctx, ln) //nolint:errcheck
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String(), world
}

func newClient(addr, gamer string) *Client {
	return New(addr, "s1", gamer,
		WithTimeout(2*time.Second),
		WithPolling(5*time.Millisecond, 20*time.Millisecond))
}

func TestClient_TurnScenario(t *testing.T) {
	addr, _ := startServer(t)
	ctx := context.Background()
	alice, bob := newClient(addr, "alice"), newClient(addr, "bob")

	require.NoError(t, alice.JoinSession(ctx))
	require.NoError(t, bob.JoinSession(ctx))
	require.NoError(t, alice.StartSession(ctx))

	on, err := bob.IsGameOn(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	turn, err := alice.IsGamerTurn(ctx)
	require.NoError(t, err)
	assert.True(t, turn)
	turn, err = bob.IsGamerTurn(ctx)
	require.NoError(t, err)
	assert.False(t, turn)

	require.NoError(t, alice.SendUpdate(ctx, []byte("move e4")))
	require.NoError(t, alice.NextGamer(ctx))

	turn, err = bob.IsGamerTurn(ctx)
	require.NoError(t, err)
	assert.True(t, turn)

	updates, err := bob.PreviousRoundUpdates(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[protocol.GamerID][]byte{"alice": []byte("move e4"), "bob": nil}, updates)

	require.NoError(t, bob.EndSession(ctx))
	require.NoError(t, bob.ResetSession(ctx))
	on, err = alice.IsGameOn(ctx)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestClient_Messaging(t *testing.T) {
	addr, _ := startServer(t)
	ctx := context.Background()
	a, b, c := newClient(addr, "A"), newClient(addr, "B"), newClient(addr, "C")
	for _, cl := range []*Client{a, b, c} {
		require.NoError(t, cl.JoinSession(ctx))
	}

	require.NoError(t, a.Broadcast(ctx, []byte("all")))
	require.NoError(t, a.SendTo(ctx, "C", []byte("only c")))

	msgs, err := b.FetchAllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("all"), msgs[0].Payload)
	assert.True(t, msgs[0].To.IsAll())

	msgs, err = c.FetchAllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "all", string(msgs[0].Payload))
	assert.Equal(t, "only c", string(msgs[1].Payload))
	assert.Equal(t, protocol.ToOne("C"), msgs[1].To)

	msgs, err = a.FetchAllMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestClient_RemoteError(t *testing.T) {
	addr, _ := startServer(t)
	ctx := context.Background()
	cl := newClient(addr, "alice")

	err := cl.StartSession(ctx)
	var remote *mgerr.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "StartSession", remote.Op)
	assert.Contains(t, remote.Reason, "unknown session")
	assert.True(t, mgerr.IsRemote(err))

	// Do hands Error responses back as values.
	resp, err := cl.Do(ctx, protocol.IsGameOn{Session: "s1"})
	require.NoError(t, err)
	assert.IsType(t, protocol.Error{}, resp)
}

func TestClient_ConnectionRefused(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)
	cl := newClient(util.FormatAddr("127.0.0.1", port), "alice")

	err = cl.JoinSession(context.Background())
	var netErr *mgerr.NetworkError
	assert.ErrorAs(t, err, &netErr)
	assert.False(t, mgerr.IsRemote(err))
}

// fakeServer answers every request with the given raw bytes.
func fakeServer(t *testing.T, answer []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				if _, err := util.ReadToEnd(conn, 0); err != nil {
					return
				}
				util.WriteAndCloseWrite(conn, answer) //nolint:errcheck
			}()
		}
	}()
	return ln.Addr().String()
}

func TestClient_UndecodableResponse(t *testing.T) {
	cl := newClient(fakeServer(t, []byte("not msgpack")), "alice")

	_, err := cl.IsGameOn(context.Background())
	assert.ErrorIs(t, err, mgerr.ErrDecode)
}

func TestClient_EmptyResponse(t *testing.T) {
	cl := newClient(fakeServer(t, nil), "alice")

	_, err := cl.IsGameOn(context.Background())
	var netErr *mgerr.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestClient_UnexpectedVariant(t *testing.T) {
	raw, err := protocol.EncodeResponse(protocol.Ok{})
	require.NoError(t, err)
	cl := newClient(fakeServer(t, raw), "alice")

	_, err = cl.IsGameOn(context.Background())
	assert.ErrorIs(t, err, mgerr.ErrUnexpectedResponse)
}

func TestClient_ContextCancelled(t *testing.T) {
	// A listener that never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	cl := New(ln.Addr().String(), "s1", "alice")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = cl.IsGameOn(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_WaitForGameOnAndTurn(t *testing.T) {
	addr, world := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, bob := newClient(addr, "alice"), newClient(addr, "bob")
	require.NoError(t, alice.JoinSession(ctx))
	require.NoError(t, bob.JoinSession(ctx))

	waited := make(chan error, 2)
	go func() { waited <- bob.WaitForGameOn(ctx) }()
	go func() { waited <- bob.WaitForTurn(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, world.Start("s1"))
	require.NoError(t, <-waited, "game on")

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, world.NextGamer("s1"))
	require.NoError(t, <-waited, "turn")
}

func TestClient_WaitStopsOnError(t *testing.T) {
	addr, _ := startServer(t)
	cl := newClient(addr, "alice")

	start := time.Now()
	err := cl.WaitForTurn(context.Background()) // session does not exist
	var remote *mgerr.RemoteError
	assert.ErrorAs(t, err, &remote)
	assert.Less(t, time.Since(start), time.Second, "a failed poll is not retried")
}

func TestClient_WaitHonoursContext(t *testing.T) {
	addr, _ := startServer(t)
	cl := newClient(addr, "alice")
	require.NoError(t, cl.JoinSession(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, cl.WaitForGameOn(ctx), context.DeadlineExceeded)
}
