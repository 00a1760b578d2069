package chat

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testClient(hub *Hub, room, username string) *Client {
	return &Client{
		hub:      hub,
		send:     make(chan []byte, 8),
		room:     room,
		username: username,
		log:      zerolog.Nop(),
	}
}

func recvPayload(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "send channel closed")
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func expectNothing(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case p, ok := <-ch:
		if ok {
			t.Fatalf("unexpected payload %q", p)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastReachesWholeRoomIncludingSender(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(NewLoopbackBridge(), zerolog.Nop())
	go hub.Run(ctx)

	alice := testClient(hub, "alice_bob", "alice")
	bob := testClient(hub, "alice_bob", "bob")
	hub.Join(alice)
	hub.Join(bob)

	hub.Broadcast(ctx, "alice_bob", []byte(`{"message":"hi","sender":"alice"}`))

	req.JSONEq(`{"message":"hi","sender":"alice"}`, string(recvPayload(t, alice.send)))
	req.JSONEq(`{"message":"hi","sender":"alice"}`, string(recvPayload(t, bob.send)))
}

func TestHubRoomsAreIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(NewLoopbackBridge(), zerolog.Nop())
	go hub.Run(ctx)

	alice := testClient(hub, "alice_bob", "alice")
	carol := testClient(hub, "carol_dave", "carol")
	hub.Join(alice)
	hub.Join(carol)

	hub.Broadcast(ctx, "alice_bob", []byte("hello"))

	recvPayload(t, alice.send)
	expectNothing(t, carol.send)
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(NewLoopbackBridge(), zerolog.Nop())
	go hub.Run(ctx)

	alice := testClient(hub, "alice_bob", "alice")
	bob := testClient(hub, "alice_bob", "bob")
	hub.Join(alice)
	hub.Join(bob)

	hub.Leave(bob)

	hub.Broadcast(ctx, "alice_bob", []byte("after leave"))
	req.Equal("after leave", string(recvPayload(t, alice.send)))

	// The hub closes the channel of a departed client; nothing else may
	// arrive on it.
	for p := range bob.send {
		req.Fail("payload after leave", "got %q", p)
	}
}

func TestHubLeaveForUnknownClientIsSafe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(NewLoopbackBridge(), zerolog.Nop())
	go hub.Run(ctx)

	stranger := testClient(hub, "alice_bob", "alice")
	hub.Leave(stranger)

	// Registry must still work afterwards.
	alice := testClient(hub, "alice_bob", "alice")
	hub.Join(alice)
	hub.Broadcast(ctx, "alice_bob", []byte("still alive"))
	recvPayload(t, alice.send)
}
