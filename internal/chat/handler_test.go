package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"go-forces/internal/middleware"
)

// staticValidator authenticates every request as a fixed user.
type staticValidator struct {
	id   int
	name string
}

func (v staticValidator) ValidateToken(string) (int, string, error) {
	return v.id, v.name, nil
}

func newChatServer(t *testing.T, store Store, as staticValidator) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(NewLoopbackBridge(), zerolog.Nop())
	go hub.Run(ctx)
	handler := NewHandler(hub, store, zerolog.Nop())

	r := chi.NewRouter()
	r.Use(middleware.NewAuthMiddleware(as).Handle)
	r.Get("/ws", handler.ServeWS)
	r.Get("/api/chat/history/{username}", handler.History)
	r.Post("/api/conversations", handler.StartConversation)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHistoryUnknownTargetIs404(t *testing.T) {
	store := newFakeStore("alice", "bob")
	srv := newChatServer(t, store, staticValidator{1, "alice"})

	var body map[string]string
	status := getJSON(t, srv.URL+"/api/chat/history/ghost?token=x", &body)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, "user not found", body["error"])
}

func TestHistoryWithoutConversationIsEmptyList(t *testing.T) {
	store := newFakeStore("alice", "bob")
	srv := newChatServer(t, store, staticValidator{1, "alice"})

	var entries []HistoryEntry
	status := getJSON(t, srv.URL+"/api/chat/history/bob?token=x", &entries)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, entries)
}

func TestHistoryReturnsMessagesInOrder(t *testing.T) {
	req := require.New(t)
	store := newFakeStore("alice", "bob")
	ctx := context.Background()

	conv, err := store.EnsureConversation(ctx, 1, 2)
	req.NoError(err)
	_, err = store.AppendMessage(ctx, conv.ID, 1, "first")
	req.NoError(err)
	_, err = store.AppendMessage(ctx, conv.ID, 2, "second")
	req.NoError(err)

	srv := newChatServer(t, store, staticValidator{1, "alice"})

	var entries []HistoryEntry
	status := getJSON(t, srv.URL+"/api/chat/history/bob?token=x", &entries)
	req.Equal(http.StatusOK, status)
	req.Len(entries, 2)
	req.Equal("first", entries[0].Message)
	req.Equal("alice", entries[0].Sender)
	req.Equal("second", entries[1].Message)
	req.Equal("bob", entries[1].Sender)
}

func TestStartConversation(t *testing.T) {
	req := require.New(t)
	store := newFakeStore("alice", "bob")
	srv := newChatServer(t, store, staticValidator{1, "alice"})

	post := func(body string) (*http.Response, error) {
		return http.Post(srv.URL+"/api/conversations?token=x", "application/json", strings.NewReader(body))
	}

	resp, err := post(`{"username":"bob"}`)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	var res startConversationResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&res))
	req.Equal("alice_bob", res.Room)
	req.NotZero(res.ConversationID)

	resp, err = post(`{"username":"ghost"}`)
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusNotFound, resp.StatusCode)

	resp, err = post(`{"username":"alice"}`)
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestWebsocketSendEchoesToSenderAndPersists(t *testing.T) {
	req := require.New(t)
	store := newFakeStore("alice", "bob")
	srv := newChatServer(t, store, staticValidator{1, "alice"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?room=alice_bob&token=x"), nil)
	req.NoError(err)
	defer conn.Close()

	req.NoError(conn.WriteJSON(Frame{Message: "hello bob", Sender: "mallory"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	req.NoError(conn.ReadJSON(&frame))
	req.Equal("hello bob", frame.Message)
	req.Equal("alice", frame.Sender)

	// The message also landed in the conversation store.
	req.Eventually(func() bool {
		conv, err := store.FindConversation(context.Background(), 1, 2)
		if err != nil || conv == nil {
			return false
		}
		entries, err := store.ListMessages(context.Background(), conv.ID)
		return err == nil && len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketJoinRejectedForNonParticipant(t *testing.T) {
	req := require.New(t)
	store := newFakeStore("alice", "bob", "mallory")
	srv := newChatServer(t, store, staticValidator{3, "mallory"})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws?room=alice_bob&token=x"), nil)
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}
