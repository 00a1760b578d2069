package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Must be less than pongWait.
	maxMessageSize = 4096                // Maximum frame size allowed from peer.
)

// Store is what chat sessions and the history endpoint need from
// persistence. *Repository implements it; tests swap in fakes.
type Store interface {
	UserIDByUsername(ctx context.Context, username string) (int, error)
	EnsureConversation(ctx context.Context, userA, userB int) (*Conversation, error)
	FindConversation(ctx context.Context, userA, userB int) (*Conversation, error)
	AppendMessage(ctx context.Context, conversationID, senderID int, body string) (*Message, error)
	ListMessages(ctx context.Context, conversationID int) ([]HistoryEntry, error)
}

// Client is one websocket session: the middleman between a connection and
// the hub. A session lives in a room for its whole lifetime.
type Client struct {
	id   uuid.UUID
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound payloads, closed by the hub on leave.
	send chan []byte

	room     string
	userID   int
	username string

	store Store
	log   zerolog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, store Store, room string, userID int, username string, log zerolog.Logger) *Client {
	id := uuid.New()
	return &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		room:     room,
		userID:   userID,
		username: username,
		store:    store,
		log: log.With().
			Str("client_id", id.String()).
			Str("room", room).
			Str("user", username).
			Logger(),
	}
}

// readPump pumps inbound frames from the connection into persistence and the
// hub. It runs in its own goroutine, so a blocking save never stalls
// delivery to other sessions, and frames from this sender stay in order.
// The deferred Leave runs on every exit path, abrupt closes included.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("unexpected close")
			}
			break
		}
		c.handleInbound(context.Background(), raw)
	}
}

// handleInbound processes one client frame. Bad frames are dropped and the
// session keeps going; a persistence failure is logged and the frame is
// still broadcast, so connected peers see the message even when the save
// did not stick.
func (c *Client) handleInbound(ctx context.Context, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.log.Debug().Err(err).Msg("dropping malformed frame")
		return
	}
	if frame.Message == "" {
		c.log.Debug().Msg("dropping frame with empty message")
		return
	}

	// Never trust the sender the client claims.
	frame.Sender = c.username

	c.persist(ctx, frame.Message)

	payload, err := json.Marshal(frame)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal outbound frame")
		return
	}
	c.hub.Broadcast(ctx, c.room, payload)
}

func (c *Client) persist(ctx context.Context, body string) {
	other, err := Counterpart(c.room, c.username)
	if err != nil {
		// Data-integrity condition, not a user error. Join authorization
		// should make this unreachable.
		c.log.Error().Err(err).Msg("cannot resolve counterpart")
		return
	}

	otherID, err := c.store.UserIDByUsername(ctx, other)
	if err != nil {
		c.log.Error().Err(err).Str("counterpart", other).Msg("resolve counterpart user")
		return
	}

	conv, err := c.store.EnsureConversation(ctx, c.userID, otherID)
	if err != nil {
		c.log.Error().Err(err).Msg("ensure conversation")
		return
	}

	if _, err := c.store.AppendMessage(ctx, conv.ID, c.userID, body); err != nil {
		c.log.Error().Err(err).Int("conversation_id", conv.ID).Msg("save message")
	}
}

// writePump pumps payloads from the hub to the connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Flush whatever else is queued in the same write.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
