package chat

import "time"

type Conversation struct {
	ID         int       `json:"id"`
	UserLowID  int       `json:"-"`
	UserHighID int       `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type Message struct {
	ID             int       `json:"id"`
	ConversationID int       `json:"conversation_id"`
	SenderID       int       `json:"sender_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryEntry is the wire shape of one message in a history response.
type HistoryEntry struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Frame is the JSON payload exchanged over the websocket, both directions.
// The sender field on inbound frames is ignored: the server always stamps
// the authenticated identity before persisting or fanning out.
type Frame struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}
