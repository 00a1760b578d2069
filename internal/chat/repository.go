package chat

import (
	"context"
	"database/sql"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UserIDByUsername(ctx context.Context, username string) (int, error) {
	var id int
	query := "SELECT id FROM users WHERE username = $1"

	err := r.db.QueryRowContext(ctx, query, username).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return id, nil
}

// EnsureConversation returns the conversation for the pair, creating it on
// first contact. The pair is normalized to (low, high) and upserted in a
// single statement, so concurrent callers racing on a brand-new pair all get
// the same row back. The DO UPDATE is a no-op that exists only to make
// RETURNING yield the row on conflict.
func (r *Repository) EnsureConversation(ctx context.Context, userA, userB int) (*Conversation, error) {
	low, high := orderPair(userA, userB)

	c := &Conversation{}
	query := `
		INSERT INTO conversations (user_low_id, user_high_id)
		VALUES ($1, $2)
		ON CONFLICT (user_low_id, user_high_id)
		DO UPDATE SET user_low_id = EXCLUDED.user_low_id
		RETURNING id, user_low_id, user_high_id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, low, high).
		Scan(&c.ID, &c.UserLowID, &c.UserHighID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindConversation looks the pair up without creating anything.
// Returns (nil, nil) when the two users have never exchanged a message.
func (r *Repository) FindConversation(ctx context.Context, userA, userB int) (*Conversation, error) {
	low, high := orderPair(userA, userB)

	c := &Conversation{}
	query := `
		SELECT id, user_low_id, user_high_id, created_at
		FROM conversations
		WHERE user_low_id = $1 AND user_high_id = $2
	`
	err := r.db.QueryRowContext(ctx, query, low, high).
		Scan(&c.ID, &c.UserLowID, &c.UserHighID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// AppendMessage persists a message with a server-assigned timestamp.
func (r *Repository) AppendMessage(ctx context.Context, conversationID, senderID int, body string) (*Message, error) {
	m := &Message{ConversationID: conversationID, SenderID: senderID, Body: body}
	query := `
		INSERT INTO messages (conversation_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, conversationID, senderID, body).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns the full history of a conversation in ascending
// timestamp order, ties broken by insertion order. No pagination: threads
// are two-party and small.
func (r *Repository) ListMessages(ctx context.Context, conversationID int) ([]HistoryEntry, error) {
	query := `
		SELECT u.username, m.body, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.conversation_id = $1
		ORDER BY m.created_at, m.id
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Sender, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func orderPair(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}
