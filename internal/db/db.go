package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Database struct {
	Conn *sql.DB
}

func New(dsn string) (*Database, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Database{Conn: conn}, nil
}

func (d *Database) Close() error {
	return d.Conn.Close()
}

// Init creates the schema. The unique constraint on the normalized
// conversation pair is what makes get-or-create race-free: two connections
// sending the first message of a thread concurrently both land on the same
// (user_low_id, user_high_id) row.
func (d *Database) Init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            username VARCHAR(50) UNIQUE NOT NULL,
            password VARCHAR(255) NOT NULL,
            cf_handle VARCHAR(50),
            rating INT,
            rank VARCHAR(50),
            max_rating INT,
            max_rank VARCHAR(50),
            avatar TEXT,
            handle_updated_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT now()
        )`,

		`CREATE TABLE IF NOT EXISTS friendships (
            from_user_id INT REFERENCES users(id) ON DELETE CASCADE,
            to_user_id INT REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMPTZ DEFAULT now(),
            PRIMARY KEY (from_user_id, to_user_id)
        )`,

		`CREATE TABLE IF NOT EXISTS conversations (
            id SERIAL PRIMARY KEY,
            user_low_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user_high_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMPTZ DEFAULT now(),
            CHECK (user_low_id < user_high_id),
            UNIQUE (user_low_id, user_high_id)
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            conversation_id INT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            body TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT now()
        )`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
            ON messages (conversation_id, created_at, id)`,

		`CREATE TABLE IF NOT EXISTS bookmarks (
            id SERIAL PRIMARY KEY,
            user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            contest_id INT NOT NULL,
            problem_index VARCHAR(5) NOT NULL,
            name VARCHAR(255) NOT NULL,
            created_at TIMESTAMPTZ DEFAULT now(),
            UNIQUE (user_id, contest_id, problem_index)
        )`,
	}

	for _, query := range queries {
		if _, err := d.Conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}

	return nil
}
