package friend

import (
	"context"
	"database/sql"
	"errors"
)

var ErrUserNotFound = errors.New("user not found")

// Friend is the summary of a followed user shown in friend lists.
type Friend struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Handle   string `json:"codeforces_handle,omitempty"`
	Rating   *int   `json:"rating,omitempty"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UserIDByUsername(ctx context.Context, username string) (int, error) {
	var id int
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE username = $1", username).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return id, nil
}

// List returns the users followed by userID, oldest friendship first.
func (r *Repository) List(ctx context.Context, userID int) ([]Friend, error) {
	query := `
		SELECT u.id, u.username, u.cf_handle, u.rating
		FROM friendships f
		JOIN users u ON f.to_user_id = u.id
		WHERE f.from_user_id = $1
		ORDER BY f.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []Friend{}
	for rows.Next() {
		var f Friend
		var handle sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(&f.ID, &f.Username, &handle, &rating); err != nil {
			return nil, err
		}
		f.Handle = handle.String
		if rating.Valid {
			v := int(rating.Int64)
			f.Rating = &v
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// Add creates the follow edge; adding the same friend twice is a no-op.
func (r *Repository) Add(ctx context.Context, fromID, toID int) error {
	query := `
		INSERT INTO friendships (from_user_id, to_user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, fromID, toID)
	return err
}

func (r *Repository) Remove(ctx context.Context, fromID, toID int) error {
	query := "DELETE FROM friendships WHERE from_user_id = $1 AND to_user_id = $2"
	_, err := r.db.ExecContext(ctx, query, fromID, toID)
	return err
}
