package problem

import (
	"context"
	"database/sql"
	"time"
)

type Bookmark struct {
	ID        int       `json:"id"`
	ContestID int       `json:"contest_id"`
	Index     string    `json:"index"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListBookmarks(ctx context.Context, userID int) ([]Bookmark, error) {
	query := `
		SELECT id, contest_id, problem_index, name, created_at
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookmarks := []Bookmark{}
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.ContestID, &b.Index, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// Toggle flips membership of (user, contest, index) and reports the final
// state. The insert-first order makes concurrent toggles settle on one of
// the two valid outcomes instead of erroring.
func (r *Repository) Toggle(ctx context.Context, userID int, b Bookmark) (bool, error) {
	insert := `
		INSERT INTO bookmarks (user_id, contest_id, problem_index, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, contest_id, problem_index) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, insert, userID, b.ContestID, b.Index, b.Name)
	if err != nil {
		return false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted > 0 {
		return true, nil
	}

	// Already bookmarked: toggle off.
	del := `
		DELETE FROM bookmarks
		WHERE user_id = $1 AND contest_id = $2 AND problem_index = $3
	`
	if _, err := r.db.ExecContext(ctx, del, userID, b.ContestID, b.Index); err != nil {
		return false, err
	}
	return false, nil
}
