package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"go-forces/internal/codeforces"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, u *User) (*User, error) {
	var id int
	query := "INSERT INTO users (username, password) VALUES ($1, $2) RETURNING id"

	err := r.db.QueryRowContext(ctx, query, u.Username, u.Password).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	u.ID = id
	return u, nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, password, cf_handle, rating, rank,
		       max_rating, max_rank, avatar, handle_updated_at
		FROM users WHERE username = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *Repository) GetByID(ctx context.Context, id int) (*User, error) {
	query := `
		SELECT id, username, password, cf_handle, rating, rank,
		       max_rating, max_rank, avatar, handle_updated_at
		FROM users WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var (
		handle, rank, maxRank, avatar sql.NullString
		rating, maxRating             sql.NullInt64
		updatedAt                     sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Password, &handle, &rating, &rank,
		&maxRating, &maxRank, &avatar, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	u.Handle = handle.String
	u.Rank = rank.String
	u.MaxRank = maxRank.String
	u.Avatar = avatar.String
	if rating.Valid {
		v := int(rating.Int64)
		u.Rating = &v
	}
	if maxRating.Valid {
		v := int(maxRating.Int64)
		u.MaxRating = &v
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		u.HandleUpdatedAt = &t
	}
	return u, nil
}

// UpdateHandle links a verified Codeforces handle and snapshots its stats.
func (r *Repository) UpdateHandle(ctx context.Context, userID int, info codeforces.UserInfo) error {
	query := `
		UPDATE users
		SET cf_handle = $2, rating = $3, rank = $4, max_rating = $5,
		    max_rank = $6, avatar = $7, handle_updated_at = now()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, userID, info.Handle, info.Rating,
		info.Rank, info.MaxRating, info.MaxRank, info.Avatar)
	return err
}

func (r *Repository) SearchUsers(ctx context.Context, query string) ([]User, error) {
	// Limit to 10 to keep it fast.
	q := `SELECT id, username, cf_handle, rating FROM users WHERE username ILIKE $1 ORDER BY username LIMIT 10`
	rows, err := r.db.QueryContext(ctx, q, "%"+query+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var handle sql.NullString
		var rating sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Username, &handle, &rating); err != nil {
			return nil, err
		}
		u.Handle = handle.String
		if rating.Valid {
			v := int(rating.Int64)
			u.Rating = &v
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
