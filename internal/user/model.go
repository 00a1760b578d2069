package user

import "time"

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`

	// Linked Codeforces identity, refreshed on handle verification.
	Handle          string     `json:"codeforces_handle,omitempty"`
	Rating          *int       `json:"rating,omitempty"`
	Rank            string     `json:"rank,omitempty"`
	MaxRating       *int       `json:"max_rating,omitempty"`
	MaxRank         string     `json:"max_rank,omitempty"`
	Avatar          string     `json:"avatar,omitempty"`
	HandleUpdatedAt *time.Time `json:"last_updated,omitempty"`
}

type RegisterRequest struct {
	// Alphanum matters beyond hygiene: chat room keys are usernames
	// joined by "_", so the separator must never appear in one.
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ID          int    `json:"id"`
	Username    string `json:"username"`
}

type VerifyHandleRequest struct {
	Handle string `json:"handle" validate:"required,max=50"`
}
