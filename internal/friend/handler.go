package friend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"go-forces/internal/httpx"
	"go-forces/internal/middleware"
)

// Store is what the handlers need from persistence. *Repository implements
// it; tests swap in fakes.
type Store interface {
	UserIDByUsername(ctx context.Context, username string) (int, error)
	List(ctx context.Context, userID int) ([]Friend, error)
	Add(ctx context.Context, fromID, toID int) error
	Remove(ctx context.Context, fromID, toID int) error
}

type Handler struct {
	repo Store
	log  zerolog.Logger
}

func NewHandler(repo Store, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("component", "friend").Logger(),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	friends, err := h.repo.List(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("list friends")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, friends)
}

type addRequest struct {
	Username string `json:"username"`
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, username, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		httpx.Error(w, http.StatusBadRequest, "username required")
		return
	}
	if req.Username == username {
		httpx.Error(w, http.StatusBadRequest, "cannot add yourself")
		return
	}

	targetID, err := h.repo.UserIDByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error().Err(err).Str("target", req.Username).Msg("add friend: resolve target")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.repo.Add(r.Context(), userID, targetID); err != nil {
		h.log.Error().Err(err).Msg("add friend")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "friend added"})
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	target := chi.URLParam(r, "username")
	targetID, err := h.repo.UserIDByUsername(r.Context(), target)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error().Err(err).Str("target", target).Msg("remove friend: resolve target")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.repo.Remove(r.Context(), userID, targetID); err != nil {
		h.log.Error().Err(err).Msg("remove friend")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "friend removed"})
}
