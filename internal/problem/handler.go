package problem

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"go-forces/internal/codeforces"
	"go-forces/internal/httpx"
	"go-forces/internal/middleware"
)

const pageSize = 20

var validate = validator.New()

// Source is the slice of the Codeforces client this feature consumes.
type Source interface {
	Problems(ctx context.Context, tags []string) ([]codeforces.Problem, error)
}

type Handler struct {
	cf   Source
	repo *Repository
	log  zerolog.Logger
}

func NewHandler(cf Source, repo *Repository, log zerolog.Logger) *Handler {
	return &Handler{
		cf:   cf,
		repo: repo,
		log:  log.With().Str("component", "problem").Logger(),
	}
}

type listResponse struct {
	Count   int                  `json:"count"`
	Results []codeforces.Problem `json:"results"`
}

// List handles GET /api/problems?tags=a,b&page=N: the upstream problemset,
// solved counts included, 20 per page.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var tags []string
	if raw := r.URL.Query().Get("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	problems, err := h.cf.Problems(r.Context(), tags)
	if err != nil {
		if errors.Is(err, codeforces.ErrUpstream) {
			h.log.Warn().Err(err).Msg("problem list: upstream")
			httpx.Error(w, http.StatusBadGateway, "codeforces unavailable")
			return
		}
		h.log.Error().Err(err).Msg("problem list")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(problems) {
		start = len(problems)
	}
	if end > len(problems) {
		end = len(problems)
	}

	httpx.JSON(w, http.StatusOK, listResponse{
		Count:   len(problems),
		Results: problems[start:end],
	})
}

func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookmarks, err := h.repo.ListBookmarks(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("list bookmarks")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, bookmarks)
}

type toggleRequest struct {
	ContestID int    `json:"contest_id" validate:"required"`
	Index     string `json:"index" validate:"required,max=5"`
	Name      string `json:"name" validate:"required,max=255"`
}

// ToggleBookmark handles POST /api/problems/bookmarks: flips the bookmark
// and reports where it landed.
func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "contest_id, index and name required")
		return
	}

	bookmarked, err := h.repo.Toggle(r.Context(), userID, Bookmark{
		ContestID: req.ContestID,
		Index:     req.Index,
		Name:      req.Name,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("toggle bookmark")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}
