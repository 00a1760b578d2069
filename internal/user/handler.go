package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"go-forces/internal/codeforces"
	"go-forces/internal/httpx"
	"go-forces/internal/middleware"
)

var validate = validator.New()

type Handler struct {
	service *Service
	log     zerolog.Logger
}

func NewHandler(s *Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: s,
		log:     log.With().Str("component", "user").Logger(),
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "username must be 3-50 alphanumeric characters, password at least 8")
		return
	}

	u, err := h.service.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			httpx.Error(w, http.StatusConflict, "username already taken")
			return
		}
		h.log.Error().Err(err).Msg("register")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{"id": u.ID, "username": u.Username})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "username and password required")
		return
	}

	res, err := h.service.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error().Err(err).Msg("login")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.service.Me(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int("user_id", userID).Msg("me")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) VerifyHandle(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req VerifyHandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "handle required")
		return
	}

	info, err := h.service.VerifyHandle(r.Context(), userID, req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, ErrHandleNotFound):
			httpx.Error(w, http.StatusBadRequest, "handle not found")
		case errors.Is(err, codeforces.ErrUpstream):
			h.log.Warn().Err(err).Str("handle", req.Handle).Msg("verify handle: upstream")
			httpx.Error(w, http.StatusBadGateway, "codeforces unavailable")
		default:
			h.log.Error().Err(err).Msg("verify handle")
			httpx.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"status": "handle verified", "data": info})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httpx.JSON(w, http.StatusOK, []User{})
		return
	}

	users, err := h.service.SearchUsers(r.Context(), query)
	if err != nil {
		h.log.Error().Err(err).Msg("search users")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, users)
}
