package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"go-forces/internal/httpx"
	"go-forces/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

type Handler struct {
	hub   *Hub
	store Store
	log   zerolog.Logger
}

func NewHandler(hub *Hub, store Store, log zerolog.Logger) *Handler {
	return &Handler{
		hub:   hub,
		store: store,
		log:   log.With().Str("component", "chat").Logger(),
	}
}

// ServeWS upgrades GET /ws?room=<a>_<b>. The authenticated user must be one
// of the two participants encoded in the room key; anyone else is turned
// away before the upgrade.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, username, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	room := r.URL.Query().Get("room")
	if !IsParticipant(room, username) {
		httpx.Error(w, http.StatusForbidden, "not a participant of this room")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, h.store, room, userID, username, h.log)
	h.hub.Join(client)

	go client.writePump()
	go client.readPump()
}

// History handles GET /api/chat/history/{username}: the full thread between
// the caller and the target, oldest first. A pair that never talked gets an
// empty list, an unknown target gets a 404.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	target := chi.URLParam(r, "username")
	targetID, err := h.store.UserIDByUsername(r.Context(), target)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error().Err(err).Str("target", target).Msg("history: resolve target")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	conv, err := h.store.FindConversation(r.Context(), callerID, targetID)
	if err != nil {
		h.log.Error().Err(err).Msg("history: find conversation")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if conv == nil {
		httpx.JSON(w, http.StatusOK, []HistoryEntry{})
		return
	}

	entries, err := h.store.ListMessages(r.Context(), conv.ID)
	if err != nil {
		h.log.Error().Err(err).Int("conversation_id", conv.ID).Msg("history: list messages")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

type startConversationRequest struct {
	Username string `json:"username"`
}

type startConversationResponse struct {
	ConversationID int    `json:"conversation_id"`
	Room           string `json:"room"`
}

// StartConversation handles POST /api/conversations: get-or-create the
// thread with the target and hand back the room key to connect with.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	callerID, callerName, ok := middleware.Identity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		httpx.Error(w, http.StatusBadRequest, "username required")
		return
	}
	if req.Username == callerName {
		httpx.Error(w, http.StatusBadRequest, "cannot chat with yourself")
		return
	}

	targetID, err := h.store.UserIDByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httpx.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error().Err(err).Str("target", req.Username).Msg("start conversation: resolve target")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	conv, err := h.store.EnsureConversation(r.Context(), callerID, targetID)
	if err != nil {
		h.log.Error().Err(err).Msg("start conversation: ensure")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.JSON(w, http.StatusOK, startConversationResponse{
		ConversationID: conv.ID,
		Room:           RoomKey(callerName, req.Username),
	})
}
