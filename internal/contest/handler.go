package contest

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"go-forces/internal/codeforces"
	"go-forces/internal/httpx"
)

// Lister is the slice of the Codeforces client this feature consumes.
type Lister interface {
	ContestList(ctx context.Context, gym bool) ([]codeforces.Contest, error)
}

type Handler struct {
	cf  Lister
	log zerolog.Logger
}

func NewHandler(cf Lister, log zerolog.Logger) *Handler {
	return &Handler{
		cf:  cf,
		log: log.With().Str("component", "contest").Logger(),
	}
}

// Upcoming handles GET /api/contests: contests that have not started yet,
// soonest first.
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	contests, err := h.cf.ContestList(r.Context(), false)
	if err != nil {
		if errors.Is(err, codeforces.ErrUpstream) {
			h.log.Warn().Err(err).Msg("contest list: upstream")
			httpx.Error(w, http.StatusBadGateway, "codeforces unavailable")
			return
		}
		h.log.Error().Err(err).Msg("contest list")
		httpx.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	upcoming := []codeforces.Contest{}
	for _, c := range contests {
		if c.Phase == codeforces.ContestPhaseBefore {
			upcoming = append(upcoming, c)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].StartTimeSeconds < upcoming[j].StartTimeSeconds
	})

	httpx.JSON(w, http.StatusOK, upcoming)
}
