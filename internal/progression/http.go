package progression

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/auth"
	httperrors "github.com/kanjiarena/kanji-arena/pkg/http/errors"
)

// HTTPHandler serves the learning space.
type HTTPHandler struct {
	tracker *Tracker
	logger  zerolog.Logger
}

func NewHTTPHandler(tracker *Tracker, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		tracker: tracker,
		logger:  logger.With().Str("component", "progression_http").Logger(),
	}
}

// HandleLearningSpace lists the caller's items to review.
// Route: GET /api/{lang}/users/me/learning-space (authenticated)
func (h *HTTPHandler) HandleLearningSpace(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	items, err := h.tracker.LearningSpace(r.Context(), *userID, r.PathValue("lang"))
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("learning space fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeProgressionFetchFailed, "Could not load your learning space")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}
