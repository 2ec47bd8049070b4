package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/auth"
	httperrors "github.com/kanjiarena/kanji-arena/pkg/http/errors"
)

// HTTPHandler exposes the out-of-ranking alert preference.
type HTTPHandler struct {
	store  Store
	logger zerolog.Logger
}

func NewHTTPHandler(store Store, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		store:  store,
		logger: logger.With().Str("component", "account_http").Logger(),
	}
}

type alertPreference struct {
	AlertOutOfRanking *bool `json:"alertOutOfRanking"`
}

// HandleGetAlert returns whether the caller is alerted when pushed out of a board.
// Route: GET /api/{lang}/users/me/alert-out-of-ranking (authenticated)
func (h *HTTPHandler) HandleGetAlert(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	user, err := h.store.GetByID(r.Context(), *userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeUserNotFound, "User not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("get user failed")
		httperrors.RespondInternalError(w, "Could not load your preferences")
		return
	}
	enabled := user.AlertOutOfRanking
	httperrors.RespondJSON(w, http.StatusOK, alertPreference{AlertOutOfRanking: &enabled})
}

// HandleSetAlert stores the caller's alert preference.
// Route: POST /api/{lang}/users/me/alert-out-of-ranking (authenticated)
func (h *HTTPHandler) HandleSetAlert(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req alertPreference
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AlertOutOfRanking == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingParameters, "alertOutOfRanking is required", "alertOutOfRanking")
		return
	}

	if err := h.store.SetAlertOptIn(r.Context(), *userID, *req.AlertOutOfRanking); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeUserNotFound, "User not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("set alert preference failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeAlertUpdateFailed, "Could not save your preference")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, req)
}
