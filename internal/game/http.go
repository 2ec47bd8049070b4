package game

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/auth"
	"github.com/kanjiarena/kanji-arena/internal/game/card"
	"github.com/kanjiarena/kanji-arena/internal/game/session"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	httperrors "github.com/kanjiarena/kanji-arena/pkg/http/errors"
)

const restartMessage = "Your answer could not be processed, please restart the game"

// HTTPHandler exposes the engines of every mode.
type HTTPHandler struct {
	engines map[gamemode.Mode]*Engine
	logger  zerolog.Logger
}

// NewHTTPHandler indexes engines by mode. The index is fixed after construction.
func NewHTTPHandler(engines []*Engine, logger zerolog.Logger) *HTTPHandler {
	byMode := make(map[gamemode.Mode]*Engine, len(engines))
	for _, e := range engines {
		byMode[e.Mode()] = e
	}
	return &HTTPHandler{
		engines: byMode,
		logger:  logger.With().Str("component", "game_http").Logger(),
	}
}

// HandleStart opens a session.
// Route: GET /api/{lang}/games/{mode}/{grade}/start[?training=true]
func (h *HTTPHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}
	grade, err := strconv.Atoi(r.PathValue("grade"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidGrade, "Difficulty grade must be a number")
		return
	}
	kind := gamemode.Timed
	if training, _ := strconv.ParseBool(r.URL.Query().Get("training")); training {
		kind = gamemode.Training
	}

	resp, err := engine.Start(r.Context(), StartRequest{
		Grade: grade,
		Lang:  r.PathValue("lang"),
		Kind:  kind,
	})
	if err != nil {
		h.respondGameError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, resp)
}

type checkAnswerRequest struct {
	GameToken   string `json:"gameToken"`
	ChoiceIndex *int   `json:"choiceIndex"`
}

// HandleCheckAnswer scores one answer.
// Route: POST /api/{lang}/games/{mode}/check-answer
func (h *HTTPHandler) HandleCheckAnswer(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.engine(w, r)
	if !ok {
		return
	}

	var req checkAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	var player *Player
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		player = &Player{ID: claims.UserID, DisplayName: claims.DisplayName}
	}

	result, err := engine.CheckAnswer(r.Context(), AnswerRequest{
		Token:       req.GameToken,
		ChoiceIndex: req.ChoiceIndex,
		Player:      player,
	})
	if err != nil {
		h.respondGameError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) engine(w http.ResponseWriter, r *http.Request) (*Engine, bool) {
	mode, err := gamemode.Parse(r.PathValue("mode"))
	if err == nil {
		if e, ok := h.engines[mode]; ok {
			return e, true
		}
	}
	httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownMode, "Unknown game mode")
	return nil, false
}

func (h *HTTPHandler) respondGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMissingParameters):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingParameters, "gameToken and choiceIndex are required")
	case errors.Is(err, ErrInvalidGrade):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidGrade, "Difficulty grade out of range")
	case errors.Is(err, session.ErrEnvelopeExpired):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeGameTokenExpired, restartMessage)
	case errors.Is(err, session.ErrPayloadCorrupt):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeGamePayloadCorrupt, restartMessage)
	case errors.Is(err, session.ErrEnvelopeInvalid):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeGameTokenInvalid, restartMessage)
	case errors.Is(err, card.ErrInsufficientVocabulary):
		h.logger.Error().Err(err).Msg("vocabulary pool too small")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeInsufficientVocabulary, "Not enough vocabulary for this grade")
	case errors.Is(err, ErrPersistence):
		h.logger.Error().Err(err).Msg("win could not be saved")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodePersistenceFailure, "Your result could not be saved")
	default:
		h.logger.Error().Err(err).Msg("game request failed")
		httperrors.RespondInternalError(w, "Game request failed")
	}
}
