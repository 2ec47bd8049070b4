package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kanjiarena/kanji-arena/internal/auth"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	httperrors "github.com/kanjiarena/kanji-arena/pkg/http/errors"
	ws "github.com/kanjiarena/kanji-arena/pkg/http/ws"
)

// HTTPHandler exposes the ranking page and the live leaderboard stream.
type HTTPHandler struct {
	boards   map[gamemode.Mode]*Service
	grades   gamemode.Grades
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHTTPHandler indexes services by their mode. The index is fixed after
// construction.
func NewHTTPHandler(services []*Service, grades gamemode.Grades, hub *ws.Hub, upgrader websocket.Upgrader, logger zerolog.Logger) *HTTPHandler {
	boards := make(map[gamemode.Mode]*Service, len(services))
	for _, svc := range services {
		boards[svc.Mode()] = svc
	}
	return &HTTPHandler{
		boards:   boards,
		grades:   grades,
		hub:      hub,
		upgrader: upgrader,
		logger:   logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleRanking responds with the board of a mode and grade.
// Route: GET /api/{lang}/games/{mode}/{grade}/ranking
func (h *HTTPHandler) HandleRanking(w http.ResponseWriter, r *http.Request) {
	svc, grade, ok := h.resolve(w, r.PathValue("mode"), r.PathValue("grade"))
	if !ok {
		return
	}

	board, err := svc.Board(r.Context(), Filters{Grade: grade}, auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Str("mode", svc.Mode().String()).Int("grade", grade).Msg("ranking fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeLeaderboardFetchFailed, "Could not load the ranking")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, board)
}

// HandleStream upgrades to a WebSocket that receives updates of one board and
// can switch boards with subscribe/unsubscribe messages.
// Route: GET /v1/ws/leaderboards?mode=classic&grade=3
func (h *HTTPHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	svc, grade, ok := h.resolve(w, q.Get("mode"), q.Get("grade"))
	if !ok {
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConnection(raw, h.logger)
	h.hub.Register(conn)
	defer h.hub.Unregister(conn.ID)
	go conn.WritePump()

	h.follow(r.Context(), conn, svc, grade)

	conn.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypePing:
			return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		case ws.TypeSubscribe, ws.TypeUnsubscribe:
			var sub ws.SubscribePayload
			if err := json.Unmarshal(msg.Payload, &sub); err != nil {
				return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "malformed subscription")
			}
			mode, err := gamemode.Parse(sub.Mode)
			if err != nil {
				return h.sendError(conn, httperrors.ErrCodeUnknownMode, err.Error())
			}
			if err := h.grades.Check(sub.Grade); err != nil {
				return h.sendError(conn, httperrors.ErrCodeInvalidGrade, err.Error())
			}
			if msg.Type == ws.TypeUnsubscribe {
				h.hub.Unsubscribe(conn.ID, ws.Topic(mode.String(), sub.Grade))
				return nil
			}
			target, ok := h.boards[mode]
			if !ok {
				return h.sendError(conn, httperrors.ErrCodeUnknownMode, "mode not served")
			}
			h.follow(r.Context(), conn, target, sub.Grade)
			return nil
		default:
			return h.sendError(conn, httperrors.ErrCodeUnknownMessageType, msg.Type)
		}
	})
}

// follow subscribes conn to a board and sends its current state.
func (h *HTTPHandler) follow(ctx context.Context, conn *ws.Connection, svc *Service, grade int) {
	topic := ws.Topic(svc.Mode().String(), grade)
	if err := h.hub.Subscribe(conn.ID, topic); err != nil {
		h.logger.Warn().Err(err).Str("topic", topic).Msg("subscribe failed")
		return
	}

	ctxLogger := h.logger.With().Str("topic", topic).Logger()
	snapshot, err := svc.Snapshot(ctx, Filters{Grade: grade})
	if err != nil {
		ctxLogger.Warn().Err(err).Msg("initial snapshot failed")
		return
	}
	msg, err := ws.NewMessage(ws.TypeLeaderboardSnapshot, snapshot)
	if err != nil {
		ctxLogger.Warn().Err(err).Msg("snapshot encode failed")
		return
	}
	if err := conn.Send(msg); err != nil {
		ctxLogger.Warn().Err(err).Msg("snapshot send failed")
	}
}

func (h *HTTPHandler) sendError(conn *ws.Connection, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

func (h *HTTPHandler) resolve(w http.ResponseWriter, rawMode, rawGrade string) (*Service, int, bool) {
	mode, err := gamemode.Parse(rawMode)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownMode, "Unknown game mode")
		return nil, 0, false
	}
	svc, ok := h.boards[mode]
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeUnknownMode, "Unknown game mode")
		return nil, 0, false
	}
	grade, err := h.grades.Parse(rawGrade)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidGrade, "Invalid difficulty grade")
		return nil, 0, false
	}
	return svc, grade, true
}
