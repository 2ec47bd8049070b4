package leaderboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanjiarena/kanji-arena/internal/auth"
	authjwt "github.com/kanjiarena/kanji-arena/internal/auth/jwt"
	"github.com/kanjiarena/kanji-arena/internal/gamemode"
	ws "github.com/kanjiarena/kanji-arena/pkg/http/ws"
)

func newTestMux(t *testing.T, store *memoryStore) (*http.ServeMux, *ws.Hub) {
	t.Helper()
	hub := ws.NewHub(zerolog.Nop())
	svc := newTestService(store, nil)
	h := NewHTTPHandler([]*Service{svc}, gamemode.DefaultGrades, hub, ws.NewUpgrader(nil), zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/{lang}/games/{mode}/{grade}/ranking", h.HandleRanking)
	mux.HandleFunc("GET /v1/ws/leaderboards", h.HandleStream)
	return mux, hub
}

func TestHandleRanking(t *testing.T) {
	store := &memoryStore{}
	recs := seed(store, 3, 800, 400)
	mux, _ := newTestMux(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/fr/games/classic/3/ranking", nil)
	claims := &authjwt.Claims{UserID: *recs[0].UserID}
	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var board Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	assert.Equal(t, 2, board.Metrics.TotalChronos)
	require.Len(t, board.Chronos, 2)
	assert.Equal(t, int64(400), board.Chronos[0].DurationMs)
	require.NotNil(t, board.UserBest)
	assert.Equal(t, 2, board.UserBest.Rank)
}

func TestHandleRankingRejectsBadRoutes(t *testing.T) {
	mux, _ := newTestMux(t, &memoryStore{})

	cases := map[string]int{
		"/api/en/games/reverse/3/ranking": http.StatusNotFound, // mode not served by this mux
		"/api/en/games/sudoku/3/ranking":  http.StatusNotFound,
		"/api/en/games/classic/9/ranking": http.StatusBadRequest,
		"/api/en/games/classic/x/ranking": http.StatusBadRequest,
	}
	for path, status := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, rec.Code, path)
	}
}

func TestHandleStreamSendsSnapshotThenUpdates(t *testing.T) {
	store := &memoryStore{}
	seed(store, 2, 1200)
	mux, hub := newTestMux(t, store)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/leaderboards?mode=classic&grade=2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first ws.Message
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, ws.TypeLeaderboardSnapshot, first.Type)
	var snap ws.LeaderboardUpdatePayload
	require.NoError(t, json.Unmarshal(first.Payload, &snap))
	assert.Equal(t, 1, snap.TotalChronos)

	topic := ws.Topic("classic", 2)
	require.Eventually(t, func() bool { return hub.SubscriberCount(topic) == 1 }, time.Second, 10*time.Millisecond)

	b := NewBroadcaster(nil, hub, "", zerolog.Nop())
	update, err := json.Marshal(ws.LeaderboardUpdatePayload{
		Mode: "classic", Grade: 2, TotalChronos: 2,
		Top: []ws.LeaderboardEntry{{Rank: 1, DisplayName: "Aiko", DurationMs: 900}},
	})
	require.NoError(t, err)
	b.forward(string(update))

	var second ws.Message
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, ws.TypeLeaderboardUpdate, second.Type)

	// Updates of another board are not delivered.
	other, _ := json.Marshal(ws.LeaderboardUpdatePayload{Mode: "classic", Grade: 4})
	b.forward(string(other))

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: uuid.NewString()}))
	var pong ws.Message
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, ws.TypePong, pong.Type)
}
