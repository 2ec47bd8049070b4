package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kanjiarena/kanji-arena/internal/auth"
	authjwt "github.com/kanjiarena/kanji-arena/internal/auth/jwt"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockStore) SetAlertOptIn(ctx context.Context, id uuid.UUID, enabled bool) error {
	return m.Called(ctx, id, enabled).Error(0)
}

func authed(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(auth.WithClaims(req.Context(), &authjwt.Claims{UserID: id}))
}

func TestHandleGetAlert(t *testing.T) {
	store := new(mockStore)
	h := NewHTTPHandler(store, zerolog.Nop())
	id := uuid.New()
	store.On("GetByID", mock.Anything, id).Return(User{ID: id, AlertOutOfRanking: true}, nil)

	rec := httptest.NewRecorder()
	h.HandleGetAlert(rec, authed(httptest.NewRequest(http.MethodGet, "/", nil), id))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"alertOutOfRanking":true}`, rec.Body.String())
	store.AssertExpectations(t)
}

func TestHandleGetAlertUnknownUser(t *testing.T) {
	store := new(mockStore)
	h := NewHTTPHandler(store, zerolog.Nop())
	id := uuid.New()
	store.On("GetByID", mock.Anything, id).Return(User{}, ErrUserNotFound)

	rec := httptest.NewRecorder()
	h.HandleGetAlert(rec, authed(httptest.NewRequest(http.MethodGet, "/", nil), id))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSetAlert(t *testing.T) {
	store := new(mockStore)
	h := NewHTTPHandler(store, zerolog.Nop())
	id := uuid.New()
	store.On("SetAlertOptIn", mock.Anything, id, false).Return(nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"alertOutOfRanking":false}`))
	h.HandleSetAlert(rec, authed(req, id))

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestHandleSetAlertRequiresValue(t *testing.T) {
	store := new(mockStore)
	h := NewHTTPHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	h.HandleSetAlert(rec, authed(req, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNotCalled(t, "SetAlertOptIn", mock.Anything, mock.Anything, mock.Anything)
}

func TestAlertEndpointsRequireAuth(t *testing.T) {
	h := NewHTTPHandler(new(mockStore), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleGetAlert(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleSetAlert(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"alertOutOfRanking":true}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContactable(t *testing.T) {
	assert.True(t, User{AlertOutOfRanking: true, Email: "a@b.c"}.Contactable())
	assert.False(t, User{AlertOutOfRanking: false, Email: "a@b.c"}.Contactable())
	assert.False(t, User{AlertOutOfRanking: true}.Contactable())
}
