package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondHelpers(t *testing.T) {
	cases := map[string]struct {
		write  func(w http.ResponseWriter)
		status int
		body   ErrorResponse
	}{
		"bad request": {
			func(w http.ResponseWriter) { RespondBadRequest(w, ErrCodeInvalidGrade, "bad grade") },
			http.StatusBadRequest, ErrorResponse{Error: ErrCodeInvalidGrade, Message: "bad grade"},
		},
		"validation": {
			func(w http.ResponseWriter) { RespondValidationError(w, ErrCodeMissingParameters, "required", "choiceIndex") },
			http.StatusBadRequest, ErrorResponse{Error: ErrCodeMissingParameters, Message: "required", Field: "choiceIndex"},
		},
		"internal": {
			func(w http.ResponseWriter) { RespondInternalError(w, "oops") },
			http.StatusInternalServerError, ErrorResponse{Error: ErrCodeInternalError, Message: "oops"},
		},
		"unavailable": {
			func(w http.ResponseWriter) { RespondServiceUnavailable(w, ErrCodeInsufficientVocabulary, "empty") },
			http.StatusServiceUnavailable, ErrorResponse{Error: ErrCodeInsufficientVocabulary, Message: "empty"},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.body, body)
		})
	}
}
