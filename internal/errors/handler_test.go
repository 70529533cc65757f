package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradecli/internal/shared/testutil"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"context deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"context canceled", fmt.Errorf("parse: %w", context.Canceled), http.StatusGatewayTimeout, TypeTimeout},
		{"api validation", ErrValidation("view", "oneof"), http.StatusBadRequest, TypeValidation},
		{"wrapped session not found", fmt.Errorf("lookup: %w", ErrSessionNotFound), http.StatusNotFound, TypeSessionNotFound},
		{"assignment not found", NewWithDetails(http.StatusNotFound, "ASSIGNMENT_NOT_FOUND", "missing", "Quiz (9)"), http.StatusNotFound, TypeAssignmentNotFound},
		{"too large", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"unsupported", ErrUnsupportedFormat, http.StatusUnsupportedMediaType, TypeUnsupportedMedia},
		{"app parsing", NewParsingError("bad gradebook", errors.New("x")), http.StatusUnprocessableEntity, TypeInvalidGradebook},
		{"app config", NewConfigError("bad config", errors.New("yaml")), http.StatusInternalServerError, TypeInternal},
		{"app export", NewExportError("write failed", errors.New("disk")), http.StatusInternalServerError, TypeExportFailed},
		{"max bytes", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"not found text", errors.New("thing not found"), http.StatusNotFound, TypeNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, handler := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil)
			h.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			got := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, got["type"])
			assert.Equal(t, "/api/sessions/abc", got["instance"])
			assert.NotContains(t, got, "stack")
			assert.True(t, handler.ContainsMessage("request failed"))
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, handler.Count())
}

func TestErrorHandler_ParsingDetail(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	h.HandleError(w, r, NewParsingError("invalid gradebook", errors.New("missing Section column")).WithContext("row", 3))

	got := decodeProblem(t, w)
	assert.Equal(t, "invalid gradebook: missing Section column", got["detail"])
	assert.Equal(t, "INVALID_GRADEBOOK", got["error_code"])
	assert.Contains(t, got, "stack")
	assert.Equal(t, map[string]interface{}{"row": float64(3)}, got["details"])
}

func TestErrorHandler_InternalDetailHidden(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/sessions/1/export", nil)
	h.HandleError(w, r, NewExportError("write failed", errors.New("/tmp/secret path")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	got := decodeProblem(t, w)
	assert.Equal(t, "write failed", got["detail"])
	assert.Equal(t, "EXPORT_FAILED", got["error_code"])
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	h.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/x", nil), "kaboom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	got := decodeProblem(t, w)
	assert.Equal(t, "kaboom", got["panic"])
	assert.True(t, handler.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodPut, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	got := decodeProblem(t, w)
	assert.Equal(t, TypeMethodNotAllowed, got["type"])
	assert.Equal(t, "Method PUT is not allowed for this endpoint", got["detail"])
}

func TestErrorHandler_Middleware(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	panicking := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("bad")
	}))
	w := httptest.NewRecorder()
	panicking.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	failing := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w = httptest.NewRecorder()
	failing.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, handler.ContainsMessage("error response"))
}
