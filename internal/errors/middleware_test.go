package errors

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradecli/internal/shared/testutil"
)

func TestErrorMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel slog.Level
	}{
		{"success", http.StatusOK, slog.LevelInfo},
		{"client error", http.StatusNotFound, slog.LevelWarn},
		{"server error", http.StatusInternalServerError, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, handler := testutil.NewTestLogger(t)
			m := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

			h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions?x=1", nil))

			assert.Equal(t, tt.status, w.Code)
			testutil.AssertLogContains(t, handler, tt.wantLevel, "http request")
		})
	}
}

func TestErrorMiddleware_RecoversPanic(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	m := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestErrorMiddleware_LogsFailedUploadShape(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	m := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	var seen []byte
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, err := buf.ReadFrom(r.Body)
		require.NoError(t, err)
		seen = buf.Bytes()
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	body := "Student,ID\nDoe,1001\n"
	r := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "text/csv")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, body, string(seen))
	assert.True(t, handler.ContainsAttr("content_type", "text/csv"))
	assert.True(t, handler.ContainsAttr("content_length", int64(len(body))))
	for _, rec := range handler.GetRecords() {
		assert.NotContains(t, rec.Attrs, "request_body")
	}
}

func TestErrorMiddleware_SuccessOmitsUploadShape(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	m := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	r := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString("Student,ID\n"))
	r.Header.Set("Content-Type", "text/csv")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.True(t, handler.ContainsAttr("status", int64(http.StatusCreated)))
	assert.False(t, handler.ContainsAttr("content_type", "text/csv"))
}
