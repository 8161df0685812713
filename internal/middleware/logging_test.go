package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, target string, status int) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := SecureLogger(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	line := logLine(t, "/changepassword?token=abc.def.ghi", http.StatusOK)

	assert.Equal(t, "/changepassword?[REDACTED]", line["path"])
	assert.NotContains(t, line["path"], "abc")
}

func TestSecureLogger_KeepsPlainQuery(t *testing.T) {
	line := logLine(t, "/admin/users?limit=5", http.StatusOK)

	assert.Equal(t, "/admin/users?limit=5", line["path"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
	assert.Equal(t, "192.0.2.1", line["client_ip"])
	assert.Equal(t, "INFO", line["level"])
}

func TestSecureLogger_ServerErrorsLogAtError(t *testing.T) {
	line := logLine(t, "/health", http.StatusInternalServerError)

	assert.Equal(t, "ERROR", line["level"])
}
