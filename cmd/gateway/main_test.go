package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silentcry/silentcry/internal/alerts"
	"github.com/silentcry/silentcry/internal/config"
	"github.com/silentcry/silentcry/internal/handler"
	"github.com/silentcry/silentcry/internal/metrics"
	"github.com/silentcry/silentcry/internal/service"
	"github.com/silentcry/silentcry/internal/testutil"
	"github.com/silentcry/silentcry/internal/upstream"
)

type okAuth struct{}

func (okAuth) Login(context.Context, []byte, string) (*upstream.Response, error) {
	return &upstream.Response{StatusCode: http.StatusOK, ContentType: "application/json", Body: []byte(`{"token":"t"}`)}, nil
}

func (okAuth) Validate(context.Context, string) (int, error) {
	return http.StatusOK, nil
}

type panickingAnalyzer struct{}

func (panickingAnalyzer) Analyze(context.Context, string, []byte, string) (*upstream.Response, error) {
	panic("analyzer exploded")
}

func newTestRouter(t *testing.T, analyzer upstream.Analyzer, maxBody int64) http.Handler {
	t.Helper()
	cfg := &config.Gateway{
		Common:             config.Common{AppEnv: "test"},
		AuthServiceURL:     "http://auth-service:9000",
		AIServiceURL:       "http://ai-service:8000",
		CORSAllowedOrigins: "*",
		MaxRequestBodySize: maxBody,
	}
	rec := metrics.NewInMemory()
	svc := service.NewGatewayService(okAuth{}, okAuth{}, analyzer, rec)
	hub := alerts.NewHub(testutil.DiscardLogger(), rec)
	checks := map[string]handler.HealthChecker{"database": nil, "redis": nil}
	return setupRouter(cfg, svc, hub, checks, rec, testutil.DiscardLogger())
}

func TestRouter_AnalyzePanicReturnsEnvelope(t *testing.T) {
	r := newTestRouter(t, panickingAnalyzer{}, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString("payload"))
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Erreur d'analyse", body.Error)
	assert.Equal(t, "analyzer exploded", body.Details)
}

func TestRouter_OversizedAnalyzeWithoutToken(t *testing.T) {
	r := newTestRouter(t, panickingAnalyzer{}, 16)

	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(bytes.Repeat([]byte("x"), 64)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestRouter_OversizedLogin(t *testing.T) {
	r := newTestRouter(t, panickingAnalyzer{}, 16)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(bytes.Repeat([]byte("x"), 64)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
