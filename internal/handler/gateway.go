package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/silentcry/silentcry/internal/middleware"
	"github.com/silentcry/silentcry/internal/service"
	"github.com/silentcry/silentcry/internal/upstream"
)

// Error messages of the gateway envelope.
const (
	msgLoginFailed   = "Authentication failed"
	msgAnalyzeFailed = "Erreur d'analyse"
	msgInternal      = "Internal Server Error"
)

// GatewayHandler serves the proxied routes of the gateway.
type GatewayHandler struct {
	svc     *service.GatewayService
	logger  *slog.Logger
	authURL string
	aiURL   string
	maxBody int64
	now     func() time.Time
}

// NewGatewayHandler creates a new GatewayHandler. Request bodies above
// maxBody bytes are rejected with 413; zero or less disables the limit.
func NewGatewayHandler(svc *service.GatewayService, authURL, aiURL string, maxBody int64, logger *slog.Logger) *GatewayHandler {
	return &GatewayHandler{
		svc:     svc,
		logger:  logger,
		authURL: authURL,
		aiURL:   aiURL,
		maxBody: maxBody,
		now:     time.Now,
	}
}

// WritePanic renders the error envelope for a request whose handler
// panicked, using the message of the route that failed.
func WritePanic(w http.ResponseWriter, r *http.Request, rvr any) {
	msg := msgInternal
	switch r.URL.Path {
	case "/analyze":
		msg = msgAnalyzeFailed
	case "/login":
		msg = msgLoginFailed
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msg, Details: fmt.Sprint(rvr)})
}

// Login forwards the request body to the auth service.
// POST /login
func (h *GatewayHandler) Login(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r, msgLoginFailed)
	if !ok {
		return
	}

	res := h.svc.Login(r.Context(), body, r.Header.Get("Content-Type"))
	if res.Outcome != service.OutcomeSuccess {
		h.logger.Warn("login_failed",
			"error", res.Err.Details,
			"upstream_status", res.Err.StatusCode,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeJSON(w, res.Err.HTTPStatus(), ErrorResponse{Error: msgLoginFailed, Details: res.Err.Details})
		return
	}

	writeUpstream(w, res.Response)
}

// Analyze authorizes the caller and forwards the payload to the AI service.
// POST /analyze
func (h *GatewayHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	authorization := r.Header.Get("Authorization")
	if service.BearerToken(authorization) == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	body, ok := h.readBody(w, r, msgAnalyzeFailed)
	if !ok {
		return
	}

	res := h.svc.Analyze(r.Context(), service.AnalyzeInput{
		Authorization: authorization,
		ContentType:   r.Header.Get("Content-Type"),
		Body:          body,
	})

	switch res.Outcome {
	case service.OutcomeSuccess:
		writeUpstream(w, res.Response)
	case service.OutcomeUnauthorized:
		w.WriteHeader(http.StatusUnauthorized)
	case service.OutcomeForbidden:
		w.WriteHeader(http.StatusForbidden)
	default:
		h.logger.Error("analyze_failed",
			"error", res.Err.Details,
			"upstream_status", res.Err.StatusCode,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeJSON(w, res.Err.HTTPStatus(), ErrorResponse{Error: msgAnalyzeFailed, Details: res.Err.Details})
	}
}

// StatusResponse is the gateway status document.
type StatusResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}

// Status reports the gateway as up with the current time.
// GET /api/status
func (h *GatewayHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Version:   Version,
		Services: map[string]string{
			"auth": h.authURL,
			"ai":   h.aiURL,
		},
	})
}

// readBody buffers the request body so it can be forwarded verbatim.
// The size limit applies here rather than in a middleware so that /analyze
// rejects a missing token before looking at the body.
func (h *GatewayHandler) readBody(w http.ResponseWriter, r *http.Request, msg string) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	if h.maxBody > 0 {
		if r.ContentLength > h.maxBody {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: msg, Details: "request body too large"})
			return nil, false
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: msg, Details: "request body too large"})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Details: err.Error()})
		return nil, false
	}
	return body, true
}

// writeUpstream relays an upstream response as-is.
func writeUpstream(w http.ResponseWriter, resp *upstream.Response) {
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
