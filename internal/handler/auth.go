package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/silentcry/silentcry/internal/middleware"
	"github.com/silentcry/silentcry/internal/service"
	"github.com/silentcry/silentcry/internal/token"
)

// TokenIssuer issues and verifies bearer tokens.
type TokenIssuer interface {
	Issue(user string) (string, time.Time, error)
	Verify(tokenString string) (*token.Claims, error)
}

// AuthHandler serves the auth stub.
type AuthHandler struct {
	issuer TokenIssuer
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(issuer TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{issuer: issuer, logger: logger}
}

// LoginResponse carries an issued token.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login issues a token for the fixed subject. The body is ignored.
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		_, _ = io.Copy(io.Discard, r.Body)
	}

	signed, expiresAt, err := h.issuer.Issue(token.Subject)
	if err != nil {
		h.logger.Error("token issuance failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "token issuance failed"})
		return
	}

	h.logger.Info("token_issued",
		"user", token.Subject,
		"expires_at", expiresAt,
		"request_id", middleware.GetRequestID(r.Context()),
	)
	writeJSON(w, http.StatusOK, LoginResponse{Token: signed})
}

// Validate checks the bearer token: 401 when absent, 403 when rejected,
// 200 otherwise. No body is written.
// GET /validate
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	tok := service.BearerToken(r.Header.Get("Authorization"))
	if tok == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if _, err := h.issuer.Verify(tok); err != nil {
		h.logger.Warn("token rejected",
			"reason", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Health always answers OK.
// GET /health
func (h *AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}
