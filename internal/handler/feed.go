package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/silentcry/silentcry/internal/alerts"
	"github.com/silentcry/silentcry/internal/middleware"
	"github.com/silentcry/silentcry/internal/service"
)

// Authorizer runs the gateway credential checks. *service.GatewayService
// implements it.
type Authorizer interface {
	Authorize(ctx context.Context, authorization string) service.Result
}

// FeedHandler upgrades authorized clients onto the alert feed.
type FeedHandler struct {
	authorizer Authorizer
	hub        *alerts.Hub
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewFeedHandler creates a new FeedHandler. allowedOrigins follows the
// CORS setting; "*" accepts any origin.
func NewFeedHandler(authorizer Authorizer, hub *alerts.Hub, allowedOrigins []string, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{
		authorizer: authorizer,
		hub:        hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// ServeWS authorizes the caller like /analyze does, then subscribes the
// connection to alerts. Browsers cannot set headers on websocket requests,
// so the token may also come as ?token=<jwt>.
// GET /ws
func (h *FeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		if tok := r.URL.Query().Get("token"); tok != "" {
			authorization = "Bearer " + tok
		}
	}

	if !authorize(w, r, h.authorizer, authorization, "Feed unavailable", h.logger) {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := alerts.NewClient(h.hub, conn)
	if !h.hub.Register(r.Context(), client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// authorize runs the gateway credential checks and writes the failure
// response: 401 or 403 with no body, or the error envelope with msg.
func authorize(w http.ResponseWriter, r *http.Request, authorizer Authorizer, authorization, msg string, logger *slog.Logger) bool {
	res := authorizer.Authorize(r.Context(), authorization)
	switch res.Outcome {
	case service.OutcomeSuccess:
		return true
	case service.OutcomeUnauthorized:
		w.WriteHeader(http.StatusUnauthorized)
	case service.OutcomeForbidden:
		w.WriteHeader(http.StatusForbidden)
	default:
		logger.Error("authorization failed",
			"error", res.Err.Details,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeJSON(w, res.Err.HTTPStatus(), ErrorResponse{Error: msg, Details: res.Err.Details})
	}
	return false
}
