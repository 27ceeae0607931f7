// Package handler provides HTTP request handlers for the gateway, the auth
// stub and the AI service.
package handler

import (
	"encoding/json"
	"net/http"
)

// Version is reported by the metadata endpoints.
const Version = "1.0.0"

// Handler serves the gateway's static metadata and fallback routes.
type Handler struct {
	authURL string
	aiURL   string
}

// New creates a new Handler reporting the configured upstream URLs.
func New(authURL, aiURL string) *Handler {
	return &Handler{authURL: authURL, aiURL: aiURL}
}

// InfoResponse is the gateway metadata document.
type InfoResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints []string          `json:"endpoints"`
	Services  map[string]string `json:"services"`
}

// Info returns static gateway metadata.
// GET /
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Service: "Silent Cry API Gateway",
		Version: Version,
		Endpoints: []string{
			"POST /login",
			"POST /analyze",
			"GET /api/status",
			"GET /ws",
		},
		Services: map[string]string{
			"auth": h.authURL,
			"ai":   h.aiURL,
		},
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	NotFound(w, r)
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	MethodNotAllowed(w, r)
}

// NotFound writes a JSON 404. Shared by all three services.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "resource not found",
	})
}

// MethodNotAllowed writes a JSON 405. Shared by all three services.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}

// ErrorResponse is the gateway error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
