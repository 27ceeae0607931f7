package handler

import (
	"context"
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

// multipartMemory is how much of a multipart form is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// DetailResponse is the AI service error body.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// AnalysisHandler serves the AI service.
type AnalysisHandler struct {
	svc         *service.AnalysisService
	validator   upstream.Validator
	authURL     string
	authTimeout time.Duration
	logger      *slog.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler. Tokens are checked
// against validator with authTimeout per call.
func NewAnalysisHandler(svc *service.AnalysisService, validator upstream.Validator, authURL string, authTimeout time.Duration, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		svc:         svc,
		validator:   validator,
		authURL:     authURL,
		authTimeout: authTimeout,
		logger:      logger,
	}
}

// Analyze scores an uploaded audio clip and video frame.
// POST /analyze (multipart: audio, video)
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if !h.verifyToken(w, r) {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Requête trop volumineuse")
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, "Formulaire multipart invalide")
		return
	}
	defer r.MultipartForm.RemoveAll()

	audio, err := readPart(r, "audio")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	video, err := readPart(r, "video")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	report, err := h.svc.Analyze(r.Context(), audio, video)
	if err != nil {
		h.writeAnalysisError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *AnalysisHandler) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	var me *service.MediaError
	switch {
	case errors.As(err, &me):
		writeDetail(w, me.Status, me.Detail)
	case errors.Is(err, service.ErrUndecodableVideo):
		h.logger.Error("video analysis failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeDetail(w, http.StatusInternalServerError, "Erreur lors de l'analyse vidéo")
	default:
		h.logger.Error("analysis failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeDetail(w, http.StatusInternalServerError, "Erreur interne du serveur")
	}
}

// verifyToken checks the caller's bearer token with the auth service.
func (h *AnalysisHandler) verifyToken(w http.ResponseWriter, r *http.Request) bool {
	authorization := r.Header.Get("Authorization")
	tok := service.BearerToken(authorization)
	if tok == "" {
		writeDetail(w, http.StatusForbidden, "Not authenticated")
		return false
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.authTimeout)
	defer cancel()

	status, err := h.validator.Validate(ctx, "Bearer "+tok)
	if err != nil {
		h.logger.Error("auth service unreachable",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeDetail(w, http.StatusServiceUnavailable, "Service d'authentification indisponible")
		return false
	}
	if status != http.StatusOK {
		h.logger.Warn("token validation failed",
			"status", status,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeDetail(w, http.StatusUnauthorized, "Token invalide")
		return false
	}
	return true
}

// AIHealthResponse is the AI service health document.
type AIHealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// Health reports the AI service and its auth dependency.
// GET /health
func (h *AnalysisHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AIHealthResponse{
		Status:  "OK",
		Service: "AI Service",
		Version: "1.0",
		Dependencies: map[string]string{
			"auth_service": h.authURL,
		},
	})
}

func readPart(r *http.Request, field string) (service.Media, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return service.Media{}, fmt.Errorf("Champ manquant: %s", field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return service.Media{}, fmt.Errorf("Lecture impossible: %s", field)
	}

	return service.Media{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Data:        data,
	}, nil
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, DetailResponse{Detail: detail})
}
