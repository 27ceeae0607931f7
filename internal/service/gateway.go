// Package service provides business logic for the gateway and the AI service.
package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/silentcry/silentcry/internal/metrics"
	"github.com/silentcry/silentcry/internal/upstream"
)

// Outcome tags the result of a gateway operation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeUnauthorized
	OutcomeForbidden
	OutcomeUpstreamError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// UpstreamError is a failed call to the auth or AI service.
type UpstreamError struct {
	// StatusCode is the upstream HTTP status, zero when no response arrived.
	StatusCode int
	Details    string
	Err        error
}

func (e *UpstreamError) Error() string {
	return e.Details
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status the gateway answers with: the upstream error
// status when there is one, 500 otherwise.
func (e *UpstreamError) HTTPStatus() int {
	if e.StatusCode >= 400 && e.StatusCode <= 599 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

func newUpstreamError(err error) *UpstreamError {
	ue := &UpstreamError{Details: err.Error(), Err: err}
	var se *upstream.StatusError
	if errors.As(err, &se) {
		ue.StatusCode = se.StatusCode
	}
	return ue
}

// Result is the tagged outcome of Login, Authorize and Analyze.
// Response is set for OutcomeSuccess, Err for OutcomeUpstreamError.
type Result struct {
	Outcome  Outcome
	Response *upstream.Response
	Err      *UpstreamError
}

// AnalyzeInput is the client request forwarded to the AI service.
type AnalyzeInput struct {
	Authorization string
	ContentType   string
	Body          []byte
}

// GatewayService authorizes callers and forwards their requests upstream.
// It holds no per-request state.
type GatewayService struct {
	authenticator upstream.Authenticator
	validator     upstream.Validator
	analyzer      upstream.Analyzer
	metrics       metrics.Recorder
}

// NewGatewayService creates a new GatewayService.
func NewGatewayService(authn upstream.Authenticator, validator upstream.Validator, analyzer upstream.Analyzer, recorder metrics.Recorder) *GatewayService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &GatewayService{
		authenticator: authn,
		validator:     validator,
		analyzer:      analyzer,
		metrics:       recorder,
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Any other scheme counts as no token.
func BearerToken(authorization string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// Login forwards body to the auth service.
// Outbound calls are not cancelled when the client goes away.
func (s *GatewayService) Login(ctx context.Context, body []byte, contentType string) Result {
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	resp, err := s.authenticator.Login(ctx, body, contentType)
	s.metrics.ObserveUpstreamCall(metrics.UpstreamAuth, err != nil, time.Since(start))
	s.metrics.IncLogin(err == nil)

	if err != nil {
		return Result{Outcome: OutcomeUpstreamError, Err: newUpstreamError(err)}
	}
	return Result{Outcome: OutcomeSuccess, Response: resp}
}

// Authorize runs the credential checks shared by every protected route:
// no bearer token is Unauthorized, any validate status other than 200 is
// Forbidden, and a failed validate call is an UpstreamError.
func (s *GatewayService) Authorize(ctx context.Context, authorization string) Result {
	if BearerToken(authorization) == "" {
		return Result{Outcome: OutcomeUnauthorized}
	}

	start := time.Now()
	status, err := s.validator.Validate(ctx, authorization)
	s.metrics.ObserveUpstreamCall(metrics.UpstreamAuth, err != nil, time.Since(start))

	if err != nil {
		return Result{Outcome: OutcomeUpstreamError, Err: newUpstreamError(err)}
	}
	if status != http.StatusOK {
		return Result{Outcome: OutcomeForbidden}
	}
	return Result{Outcome: OutcomeSuccess}
}

// Analyze validates the caller with the auth service and, only once that
// succeeded, forwards the payload to the AI service. The two calls are
// strictly sequential.
func (s *GatewayService) Analyze(ctx context.Context, in AnalyzeInput) Result {
	ctx = context.WithoutCancel(ctx)

	res := s.Authorize(ctx, in.Authorization)
	if res.Outcome != OutcomeSuccess {
		s.metrics.IncAnalyze(res.Outcome.String())
		return res
	}

	start := time.Now()
	resp, err := s.analyzer.Analyze(ctx, in.Authorization, in.Body, in.ContentType)
	s.metrics.ObserveUpstreamCall(metrics.UpstreamAI, err != nil, time.Since(start))

	if err != nil {
		res = Result{Outcome: OutcomeUpstreamError, Err: newUpstreamError(err)}
	} else {
		res = Result{Outcome: OutcomeSuccess, Response: resp}
	}
	s.metrics.IncAnalyze(res.Outcome.String())
	return res
}
