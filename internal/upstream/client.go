// Package upstream contains the HTTP clients the gateway and the AI service
// use to reach the auth stub and the AI service.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// MaxResponseSize caps how much of an upstream body is read.
	MaxResponseSize = 10 << 20
)

// ErrResponseTooLarge is returned when an upstream body exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("upstream response too large")

// NewHTTPClient creates an HTTP client for service-to-service calls.
// timeout is the total request timeout; zero leaves it unbounded.
// Redirects are not followed.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Response is an upstream reply held in memory.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the upstream answered with a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusError is returned when an upstream answers with a non-2xx status.
type StatusError struct {
	Service    string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status code %d", e.Service, e.StatusCode)
}

// Validator checks a bearer credential with the auth service.
// It returns the status the auth service answered with; an error means the
// call itself failed.
type Validator interface {
	Validate(ctx context.Context, authorization string) (int, error)
}

// Authenticator obtains tokens from the auth service.
type Authenticator interface {
	Login(ctx context.Context, body []byte, contentType string) (*Response, error)
}

// Analyzer submits analysis payloads to the AI service.
type Analyzer interface {
	Analyze(ctx context.Context, authorization string, body []byte, contentType string) (*Response, error)
}

// AuthClient talks to the auth stub.
type AuthClient struct {
	baseURL string
	client  *http.Client
}

// NewAuthClient returns a client for the auth stub at baseURL.
func NewAuthClient(baseURL string, client *http.Client) *AuthClient {
	return &AuthClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Login forwards body to POST /login. Non-2xx answers come back as *StatusError.
func (c *AuthClient) Login(ctx context.Context, body []byte, contentType string) (*Response, error) {
	resp, err := do(ctx, c.client, http.MethodPost, c.baseURL+"/login", body, contentType, "")
	if err != nil {
		return nil, fmt.Errorf("auth service login: %w", err)
	}
	if !resp.OK() {
		return nil, &StatusError{Service: "auth service", StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

// Validate calls GET /validate with the caller's Authorization header.
func (c *AuthClient) Validate(ctx context.Context, authorization string) (int, error) {
	resp, err := do(ctx, c.client, http.MethodGet, c.baseURL+"/validate", nil, "", authorization)
	if err != nil {
		return 0, fmt.Errorf("auth service validate: %w", err)
	}
	return resp.StatusCode, nil
}

// AIClient talks to the AI analysis service.
type AIClient struct {
	baseURL string
	client  *http.Client
}

// NewAIClient returns a client for the AI service at baseURL.
func NewAIClient(baseURL string, client *http.Client) *AIClient {
	return &AIClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Analyze forwards body to POST /analyze. Non-2xx answers come back as *StatusError.
func (c *AIClient) Analyze(ctx context.Context, authorization string, body []byte, contentType string) (*Response, error) {
	resp, err := do(ctx, c.client, http.MethodPost, c.baseURL+"/analyze", body, contentType, authorization)
	if err != nil {
		return nil, fmt.Errorf("ai service analyze: %w", err)
	}
	if !resp.OK() {
		return nil, &StatusError{Service: "ai service", StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}

func do(ctx context.Context, client *http.Client, method, url string, body []byte, contentType, authorization string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}
