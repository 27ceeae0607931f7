package upstream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthClient_Login(t *testing.T) {
	var gotBody, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/login", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"abc"}`))
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL+"/", NewHTTPClient(0))
	resp, err := c.Login(context.Background(), []byte(`{"any":"thing"}`), "application/json")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"token":"abc"}`, string(resp.Body))
	assert.Equal(t, `{"any":"thing"}`, gotBody)
	assert.Equal(t, "application/json", gotType)
}

func TestAuthClient_LoginStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, NewHTTPClient(0))
	_, err := c.Login(context.Background(), nil, "")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, "auth service responded with status code 503", se.Error())
}

func TestAuthClient_Validate(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"valid", http.StatusOK},
		{"missing", http.StatusUnauthorized},
		{"rejected", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/validate", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			status, err := NewAuthClient(srv.URL, NewHTTPClient(0)).Validate(context.Background(), "Bearer tok")
			require.NoError(t, err)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestAuthClient_ValidateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewAuthClient(url, NewHTTPClient(0)).Validate(context.Background(), "Bearer tok")
	require.Error(t, err)
}

func TestAIClient_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "multipart/form-data; boundary=x", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	c := NewAIClient(srv.URL, NewHTTPClient(0))
	resp, err := c.Analyze(context.Background(), "Bearer tok", []byte("--x--"), "multipart/form-data; boundary=x")
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.Equal(t, `{"result":"ok"}`, string(resp.Body))
}

func TestAIClient_AnalyzeStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"detail":"too big"}`))
	}))
	defer srv.Close()

	_, err := NewAIClient(srv.URL, NewHTTPClient(0)).Analyze(context.Background(), "Bearer tok", nil, "")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusRequestEntityTooLarge, se.StatusCode)
	assert.JSONEq(t, `{"detail":"too big"}`, string(se.Body))
}

func TestAIClient_AnalyzeResponseSizeLimit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"at limit", MaxResponseSize, false},
		{"over limit", MaxResponseSize + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(bytes.Repeat([]byte(" "), tt.size))
			}))
			defer srv.Close()

			resp, err := NewAIClient(srv.URL, NewHTTPClient(0)).Analyze(context.Background(), "Bearer tok", nil, "")
			if tt.wantErr {
				require.ErrorIs(t, err, ErrResponseTooLarge)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Len(t, resp.Body, tt.size)
		})
	}
}

func TestNewHTTPClient_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/validate" {
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	status, err := NewAuthClient(srv.URL, NewHTTPClient(0)).Validate(context.Background(), "Bearer tok")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, status)
}
