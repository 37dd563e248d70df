package proxy_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/baechuer/recsys-storefront/internal/proxy"
	"github.com/baechuer/recsys-storefront/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxy_Register(t *testing.T) {
	hostCh := make(chan string, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/register", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"alice","password":"pw"}`, string(body))
		hostCh <- r.Host
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3,"username":"alice"}`))
	}))
	defer upstream.Close()

	p, err := proxy.New(upstream.URL, "/api/auth", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "http://storefront/api/auth/register", strings.NewReader(`{"username":"alice","password":"pw"}`))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":3,"username":"alice"}`, w.Body.String())

	select {
	case gotHost := <-hostCh:
		u, _ := url.Parse(upstream.URL)
		assert.Equal(t, u.Host, gotHost)
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for upstream request")
	}
}

func TestProxy_HeadersPropagation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-req-id", r.Header.Get("X-Request-Id"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	p, err := proxy.New(upstream.URL, "/api/auth", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "http://storefront/api/auth/register", nil)
	req.Header.Set("Authorization", "Bearer a.b.c")
	ctx := middleware.SetRequestIDForTest(req.Context(), "test-req-id")

	w := httptest.NewRecorder()
	p.ServeHTTP(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProxy_UpstreamDown(t *testing.T) {
	p, err := proxy.New("http://localhost:54321", "/api/auth", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "http://storefront/api/auth/register", nil)
	ctx := middleware.SetRequestIDForTest(req.Context(), "req-123")
	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	w := httptest.NewRecorder()
	p.ServeHTTP(w, req.WithContext(ctx))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_unavailable")
	assert.Contains(t, w.Body.String(), "req-123")
}

func TestProxy_InvalidURL(t *testing.T) {
	_, err := proxy.New("://bad", "/api/auth", "")
	assert.Error(t, err)
}
