package proxy_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baechuer/recsys-storefront/internal/proxy"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProxy_PathRewriting(t *testing.T) {
	var receivedPath string

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	testCases := []struct {
		name         string
		backendURL   string
		upstream     string
		requestPath  string
		expectedPath string
	}{
		{
			name:         "register at backend root",
			backendURL:   backend.URL,
			requestPath:  "/api/auth/register",
			expectedPath: "/register",
		},
		{
			name:         "backend behind a path prefix",
			backendURL:   backend.URL + "/v1/",
			requestPath:  "/api/auth/register",
			expectedPath: "/v1/register",
		},
		{
			name:         "explicit upstream prefix",
			backendURL:   backend.URL,
			upstream:     "/users",
			requestPath:  "/api/auth/register",
			expectedPath: "/users/register",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := proxy.New(tc.backendURL, "/api/auth", tc.upstream)
			require.NoError(t, err)

			// mounted the way the router mounts it
			r := chi.NewRouter()
			r.Route("/api", func(r chi.Router) {
				r.Post("/auth/register", p.ServeHTTP)
			})

			receivedPath = ""
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, tc.requestPath, nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.expectedPath, receivedPath)
		})
	}
}
