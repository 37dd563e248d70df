// Package proxy forwards browser calls the storefront does not interpret (registration)
// straight to the recommendation backend.
package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/logger"
	"github.com/baechuer/recsys-storefront/middleware"
)

// New returns a reverse proxy to backendURL that maps stripPrefix+rest onto
// upstreamPrefix+rest, e.g. "/api/auth/register" onto "/register" with upstreamPrefix "".
func New(backendURL, stripPrefix, upstreamPrefix string) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(backendURL)
	if err != nil {
		return nil, err
	}

	rp := &httputil.ReverseProxy{
		Transport: &middleware.TracingTransport{Base: http.DefaultTransport},
	}

	rp.Rewrite = func(pr *httputil.ProxyRequest) {
		pr.SetURL(target)
		pr.Out.Host = target.Host

		path := pr.In.URL.Path
		if strings.HasPrefix(path, stripPrefix) {
			path = upstreamPrefix + strings.TrimPrefix(path, stripPrefix)
		}
		if path == "" {
			path = "/"
		}
		pr.Out.URL.Path = singleJoin(target.Path, path)
		pr.Out.URL.RawPath = ""

		// the backend never sees the browser's credential on pass-through routes
		pr.Out.Header.Del("Authorization")
		pr.Out.Header.Del("Cookie")

		if reqID := middleware.GetRequestID(pr.In.Context()); reqID != "" {
			pr.Out.Header.Set(middleware.HeaderXRequestID, reqID)
		}
	}

	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Ctx(r.Context()).Error().
			Err(err).
			Str("target", backendURL).
			Str("path", r.URL.Path).
			Msg("upstream_proxy_error")

		resp := domain.APIError{}
		resp.Error.Code = "upstream_unavailable"
		resp.Error.Message = "backend unreachable"
		resp.Error.RequestID = middleware.GetRequestID(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(resp)
	}

	return rp, nil
}

func singleJoin(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
