package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatarchive/internal/core"
)

type fakeFeature struct {
	*core.BaseFeature
	routes []core.Route
}

func (f *fakeFeature) Routes() []core.Route { return f.routes }

func text(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	})
}

func newTestServer(t *testing.T, routes ...core.Route) *Server {
	t.Helper()
	logger := core.NewNopLogger()
	registry := core.NewRegistry(logger)
	require.NoError(t, registry.Register(&fakeFeature{
		BaseFeature: core.NewBaseFeature("fake", "test feature", logger, nil),
		routes:      routes,
	}))
	return New(core.DefaultConfig(), logger, registry)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, "127.0.0.1:4000", s.Addr())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, core.ServiceName, body["service"])
}

func TestFeatureRoutes(t *testing.T) {
	s := newTestServer(t,
		core.Route{Method: http.MethodGet, Path: "/api/build", Handler: text("status")},
		core.Route{Method: http.MethodGet, Path: "/", Prefix: true, Handler: text("site")},
	)

	cases := []struct {
		method, path string
		code         int
		body         string
	}{
		{http.MethodGet, "/api/build", http.StatusOK, "status"},
		{http.MethodGet, "/", http.StatusOK, "site"},
		{http.MethodGet, "/2023-01.html", http.StatusOK, "site"},
		{http.MethodPost, "/api/build", http.StatusMethodNotAllowed, ""},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}
