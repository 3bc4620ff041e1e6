package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ktlib-org/web/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a config suitable for handler tests: local environment,
// docs disabled so tests control their own routes.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.OpenAPI.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	base := []Option{WithConfig(testConfig()), WithLogger(zap.NewNop())}
	return New(append(base, opts...)...)
}

func doRequest(t *testing.T, s *Server, method, path string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for _, m := range mutate {
		m(req)
	}
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestRegisteredRouteReturnsHandlerResponse(t *testing.T) {
	s := newTestServer(t, WithRouters(RouterFunc(func(e *gin.Engine) {
		e.GET("/things/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
		})
	})))

	w := doRequest(t, s, http.MethodGet, "/things/42")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "42", body["id"])
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestTestServerEndToEnd(t *testing.T) {
	s := newTestServer(t, WithRouters(RouterFunc(func(e *gin.Engine) {
		e.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	})))

	ts := s.Test()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	// The end-to-end path also issues the session cookie
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			found = true
		}
	}
	assert.True(t, found)
}

func TestInstanceIsSingleton(t *testing.T) {
	a := Instance(WithConfig(testConfig()), WithLogger(zap.NewNop()))
	b := Instance()
	assert.Same(t, a, b)
}

func TestCORS_Wildcard(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, http.MethodOptions, "/health", func(r *http.Request) {
		r.Header.Set("Origin", "https://anything.example.com")
		r.Header.Set("Access-Control-Request-Method", "GET")
	})

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ExplicitOrigins(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.Origins = "https://app.example.com,https://admin.example.com"
	s := newTestServer(t, WithConfig(cfg))

	w := doRequest(t, s, http.MethodOptions, "/health", func(r *http.Request) {
		r.Header.Set("Origin", "https://app.example.com")
		r.Header.Set("Access-Control-Request-Method", "GET")
	})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = doRequest(t, s, http.MethodOptions, "/health", func(r *http.Request) {
		r.Header.Set("Origin", "https://evil.example.com")
		r.Header.Set("Access-Control-Request-Method", "GET")
	})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenAPI_ExposedOutsideProduction(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAPI.Enabled = true
	s := newTestServer(t, WithConfig(cfg), WithOpenAPIDoc(`{"openapi":"3.0.0"}`))

	w := doRequest(t, s, http.MethodGet, "/openapi")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"openapi":"3.0.0"}`, w.Body.String())

	w = doRequest(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestOpenAPI_HiddenInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAPI.Enabled = true
	cfg.Environment = config.EnvProduction
	s := newTestServer(t, WithConfig(cfg), WithOpenAPIDoc(`{}`))

	w := doRequest(t, s, http.MethodGet, "/openapi")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenAPI_ProductionOverride(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAPI.Enabled = true
	cfg.OpenAPI.AllowInProd = true
	cfg.Environment = config.EnvProduction
	s := newTestServer(t, WithConfig(cfg), WithOpenAPIDoc(`{}`))

	w := doRequest(t, s, http.MethodGet, "/openapi")
	assert.Equal(t, http.StatusOK, w.Code)
}
