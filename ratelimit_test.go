package web

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedServer(t *testing.T, rps float64, burst int) *Server {
	t.Helper()
	return newTestServer(t, WithRouters(RouterFunc(func(e *gin.Engine) {
		e.GET("/limited", RateLimit(rps, burst), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
	})))
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	s := limitedServer(t, 1, 3)

	for i := 0; i < 3; i++ {
		w := doRequest(t, s, http.MethodGet, "/limited", withSession("client-a"))
		assert.Equal(t, http.StatusNoContent, w.Code, "request %d", i)
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	s := limitedServer(t, 0.001, 2)

	doRequest(t, s, http.MethodGet, "/limited", withSession("client-a"))
	doRequest(t, s, http.MethodGet, "/limited", withSession("client-a"))

	w := doRequest(t, s, http.MethodGet, "/limited", withSession("client-a"))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"too many requests"}`, w.Body.String())
}

func TestRateLimit_ClientsAreIndependent(t *testing.T) {
	s := limitedServer(t, 0.001, 1)

	first := doRequest(t, s, http.MethodGet, "/limited", withSession("client-a"))
	require.Equal(t, http.StatusNoContent, first.Code)

	blocked := doRequest(t, s, http.MethodGet, "/limited", withSession("client-a"))
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)

	other := doRequest(t, s, http.MethodGet, "/limited", withSession("client-b"))
	assert.Equal(t, http.StatusNoContent, other.Code)
}

func withSession(id string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	}
}
