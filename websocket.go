package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ktlib-org/web/pkg/config"
)

// WebSocketHandler handles an upgraded connection. The connection is closed
// when the handler returns.
type WebSocketHandler func(c *gin.Context, conn *websocket.Conn)

// WebSocket upgrades the request and hands the connection to handler.
// Origin checking follows the server's CORS origin list.
func (s *Server) WebSocket(handler WebSocketHandler) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(s.cfg.CORS),
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the error response
			s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}
		defer func() { _ = conn.Close() }()

		handler(c, conn)
	}
}

func originChecker(cfg config.CORSConfig) func(*http.Request) bool {
	if cfg.AllowAll() {
		return func(*http.Request) bool { return true }
	}

	allowed := make(map[string]bool)
	for _, o := range cfg.OriginList() {
		allowed[strings.ToLower(o)] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin header
			return true
		}
		return allowed[strings.ToLower(origin)]
	}
}
