// Grounded on cmd/game-server/main.go's router setup and handleWebSocket:
// a gin router exposing a REST snapshot endpoint plus a gorilla/websocket
// upgrade that pushes the same snapshots on an interval. This is a
// programmatic progress feed for an external dashboard, not an
// interactive terminal UI.
package supervisor

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Router builds the gin.Engine exposing the progress surface of spec §6:
// a JSON snapshot list at GET /progress, a push feed over GET /progress/ws,
// and the Prometheus scrape surface for internal/stats' counters/gauges at
// GET /metrics.
func (s *Supervisor) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/progress", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.registry.Snapshots())
	})

	r.GET("/progress/ws", s.handleProgressWebSocket)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Supervisor) handleProgressWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("supervisor: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(s.registry.Snapshots()); err != nil {
			return
		}
	}
}
