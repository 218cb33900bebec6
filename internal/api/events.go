package api

import (
	"net/http"

	"github.com/punkmap/questledger/internal/events"
	"github.com/punkmap/questledger/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

type eventRoutes struct {
	bus *events.Bus
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewEventRoutes exposes the ledger event feed over a websocket. The feed
// is observational: a dropped connection loses events, nothing more.
func NewEventRoutes(handler *gin.RouterGroup, bus *events.Bus) {
	r := &eventRoutes{bus: bus}
	h := handler.Group("/events")
	{
		h.GET("/ws", r.handleWebSocket)
	}
}

func (r *eventRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	subID, ch := r.bus.Subscribe()
	log.Info("event subscriber connected", zap.String("subscriber", subID))

	done := make(chan struct{})

	// Reader only watches for the peer closing.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			r.bus.Unsubscribe(subID)
			conn.Close()
			log.Info("event subscriber disconnected", zap.String("subscriber", subID))
		}()

		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					log.Error("failed to marshal event", zap.Error(err))
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
}
