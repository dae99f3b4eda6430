package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/trashunter/hub"
	"github.com/yeremiapane/trashunter/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MarkerEventsHandler streams marker_created and marker_cleaned events.
func MarkerEventsHandler(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			utils.InfoLogger.Debugf("websocket upgrade failed: %v", err)
			return
		}

		h.Register(ws)

		// Clients only listen; reading detects disconnects.
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		h.Unregister(ws)
	}
}
