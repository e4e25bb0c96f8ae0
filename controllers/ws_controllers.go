package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/farm-to-table/events"
	"github.com/yeremiapane/farm-to-table/middlewares"
	"github.com/yeremiapane/farm-to-table/utils"
)

// Hub mengirim ping tiap 50 detik; tanpa pong dalam 60 detik connection ditutup
const wsPongWait = 60 * time.Second

// OrderStreamController mengalirkan event order dan stok ke client websocket.
type OrderStreamController struct {
	Hub      *events.Hub
	upgrader websocket.Upgrader
}

func NewOrderStreamController(hub *events.Hub, allowedOrigins []string) *OrderStreamController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &OrderStreamController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
	}
}

// Stream -> endpoint WebSocket, dijaga WebSocketAuthMiddleware
func (sc *OrderStreamController) Stream(c *gin.Context) {
	userID, role, ok := middlewares.CurrentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := sc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed: %v", err)
		return
	}

	sc.Hub.Register(ws, userID, role)
	utils.InfoLogger.Printf("Websocket client connected: user=%d role=%s", userID, role)

	ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	// Client tidak mengirim apa pun; baca hanya untuk mendeteksi disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	sc.Hub.Unregister(ws)
	utils.InfoLogger.Printf("Websocket client disconnected: user=%d", userID)
}
