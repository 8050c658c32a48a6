package realtime

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"studiobooking/internal/pkg/jwt"
	"studiobooking/internal/pkg/logger"
	"studiobooking/internal/pkg/response"
)

type Handler struct {
	hub      *Hub
	jwt      *jwt.Service
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket endpoint. allowOrigin decides which
// browser origins may connect; nil accepts all. Requests without an Origin
// header do not come from a browser and are always accepted.
func NewHandler(hub *Hub, jwtService *jwt.Service, allowOrigin func(origin string) bool) *Handler {
	return &Handler{
		hub: hub,
		jwt: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin == nil || allowOrigin(origin)
			},
		},
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/rooms/:id/bookings", h.HandleRoomBookings)
}

// HandleRoomBookings streams booking events of one room.
// Browsers cannot set headers on the upgrade, so the JWT comes as ?token=.
func (h *Handler) HandleRoomBookings(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || roomID <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid room id")
		return
	}

	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required. Use ?token=JWT")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.LogWarn(c.Request.Context(), "WebSocket upgrade failed", "error", err.Error())
		return
	}

	s := &subscriber{
		roomID: roomID,
		userID: claims.UserID,
		role:   claims.Role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.hub.register(s)
	logger.LogInfo(c.Request.Context(), "WebSocket subscribed", "room_id", roomID, "user_id", claims.UserID)

	go h.hub.writePump(s)
	h.hub.readPump(c.Request.Context(), s)
}
