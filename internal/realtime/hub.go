// Package realtime streams booking events of a room to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"studiobooking/internal/events"
	"studiobooking/internal/middleware"
	"studiobooking/internal/pkg/logger"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

type subscriber struct {
	roomID int64
	userID int64
	role   string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

// seesDetails reports whether s may receive the client and money fields of
// e: admins, the booking's client and the owner of its studio.
func (s *subscriber) seesDetails(e events.BookingEvent, studioOwner int64) bool {
	switch {
	case s.role == middleware.RoleAdmin:
		return true
	case s.userID == e.ClientID:
		return true
	case s.role == middleware.RoleStudioOwner:
		return studioOwner != 0 && studioOwner == s.userID
	}
	return false
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}

// StudioOwners resolves the user running a studio, 0 when nobody does.
type StudioOwners interface {
	StudioOwner(ctx context.Context, studioID int64) (int64, error)
}

// Hub keeps the websocket subscribers of every room. It implements
// events.Publisher so the booking service can feed it directly.
type Hub struct {
	owners StudioOwners

	mutex sync.RWMutex
	rooms map[int64]map[*subscriber]struct{}
}

// NewHub builds a hub. With nil owners studio owners only get the public
// view of events that are not their own.
func NewHub(owners StudioOwners) *Hub {
	return &Hub{
		owners: owners,
		rooms:  make(map[int64]map[*subscriber]struct{}),
	}
}

func (h *Hub) register(s *subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subs, ok := h.rooms[s.roomID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.rooms[s.roomID] = subs
	}
	subs[s] = struct{}{}
}

func (h *Hub) unregister(s *subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if subs, ok := h.rooms[s.roomID]; ok {
		if _, exists := subs[s]; exists {
			delete(subs, s)
			s.close()
		}
		if len(subs) == 0 {
			delete(h.rooms, s.roomID)
		}
	}
}

// Subscribers returns how many connections are watching roomID.
func (h *Hub) Subscribers(roomID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.rooms[roomID])
}

// Publish sends e to every subscriber of its room, in full or as
// events.PublicBookingEvent depending on who is watching. Subscribers that
// cannot keep up are disconnected instead of blocking the caller.
func (h *Hub) Publish(ctx context.Context, e events.BookingEvent) error {
	if h.Subscribers(e.RoomID) == 0 {
		return nil
	}

	full, err := json.Marshal(e)
	if err != nil {
		return err
	}
	public, err := json.Marshal(e.Public())
	if err != nil {
		return err
	}
	owner := h.studioOwner(ctx, e.StudioID)

	var slow []*subscriber
	h.mutex.RLock()
	for s := range h.rooms[e.RoomID] {
		payload := public
		if s.seesDetails(e, owner) {
			payload = full
		}
		select {
		case s.send <- payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mutex.RUnlock()

	for _, s := range slow {
		logger.LogWarn(ctx, "Dropping slow websocket subscriber", "room_id", s.roomID, "user_id", s.userID)
		h.unregister(s)
	}
	return nil
}

func (h *Hub) studioOwner(ctx context.Context, studioID int64) int64 {
	if h.owners == nil || studioID == 0 {
		return 0
	}
	owner, err := h.owners.StudioOwner(ctx, studioID)
	if err != nil {
		logger.LogWarn(ctx, "Studio owner lookup failed, sending public events", "studio_id", studioID, "error", err.Error())
		return 0
	}
	return owner
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for roomID, subs := range h.rooms {
		for s := range subs {
			s.close()
		}
		delete(h.rooms, roomID)
	}
}

// writePump is the only writer of the connection.
func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and returns once the connection closes.
func (h *Hub) readPump(ctx context.Context, s *subscriber) {
	defer h.unregister(s)

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.LogDebug(ctx, "WebSocket closed", "room_id", s.roomID, "user_id", s.userID, "error", err.Error())
			}
			return
		}
	}
}
