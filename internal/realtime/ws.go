package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gigmarket/internal/domain"
	"gigmarket/internal/pkg/jwt"
	"gigmarket/internal/pkg/response"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

type BookingLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
}

// WSEvent is one delivered row as pushed to the client.
type WSEvent struct {
	Type    string `json:"type"`
	Topic   Topic  `json:"topic"`
	ID      int64  `json:"id"`
	Payload any    `json:"payload"`
}

// WSHandler streams bus subscriptions over WebSocket. Clients authenticate
// with ?token= because browsers cannot set headers on the upgrade request,
// and may resume with ?after=<id>.
type WSHandler struct {
	bus      *Bus
	tokens   TokenValidator
	bookings BookingLookup
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewWSHandler(bus *Bus, tokens TokenValidator, bookings BookingLookup, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		bus:      bus,
		tokens:   tokens,
		bookings: bookings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

func (h *WSHandler) RegisterRoutes(ws *gin.RouterGroup) {
	ws.GET("/notifications", h.Notifications)
	ws.GET("/bookings/:id/messages", h.BookingMessages)
}

// Notifications streams the caller's notifications.
//
// Endpoint: GET /ws/notifications?token=JWT[&after=ID]
func (h *WSHandler) Notifications(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}
	h.stream(c, NotificationTopic(userID), userID)
}

// BookingMessages streams a booking's messages to one of its participants.
//
// Endpoint: GET /ws/bookings/:id/messages?token=JWT[&after=ID]
func (h *WSHandler) BookingMessages(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}
	bookingID, ok := response.ParamID(c, "id")
	if !ok {
		return
	}

	b, err := h.bookings.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !b.HasParticipant(userID) {
		response.FromError(c, domain.ErrNotParticipant)
		return
	}
	h.stream(c, MessageTopic(bookingID), userID)
}

func (h *WSHandler) authenticate(c *gin.Context) (int64, bool) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "AUTH_TOKEN_MISSING", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return 0, false
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return 0, false
	}
	return claims.UserID, true
}

func (h *WSHandler) stream(c *gin.Context, topic Topic, userID int64) {
	after := FromNow
	if s := c.Query("after"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v < 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_CURSOR", "after must be a non-negative id")
			return
		}
		after = v
	}

	// The subscription outlives the request context once the connection is
	// hijacked, so it gets its own.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.bus.Subscribe(ctx, topic, after)
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("realtime: ws_upgrade_failed topic=%s user_id=%d err=%v", topic, userID, err)
		return
	}

	h.register(conn)
	defer h.unregister(conn)
	log.Printf("realtime: ws_connected topic=%s user_id=%d", topic, userID)

	go h.writePump(conn, sub)
	h.readPump(conn) // blocks until disconnect
	log.Printf("realtime: ws_disconnected topic=%s user_id=%d", topic, userID)
}

// readPump only services control frames; clients do not send data on these
// streams.
func (h *WSHandler) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: ws_read_failed err=%v", err)
			}
			return
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	kind := string(sub.Topic().Kind())
	for {
		select {
		case item, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				if err := sub.Err(); err != nil {
					msg = websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscription lost")
				}
				_ = conn.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			data, err := json.Marshal(WSEvent{Type: kind, Topic: item.Topic, ID: item.ID, Payload: item.Payload})
			if err != nil {
				log.Printf("realtime: ws_encode_failed topic=%s id=%d err=%v", item.Topic, item.ID, err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *WSHandler) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		_ = conn.Close()
	}
}

// OnlineCount returns the number of open WebSocket connections.
func (h *WSHandler) OnlineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close drops every open connection. Used on shutdown, since hijacked
// connections are not tracked by http.Server.
func (h *WSHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, conn)
	}
}
