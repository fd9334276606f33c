package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigmarket/internal/domain"
	"gigmarket/internal/pkg/jwt"
)

type bookingTable map[int64]*domain.Booking

func (b bookingTable) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	if bk, ok := b[id]; ok {
		return bk, nil
	}
	return nil, domain.ErrNotFound
}

type wsFixture struct {
	server *httptest.Server
	tokens *jwt.Service
	src    *memorySource
	feed   *MemoryFeed
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &wsFixture{
		tokens: jwt.New("ws-secret", time.Hour),
		src:    newMemorySource(),
		feed:   NewMemoryFeed(16),
	}
	bookings := bookingTable{
		7: {ID: 7, ServiceID: 1, ConsumerID: 10, Service: &domain.Service{ID: 1, ProviderID: 20}},
	}
	handler := NewWSHandler(NewBus(f.feed, f.src, testBusConfig), f.tokens, bookings, nil)

	r := gin.New()
	handler.RegisterRoutes(r.Group("/ws"))
	f.server = httptest.NewServer(r)
	t.Cleanup(func() {
		handler.Close()
		f.server.Close()
	})
	return f
}

func (f *wsFixture) url(path string, userID int64, query string) string {
	token, _ := f.tokens.GenerateToken(userID, "", "")
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") + path + "?token=" + token
	if query != "" {
		u += "&" + query
	}
	return u
}

func readEvent(t *testing.T, conn *websocket.Conn) WSEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev WSEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestWS_NotificationsStream(t *testing.T) {
	f := newWSFixture(t)
	topic := NotificationTopic(10)
	old := f.src.insert(topic, "before connect")

	conn, _, err := websocket.DefaultDialer.Dial(f.url("/ws/notifications", 10, fmt.Sprintf("after=%d", old-1)), nil)
	require.NoError(t, err)
	defer conn.Close()

	ev := readEvent(t, conn)
	assert.Equal(t, old, ev.ID)
	assert.Equal(t, "notifications", ev.Type)

	assert.Eventually(t, func() bool { return f.feed.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond)
	fresh := insertAndPublish(t, f.src, f.feed, topic)
	ev = readEvent(t, conn)
	assert.Equal(t, fresh, ev.ID)
	assert.Equal(t, topic, ev.Topic)
}

func TestWS_DisconnectReleasesSubscription(t *testing.T) {
	f := newWSFixture(t)
	topic := NotificationTopic(10)

	conn, _, err := websocket.DefaultDialer.Dial(f.url("/ws/notifications", 10, ""), nil)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return f.feed.Subscribers(topic) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return f.feed.Subscribers(topic) == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestWS_BookingMessagesParticipantsOnly(t *testing.T) {
	f := newWSFixture(t)

	for _, userID := range []int64{10, 20} {
		conn, _, err := websocket.DefaultDialer.Dial(f.url("/ws/bookings/7/messages", userID, ""), nil)
		require.NoError(t, err, "user %d", userID)
		_ = conn.Close()
	}

	_, resp, err := websocket.DefaultDialer.Dial(f.url("/ws/bookings/7/messages", 30, ""), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(f.url("/ws/bookings/8/messages", 10, ""), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWS_RejectsMissingOrBadToken(t *testing.T) {
	f := newWSFixture(t)

	resp, err := http.Get(f.server.URL + "/ws/notifications")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(f.server.URL + "/ws/notifications?token=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWS_RejectsBadCursor(t *testing.T) {
	f := newWSFixture(t)
	_, resp, err := websocket.DefaultDialer.Dial(f.url("/ws/notifications", 10, "after=-5"), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
