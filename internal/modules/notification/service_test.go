package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gigmarket/internal/database"
	"gigmarket/internal/domain"
	"gigmarket/internal/realtime"
	"gigmarket/internal/repository"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic realtime.Topic, id int64) error {
	return m.Called(ctx, topic, id).Error(0)
}

func setupRepo(t *testing.T) *repository.NotificationRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:notif_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	db = db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewNotificationRepository(db)
}

func TestNotify_StoresUnreadAndPublishes(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, realtime.NotificationTopic(5), mock.AnythingOfType("int64")).Return(nil).Once()
	svc := NewService(setupRepo(t), pub)

	n, err := svc.Notify(context.Background(), 5, "  hello ")
	require.NoError(t, err)
	assert.NotZero(t, n.ID)
	assert.Equal(t, "hello", n.Message)
	assert.False(t, n.IsRead)
	pub.AssertExpectations(t)

	count, err := svc.UnreadCount(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNotify_RejectsEmptyText(t *testing.T) {
	svc := NewService(setupRepo(t), nil)
	_, err := svc.Notify(context.Background(), 5, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Notify(context.Background(), 0, "hi")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNotify_PublishFailureKeepsRow(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	svc := NewService(setupRepo(t), pub)

	n, err := svc.Notify(context.Background(), 5, "hello")
	require.NoError(t, err)

	list, err := svc.List(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
}

func TestHandleEvent_OneNotificationPerEvent(t *testing.T) {
	svc := NewService(setupRepo(t), realtime.NewMemoryFeed(4))
	ctx := context.Background()

	events := []domain.Event{
		{Type: domain.EventOfferSubmitted, RecipientID: 1, ActorID: 2, GigID: 9, GigTitle: "Fix sink", OfferID: 3, Price: 80},
		{Type: domain.EventOfferAccepted, RecipientID: 2, ActorID: 1, GigID: 9, GigTitle: "Fix sink", OfferID: 3},
		{Type: domain.EventGigCompleted, RecipientID: 2, ActorID: 1, GigID: 9, GigTitle: "Fix sink"},
		{Type: domain.EventReviewReceived, RecipientID: 2, ActorID: 1, GigID: 9, GigTitle: "Fix sink", ReviewID: 4, Rating: 5},
	}
	for _, e := range events {
		require.NoError(t, svc.HandleEvent(ctx, e))
	}

	owner, err := svc.List(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, owner, 1)
	assert.Equal(t, domain.EventOfferSubmitted, owner[0].Type)
	assert.Contains(t, owner[0].Message, "80.00")

	var link eventLink
	require.NoError(t, json.Unmarshal(owner[0].Data, &link))
	assert.Equal(t, eventLink{GigID: 9, OfferID: 3, ActorID: 2}, link)

	provider, err := svc.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, provider, 3)
	// Newest first.
	assert.Equal(t, domain.EventReviewReceived, provider[0].Type)
	assert.Contains(t, provider[0].Message, "5-star")
	assert.Equal(t, domain.EventOfferAccepted, provider[2].Type)
}

func TestHandleEvent_UnknownType(t *testing.T) {
	svc := NewService(setupRepo(t), nil)
	err := svc.HandleEvent(context.Background(), domain.Event{Type: "gig_deleted", RecipientID: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMarkRead_IdempotentAndScoped(t *testing.T) {
	svc := NewService(setupRepo(t), nil)
	ctx := context.Background()

	n, err := svc.Notify(ctx, 5, "hello")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, 5, n.ID))
	require.NoError(t, svc.MarkRead(ctx, 5, n.ID))

	assert.ErrorIs(t, svc.MarkRead(ctx, 6, n.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, 5, n.ID+100), domain.ErrNotFound)

	count, err := svc.UnreadCount(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllRead(t *testing.T) {
	svc := NewService(setupRepo(t), nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Notify(ctx, 5, "hello")
		require.NoError(t, err)
	}
	_, err := svc.Notify(ctx, 6, "other user")
	require.NoError(t, err)

	updated, err := svc.MarkAllRead(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	other, err := svc.UnreadCount(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestNotificationBus_EndToEnd(t *testing.T) {
	repo := setupRepo(t)
	feed := realtime.NewMemoryFeed(16)
	bus := realtime.NewBus(feed, realtime.NewStoreSource(repo, nil), realtime.BusConfig{})
	svc := NewService(repo, feed)
	ctx := context.Background()

	sub, err := bus.Subscribe(ctx, realtime.NotificationTopic(5), realtime.FromNow)
	require.NoError(t, err)
	defer sub.Close()

	_, err = svc.Notify(ctx, 6, "not for you")
	require.NoError(t, err)
	n, err := svc.Notify(ctx, 5, "for you")
	require.NoError(t, err)

	select {
	case item := <-sub.Events():
		assert.Equal(t, n.ID, item.ID)
		got, ok := item.Payload.(domain.Notification)
		require.True(t, ok)
		assert.Equal(t, "for you", got.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestHandler_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(setupRepo(t), nil)
	n, err := svc.Notify(context.Background(), 5, "hello")
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if v := c.GetHeader("X-Test-User"); v != "" {
			var id int64
			_, _ = fmt.Sscan(v, &id)
			c.Set("user_id", id)
		}
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(api)

	do := func(method, path string, user string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodGet, "/api/v1/notifications", "5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread_count":1`)

	w = do(http.MethodGet, "/api/v1/notifications", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", n.ID), "6")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", n.ID), "5")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(http.MethodGet, "/api/v1/notifications/unread-count", "5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread_count":0`)

	w = do(http.MethodPost, "/api/v1/notifications/read-all", "5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":0`)
}
