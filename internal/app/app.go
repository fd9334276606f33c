package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"gigmarket/internal/config"
	"gigmarket/internal/metrics"
	"gigmarket/internal/middleware"
	"gigmarket/internal/modules/catalog"
	"gigmarket/internal/modules/chat"
	"gigmarket/internal/modules/gig"
	"gigmarket/internal/modules/notification"
	"gigmarket/internal/modules/rating"
	jwtsvc "gigmarket/internal/pkg/jwt"
	"gigmarket/internal/realtime"
	"gigmarket/internal/repository"
)

// App is the assembled HTTP surface: REST routes under /api/v1 and
// websocket streams under /ws.
type App struct {
	Engine *gin.Engine
	WS     *realtime.WSHandler
	Bus    *realtime.Bus
	JWT    *jwtsvc.Service
}

// NewFeed builds the signal feed selected by cfg.RealtimeFeed.
func NewFeed(ctx context.Context, cfg *config.Config) (realtime.Feed, error) {
	switch cfg.RealtimeFeed {
	case config.FeedMemory:
		return realtime.NewMemoryFeed(64), nil
	case config.FeedRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return realtime.NewRedisFeed(client), nil
	case config.FeedPostgres:
		feed, err := realtime.NewPostgresFeed(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return feed, nil
	default:
		return nil, fmt.Errorf("unknown realtime feed %q", cfg.RealtimeFeed)
	}
}

func New(cfg *config.Config, db *gorm.DB, feed realtime.Feed) (*App, error) {
	jwtService := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	// Repositories
	gigRepo := repository.NewGigRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	ratingRepo, err := repository.NewRatingRepository(db)
	if err != nil {
		return nil, fmt.Errorf("rating repository: %w", err)
	}

	// Services
	ratingService := rating.NewService(ratingRepo)
	notificationService := notification.NewService(notificationRepo, feed)
	gigService := gig.NewService(gigRepo, offerRepo, reviewRepo, ratingService, notificationService)
	catalogService := catalog.NewService(serviceRepo, bookingRepo, ratingService, notificationService)
	chatService := chat.NewService(messageRepo, bookingRepo, feed)

	bus := realtime.NewBus(feed, realtime.NewStoreSource(notificationRepo, messageRepo), realtime.BusConfig{
		ResubscribeBase: cfg.ResubscribeBaseDelay,
		MaxRetries:      uint64(cfg.ResubscribeMaxRetries),
		BackfillLimit:   cfg.BackfillLimit,
		Lookback:        cfg.LookbackIDs,
	})
	wsHandler := realtime.NewWSHandler(bus, jwtService, bookingRepo, cfg.CORSAllowedOrigins)

	metrics.Register()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": wsHandler.OnlineCount()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(jwtService))

	gig.NewHandler(gigService).RegisterRoutes(v1, protected)
	catalog.NewHandler(catalogService).RegisterRoutes(v1, protected)
	rating.NewHandler(ratingService).RegisterRoutes(v1)
	notification.NewHandler(notificationService).RegisterRoutes(protected)
	chat.NewHandler(chatService).RegisterRoutes(protected)

	wsHandler.RegisterRoutes(r.Group("/ws"))

	return &App{Engine: r, WS: wsHandler, Bus: bus, JWT: jwtService}, nil
}

// Close drops open websocket connections. The feed is owned by the caller.
func (a *App) Close() {
	a.WS.Close()
}
