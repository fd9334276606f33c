package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"gigmarket/internal/database"
	"gigmarket/internal/modules/catalog"
	"gigmarket/internal/modules/chat"
	"gigmarket/internal/modules/gig"
	"gigmarket/internal/modules/notification"
	"gigmarket/internal/modules/rating"
	"gigmarket/internal/realtime"
	"gigmarket/internal/repository"
)

// Demo identities. Users live in the external auth service; these ids only
// need to match tokens minted with cmd/devtoken.
const (
	ownerID     int64 = 1
	providerID  int64 = 2
	provider2ID int64 = 3
	consumerID  int64 = 4
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "gigmarket.db"
	}

	db, err := database.Connect(dsn)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	ctx := context.Background()
	if database.IsPostgres(dsn) {
		if err := database.Migrate(ctx, dsn, "up"); err != nil {
			log.Fatal("migrate failed:", err)
		}
	} else {
		log.Println("Running AutoMigrate...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatal("AutoMigrate failed:", err)
		}
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	for _, table := range []string{"messages", "notifications", "reviews", "offers", "gigs", "bookings", "services"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			log.Fatalf("clean %s: %v", table, err)
		}
	}

	feed := realtime.NewMemoryFeed(1)
	defer feed.Close()

	ratingRepo, err := repository.NewRatingRepository(db)
	if err != nil {
		log.Fatal(err)
	}
	bookingRepo := repository.NewBookingRepository(db)
	ratings := rating.NewService(ratingRepo)
	notifications := notification.NewService(repository.NewNotificationRepository(db), feed)
	gigs := gig.NewService(
		repository.NewGigRepository(db),
		repository.NewOfferRepository(db),
		repository.NewReviewRepository(db),
		ratings,
		notifications,
	)
	services := catalog.NewService(repository.NewServiceRepository(db), bookingRepo, ratings, notifications)
	messages := chat.NewService(repository.NewMessageRepository(db), bookingRepo, feed)

	// ================== GIGS ==================
	log.Println("Creating gigs...")
	done, err := gigs.CreateGig(ctx, ownerID, gig.CreateGigRequest{
		Title: "Wedding photographer", GigDate: "2030-06-01", StartTime: "10:00", EndTime: "18:00", Budget: 500,
	})
	must(err)
	won, err := gigs.SubmitOffer(ctx, done.ID, providerID, gig.SubmitOfferRequest{Price: 450, Message: "Ten years of weddings"})
	must(err)
	_, err = gigs.SubmitOffer(ctx, done.ID, provider2ID, gig.SubmitOfferRequest{Price: 480})
	must(err)
	_, err = gigs.AcceptOffer(ctx, ownerID, won.ID)
	must(err)
	_, err = gigs.CompleteGig(ctx, ownerID, done.ID)
	must(err)
	_, err = gigs.SubmitReview(ctx, done.ID, ownerID, gig.SubmitReviewRequest{Rating: 5, Comment: "Beautiful shots"})
	must(err)

	djGig, err := gigs.CreateGig(ctx, ownerID, gig.CreateGigRequest{
		Title: "Event DJ", GigDate: "2030-07-15", StartTime: "20:00", EndTime: "23:30", Budget: 300,
	})
	must(err)
	_, err = gigs.SubmitOffer(ctx, djGig.ID, provider2ID, gig.SubmitOfferRequest{Price: 280})
	must(err)

	// ================== SERVICES ==================
	log.Println("Creating services and bookings...")
	svc, err := services.CreateService(ctx, providerID, catalog.CreateServiceRequest{Title: "Portrait session", Price: 80})
	must(err)
	booking, err := services.BookService(ctx, svc.ID, consumerID, catalog.CreateBookingRequest{BookingDate: "2030-05-20"})
	must(err)
	_, err = messages.SendMessage(ctx, booking.ID, consumerID, 0, "Hi, can we start at 9?")
	must(err)
	_, err = messages.SendMessage(ctx, booking.ID, providerID, 0, "Sure, see you then")
	must(err)

	log.Println("Seed completed!")
	log.Printf("Demo users: owner=%d providers=%d,%d consumer=%d (mint tokens with cmd/devtoken)", ownerID, providerID, provider2ID, consumerID)
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
