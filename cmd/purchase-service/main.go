package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"eventpass/internal/auth"
	"eventpass/internal/config"
	"eventpass/internal/database/migrations"
	"eventpass/internal/events"
	events_api "eventpass/internal/events/api"
	events_db "eventpass/internal/events/db"
	inventory_db "eventpass/internal/inventory/db"
	"eventpass/internal/kafka"
	"eventpass/internal/logger"
	"eventpass/internal/purchase"
	purchase_api "eventpass/internal/purchase/api"
	purchase_db "eventpass/internal/purchase/db"
	rediswrap "eventpass/internal/purchase/redis"
	"eventpass/internal/tickets"
	tickets_api "eventpass/internal/tickets/api"
	"eventpass/internal/tickets/qr"
	users_db "eventpass/internal/users/db"
)

func main() {
	_ = godotenv.Load() // Loads .env file if present

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL Setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	if err := migrations.Run(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	log.Info("DATABASE", "Postgres connection and schema ready")

	// --- Redis Setup ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	log.Info("REDIS", "Redis connection successful")

	// --- Kafka Setup ---
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		topics := []string{kafka.TopicPurchaseAdded, kafka.TopicEventDeleted, kafka.TopicTicketDeleted}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic bootstrap failed: %v", err))
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
	} else {
		log.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	// --- Initialize Dependencies ---
	ticketStore := &inventory_db.DB{Bun: bunDB}
	purchaseStore := &purchase_db.DB{Bun: bunDB}
	eventStore := &events_db.DB{Bun: bunDB}
	userStore := &users_db.DB{Bun: bunDB}
	stockLock := rediswrap.NewRedis(redisClient)

	var publisher purchase.KafkaPublisher
	var eventPublisher events.KafkaPublisher
	var ticketPublisher tickets.KafkaPublisher
	if producer != nil {
		publisher = producer
		eventPublisher = producer
		ticketPublisher = producer
	}

	purchaseService := purchase.NewPurchaseService(
		ticketStore, purchaseStore, stockLock, publisher,
		&purchase.BunTxRunner{DB: bunDB}, log,
	)
	eventService := events.NewEventService(eventStore, ticketStore, purchaseStore, userStore, eventPublisher, log)
	ticketService := tickets.NewTicketService(ticketStore, eventStore, purchaseStore, ticketPublisher, log)

	receipts := qr.NewReceiptGenerator(os.Getenv("RECEIPT_SECRET_KEY"))

	purchaseHandler := &purchase_api.Handler{Purchase: purchaseService, Receipts: receipts}
	eventHandler := &events_api.Handler{Events: eventService}
	ticketHandler := &tickets_api.Handler{Tickets: ticketService}

	// --- Setup Router ---
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/event/list", eventHandler.ListEvents)
		r.Get("/event/search", eventHandler.SearchEvents)
		r.Get("/event/{id}", eventHandler.EventDetail)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware())

			r.Post("/event/add", eventHandler.CreateEvent)
			r.Patch("/event/{id}", eventHandler.UpdateEvent)
			r.Delete("/event/{id}", eventHandler.DeleteEvent)

			r.Post("/ticket/add", ticketHandler.CreateTicket)
			r.Patch("/ticket/{id}", ticketHandler.UpdateTicket)
			r.Delete("/ticket/{id}", ticketHandler.DeleteTicket)

			r.Post("/purchase/add", purchaseHandler.AddToPurchase)
			r.Get("/purchase/history", purchaseHandler.History)
		})
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Purchase service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Purchase service shutdown complete")
}
