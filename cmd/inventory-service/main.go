package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	cataloghandler "github.com/pharmatrack/pharmatrack-backend/internal/catalog/handler"
	catalogrepo "github.com/pharmatrack/pharmatrack-backend/internal/catalog/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/consumers"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/events"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/handler"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/service"
	"github.com/pharmatrack/pharmatrack-backend/pkg/config"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/pharmatrack/pharmatrack-backend/pkg/httputil"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
	"github.com/pharmatrack/pharmatrack-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("inventory-service", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	lotRepo := repository.NewLotRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	writeOffRepo := repository.NewWriteOffRepository(db)
	conditionRepo := repository.NewConditionRepository(db)
	userCacheRepo := repository.NewUserCacheRepository(db)
	medicationRepo := catalogrepo.NewMedicationRepository(db)
	pharmacyRepo := catalogrepo.NewPharmacyRepository(db)
	deviceRepo := catalogrepo.NewDeviceRepository(db)

	// Initialize service
	inventoryService := service.NewService(
		db, lotRepo, transactionRepo, writeOffRepo, conditionRepo,
		medicationRepo, pharmacyRepo, deviceRepo,
		publisher, log, cfg.Inventory,
	)

	// Initialize handlers
	lotHandler := handler.NewLotHandler(inventoryService, log)
	transactionHandler := handler.NewTransactionHandler(inventoryService, log)
	stockHandler := handler.NewStockHandler(inventoryService, log, cfg.Inventory.DefaultLowStockThreshold)
	reportHandler := handler.NewReportHandler(inventoryService, log)
	conditionHandler := handler.NewConditionHandler(inventoryService, log)
	catalogHandler := cataloghandler.NewCatalogHandler(medicationRepo, pharmacyRepo, deviceRepo, log)

	// Start user event consumer
	userConsumer, err := consumers.NewUserConsumer(rmq, userCacheRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create user event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := userConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start user event consumer")
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(httputil.UserContext) // gateway-injected user headers

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			if origin == "http://localhost:3000" || origin == "http://localhost:5173" {
				return true
			}
			return strings.HasSuffix(origin, ".pharmatrack.app")
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-User-Role"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "inventory-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Catalog routes
		r.Route("/medications", func(r chi.Router) {
			r.Get("/", catalogHandler.ListMedications)
			r.Post("/", catalogHandler.CreateMedication)
			r.Get("/{id}", catalogHandler.GetMedication)
		})
		r.Route("/pharmacies", func(r chi.Router) {
			r.Get("/", catalogHandler.ListPharmacies)
			r.Post("/", catalogHandler.CreatePharmacy)
			r.Get("/{id}", catalogHandler.GetPharmacy)
			r.Get("/{id}/devices", catalogHandler.ListDevices)
			r.Get("/{id}/transactions", transactionHandler.History)
			r.Get("/{id}/conditions", conditionHandler.ListSamples)
			r.Get("/{id}/conditions/check", conditionHandler.Check)
		})
		r.Post("/devices", catalogHandler.CreateDevice)

		// Inventory routes
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", lotHandler.List)
			r.Post("/", lotHandler.Create)
			r.Get("/{id}", lotHandler.Get)
			r.Put("/{id}/quantity", lotHandler.SetQuantity)

			r.Post("/sales", transactionHandler.RecordSale)
			r.Post("/write-offs", transactionHandler.WriteOff)

			r.Get("/low-stock", stockHandler.LowStock)
			r.Get("/restock-recommendations", stockHandler.Recommendations)
		})

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/sales", reportHandler.Sales)
			r.Get("/write-offs", reportHandler.WriteOffs)
			r.Get("/usage", reportHandler.Usage)
			r.Get("/statistics", reportHandler.Statistics)
			r.Get("/snapshot", reportHandler.Snapshot)
		})

		// Condition ingestion webhook
		r.Post("/conditions/webhook", conditionHandler.Webhook)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
