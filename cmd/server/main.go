package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/loop2cod/madin-fee-engine/internal/config"
	"github.com/loop2cod/madin-fee-engine/internal/gateway"
	"github.com/loop2cod/madin-fee-engine/internal/handler"
	"github.com/loop2cod/madin-fee-engine/internal/repository"
	"github.com/loop2cod/madin-fee-engine/internal/service"
	"github.com/loop2cod/madin-fee-engine/pkg/response"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	structureRepo := repository.NewFeeStructureRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Initialize collaborators
	razorpayGateway := gateway.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	locker := service.NewRedisLocker(redisClient, cfg.GetLockTTL())

	// Initialize services
	feeService := service.NewFeeService(structureRepo, assignmentRepo, paymentRepo)
	paymentService := service.NewPaymentService(assignmentRepo, paymentRepo, razorpayGateway, locker, cfg)

	feeHandler := handler.NewFeeHandler(feeService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(feeHandler, paymentHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(feeHandler *handler.FeeHandler, paymentHandler *handler.PaymentHandler, healthHandler *handler.HealthHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.CORSMiddleware)
	router.Use(response.LoggingMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/fee-structures", feeHandler.CreateFeeStructure).Methods("POST")
	api.HandleFunc("/fee-structures", feeHandler.ListFeeStructures).Methods("GET")
	api.HandleFunc("/fee-structures/{id}", feeHandler.GetFeeStructure).Methods("GET")
	api.HandleFunc("/fee-structures/{id}", feeHandler.DeactivateFeeStructure).Methods("DELETE")

	api.HandleFunc("/students/{studentId}/assignment", feeHandler.AssignStructure).Methods("POST")
	api.HandleFunc("/students/{studentId}/assignment", feeHandler.GetAssignment).Methods("GET")
	api.HandleFunc("/students/{studentId}/assignment/customizations", feeHandler.AddCustomization).Methods("POST")
	api.HandleFunc("/students/{studentId}/payment-status", feeHandler.GetPaymentStatus).Methods("GET")

	api.HandleFunc("/students/{studentId}/orders", paymentHandler.CreateOrder).Methods("POST")
	api.HandleFunc("/students/{studentId}/office-payments", paymentHandler.RecordOfficePayment).Methods("POST")
	api.HandleFunc("/students/{studentId}/payments", paymentHandler.ListPayments).Methods("GET")
	api.HandleFunc("/payments/verify", paymentHandler.VerifyPayment).Methods("POST")
	api.HandleFunc("/payments/{paymentId}/refund", paymentHandler.RefundPayment).Methods("POST")

	return router
}
