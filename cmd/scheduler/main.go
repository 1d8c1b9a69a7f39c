package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/loop2cod/madin-fee-engine/internal/config"
	"github.com/loop2cod/madin-fee-engine/internal/repository"
)

func main() {
	log.Println("Starting fee engine scheduler...")

	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	paymentRepo := repository.NewPaymentRepository(db)

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds())

	// Abandoned gateway checkouts stay pending forever unless swept; mark
	// them failed once they exceed the configured TTL.
	_, err = c.AddFunc(cfg.Scheduler.SweepCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		cutoff := time.Now().Add(-cfg.GetPendingTTL())
		count, err := paymentRepo.MarkStalePendingFailed(ctx, cutoff)
		if err != nil {
			log.Printf("Stale pending payment sweep failed: %v", err)
			return
		}
		if count > 0 {
			log.Printf("Marked %d stale pending payments as failed", count)
		}
	})
	if err != nil {
		log.Fatalf("Error scheduling stale pending payment sweep: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}
