// Package main provides the chime server executable with HTTP API and background scheduler.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mateteriya/chime"
	"github.com/mateteriya/chime/adapters/relica"
	"github.com/mateteriya/chime/cmd/chime-server/internal/api"
	"github.com/mateteriya/chime/cmd/chime-server/internal/config"
	"github.com/mateteriya/chime/model"
	"github.com/mateteriya/chime/webpush"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SimpleLogger implements chime.Logger for standard logging.
type SimpleLogger struct{}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	log.Printf("[DEBUG] "+format, args...)
}
func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}
func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}
func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
func (l *SimpleLogger) Info(message string) {
	log.Printf("[INFO] %s", message)
}

func main() {
	log.Println("🚀 Starting Chime Server v0.1.0...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("📝 Configuration loaded:")
	log.Printf("   Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("   Database: %s", cfg.Database.Driver)
	log.Printf("   Tick interval: %ds", cfg.Scheduler.TickInterval)
	log.Printf("   Default timezone: %s", cfg.Scheduler.DefaultTimezone)

	// Connect to database
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Failed to close database: %v", closeErr)
		}
	}()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	// Create logger
	logger := &SimpleLogger{}

	// Create repositories using Relica adapters
	var repos *relica.Repositories
	if cfg.Database.Prefix != "" {
		repos = relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	} else {
		repos = relica.NewRepositories(db, cfg.Database.Driver)
	}
	log.Println("✅ Repositories initialized (Relica adapters)")

	// Create VAPID signer. Bad key material is a startup failure: a server
	// that cannot sign cannot deliver anything.
	signer, err := webpush.NewSigner(cfg.Vapid.PrivateKey, cfg.Vapid.PublicKey, cfg.Vapid.Subject)
	if err != nil {
		log.Fatalf("Failed to create VAPID signer: %v", err)
	}
	log.Println("✅ VAPID signer created")

	// Create push dispatcher
	dispatcher, err := webpush.NewDispatcher(
		webpush.WithSigner(signer),
		webpush.WithDispatcherLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create dispatcher: %v", err)
	}
	log.Println("✅ Push dispatcher created")

	// Create Registrar service
	registrar, err := chime.NewRegistrar(
		chime.WithRegistrarRepository(repos.Subscription),
		chime.WithRegistrarLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create registrar: %v", err)
	}
	log.Println("✅ Registrar service created")

	// Create Scheduler
	scheduler, err := chime.NewScheduler(
		chime.WithRepositories(repos.Subscription, repos.Firing),
		chime.WithDispatcher(dispatcher),
		chime.WithTriggers(newYearTriggers()...),
		chime.WithLogger(logger),
		chime.WithObserver(chime.NewLoggingSchedulerObserver(logger)),
		chime.WithWorkers(cfg.Scheduler.Workers),
		chime.WithDefaultZone(cfg.Scheduler.DefaultTimezone),
	)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	log.Println("✅ Scheduler created")

	// Start scheduler in background
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		log.Printf("🔄 Starting scheduler (interval: %ds)...", cfg.Scheduler.TickInterval)
		scheduler.Run(ctx, time.Duration(cfg.Scheduler.TickInterval)*time.Second)
	}()

	// Purge old firing records once a day
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -cfg.Scheduler.RetentionDays)
				if _, err := scheduler.PurgeFirings(ctx, cutoff); err != nil {
					log.Printf("Failed to purge firings: %v", err)
				}
			}
		}
	}()

	// Create API handler
	handler := api.NewHandler(registrar, signer.PublicKey(), chime.SystemClock{}, logger)

	// Setup HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/subscriptions", handler.HandleSubscribe)
	mux.HandleFunc("/api/v1/subscriptions/", handler.HandleUnsubscribe) // Note trailing slash for :ownerID
	mux.HandleFunc("/api/v1/time", handler.HandleTime)
	mux.HandleFunc("/api/v1/vapid-key", handler.HandleVapidKey)
	mux.HandleFunc("/api/v1/health", handler.HandleHealth)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      loggingMiddleware(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("🌐 HTTP server listening on %s", addr)
		log.Println("📡 API Endpoints:")
		log.Println("   POST   /api/v1/subscriptions")
		log.Println("   DELETE /api/v1/subscriptions/:ownerID")
		log.Println("   GET    /api/v1/time")
		log.Println("   GET    /api/v1/vapid-key")
		log.Println("   GET    /api/v1/health")
		log.Println()
		log.Println("✅ Chime Server is ready!")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	cancel() // Stop scheduler
	log.Println("✅ Server stopped gracefully")
}

// newYearTriggers returns the trigger schedule: a reminder while the last
// trains still run, a two-minute warning, and the midnight celebration.
func newYearTriggers() []model.Trigger {
	window := 15 * time.Minute
	return []model.Trigger{
		model.NewYearlyTrigger("new-year-reminder", time.December, 31, 22, 50, window, model.Notification{
			Title: "Almost midnight!",
			Body:  "70 minutes until the new year. Get your party ready!",
			URL:   "/",
			Tag:   "new-year-reminder",
		}),
		model.NewYearlyTrigger("new-year-warning", time.December, 31, 23, 58, window, model.Notification{
			Title: "2 minutes to go!",
			Body:  "The countdown is about to begin.",
			URL:   "/",
			Tag:   "new-year-warning",
		}),
		model.NewYearlyTrigger("new-year", time.January, 1, 0, 0, window, model.Notification{
			Title: "Happy New Year! 🎉",
			Body:  "Wishing you a wonderful year ahead.",
			URL:   "/",
			Tag:   "new-year",
		}),
	}
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(next http.Handler, logger chime.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
