// Command catalog-server runs the book catalog REST API together with the
// Kafka event pipeline (publisher and notification consumer).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/adapters/googlebooks"
	"github.com/shelfstream/catalog/adapters/kafka"
	"github.com/shelfstream/catalog/adapters/relica"
	"github.com/shelfstream/catalog/adapters/zaplog"
	"github.com/shelfstream/catalog/cmd/catalog-server/internal/api"
	"github.com/shelfstream/catalog/cmd/catalog-server/internal/config"
	"github.com/shelfstream/catalog/metrics"
	"github.com/shelfstream/catalog/model"
)

const deadLetterTopic = model.ExchangeName + "-dlq"

// Processed-event ledger rows only need to outlive Kafka's retention window,
// after which the broker can no longer redeliver the event they deduplicate.
const (
	ledgerCleanupInterval = time.Hour
	ledgerRetention       = 7 * 24 * time.Hour
)

func main() {
	configFile := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	logger, err := zaplog.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger.Infof("🚀 Starting catalog server...")
	logger.Infof("Database: %s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	logger.Infof("Kafka brokers: %s", strings.Join(cfg.Kafka.Brokers, ","))

	// Connect to database
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.GetDSN())
	if err != nil {
		logger.Errorf("Failed to open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Errorf("Failed to ping database: %v", err)
		os.Exit(1)
	}
	logger.Infof("✅ Database connected")

	if err := catalog.ApplyMigrations(db, cfg.Database.Driver); err != nil {
		logger.Errorf("Failed to apply migrations: %v", err)
		os.Exit(1)
	}
	logger.Infof("✅ Migrations applied")

	// Create repositories
	var repos *relica.Repositories
	if cfg.Database.Prefix != "" && cfg.Database.Prefix != "catalog_" {
		repos = relica.NewRepositoriesWithPrefix(db, cfg.Database.Driver, cfg.Database.Prefix)
	} else {
		repos = relica.NewRepositories(db, cfg.Database.Driver)
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	// Kafka producer side
	gateway, err := kafka.NewGateway(cfg.Kafka, m, logger)
	if err != nil {
		logger.Errorf("Failed to create Kafka gateway: %v", err)
		os.Exit(1)
	}
	defer func() { _ = gateway.Close() }()
	logger.Infof("✅ Kafka producer connected")

	publisher, err := catalog.NewPublisher(
		catalog.WithPublisherGateway(gateway),
		catalog.WithPublisherLogger(logger),
	)
	if err != nil {
		logger.Errorf("Failed to create publisher: %v", err)
		os.Exit(1)
	}

	// Services
	bookService, err := catalog.NewBookService(
		catalog.WithBookRepository(repos.Book),
		catalog.WithBookEventPublisher(publisher),
		catalog.WithBookServiceLogger(logger),
	)
	if err != nil {
		logger.Errorf("Failed to create book service: %v", err)
		os.Exit(1)
	}
	logger.Infof("✅ Book service initialized")

	authService, err := catalog.NewAuthService(
		catalog.WithAuthUserRepository(repos.User),
		catalog.WithAuthLogger(logger),
	)
	if err != nil {
		logger.Errorf("Failed to create auth service: %v", err)
		os.Exit(1)
	}

	bootstrapAdmin(authService, cfg.Bootstrap, logger)

	// Consumer pipeline
	processor, err := catalog.NewEventConsumer(
		catalog.WithConsumerRepositories(repos.Notification, repos.ProcessedEvent),
		catalog.WithConsumerSink(catalog.NewLoggingNotificationSink(logger)),
		catalog.WithConsumerDeadLetterer(kafka.NewDeadLetterGateway(gateway, deadLetterTopic)),
		catalog.WithConsumerLogger(logger),
	)
	if err != nil {
		logger.Errorf("Failed to create event consumer: %v", err)
		os.Exit(1)
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka, []string{model.ExchangeName}, processor, m, logger)
	if err != nil {
		logger.Errorf("Failed to create Kafka consumer: %v", err)
		os.Exit(1)
	}

	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	defer stopPipeline()

	consumer.Start(pipelineCtx)
	logger.Infof("✅ Kafka consumer started (group: %s)", cfg.Kafka.ConsumerGroup)

	go processor.RunLedgerCleanup(pipelineCtx, ledgerCleanupInterval, ledgerRetention)

	var external *googlebooks.Client
	if cfg.GoogleBooks.Enabled {
		external = googlebooks.NewClient(cfg.GoogleBooks.APIKey, logger)
		logger.Infof("✅ Google Books lookup enabled")
	}

	// HTTP routes
	handler := api.NewHandler(bookService, authService, repos.Notification, external, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/books", handler.RequireRole(model.RoleUser, handler.HandleBooks))
	mux.HandleFunc("/api/v1/books/", handler.RequireRole(model.RoleUser, handler.HandleBook))
	mux.HandleFunc("/api/v1/notifications", handler.RequireRole(model.RoleUser, handler.HandleNotifications))
	mux.HandleFunc("/api/v1/users", handler.RequireRole(model.RoleAdmin, handler.HandleRegisterUser))
	mux.HandleFunc("/api/v1/health", handler.HandleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      instrumentMiddleware(loggingMiddleware(mux, logger), m),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("🌐 HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}
	stopPipeline()
	if err := consumer.Stop(); err != nil {
		logger.Errorf("Kafka consumer shutdown error: %v", err)
	}

	logger.Infof("✅ Server stopped gracefully")
}

// bootstrapAdmin creates the initial admin account when one is configured.
// An already-taken username is not an error so restarts stay quiet.
func bootstrapAdmin(auth *catalog.AuthService, cfg config.BootstrapConfig, logger catalog.Logger) {
	if cfg.AdminPassword == "" {
		logger.Infof("No bootstrap admin password configured, skipping admin creation")
		return
	}

	_, err := auth.RegisterUser(context.Background(), cfg.AdminUsername, cfg.AdminPassword, model.RoleAdmin)
	if err != nil {
		if catalog.IsValidation(err) {
			logger.Debugf("Bootstrap admin %q already exists", cfg.AdminUsername)
			return
		}
		logger.Errorf("Failed to create bootstrap admin: %v", err)
		return
	}
	logger.Infof("✅ Bootstrap admin %q created", cfg.AdminUsername)
}

// loggingMiddleware logs all HTTP requests.
func loggingMiddleware(next http.Handler, logger catalog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.Infof("→ %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
		logger.Infof("← %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
	})
}

// instrumentMiddleware records request counts and latency.
func instrumentMiddleware(next http.Handler, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		path := metricPath(r.URL.Path)
		m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(recorder.status)).Inc()
		m.HTTPRequestLatency.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// metricPath collapses resource IDs so the path label stays low-cardinality.
func metricPath(path string) string {
	switch {
	case path == "/api/v1/books/search", path == "/api/v1/books/external/search":
		return path
	case strings.HasPrefix(path, "/api/v1/books/isbn/"):
		return "/api/v1/books/isbn/:isbn"
	case strings.HasPrefix(path, "/api/v1/books/"):
		return "/api/v1/books/:id"
	}
	return path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
