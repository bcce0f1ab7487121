package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/roomdesk/internal/handler"
	"github.com/aryan0dhankhar/roomdesk/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/roomdesk/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/roomdesk/internal/observability/metrics"
	"github.com/aryan0dhankhar/roomdesk/internal/observability/tracing"
	"github.com/aryan0dhankhar/roomdesk/internal/repository"
	"github.com/aryan0dhankhar/roomdesk/internal/security"
	"github.com/aryan0dhankhar/roomdesk/internal/security/audit"
	"github.com/aryan0dhankhar/roomdesk/internal/security/auth"
	"github.com/aryan0dhankhar/roomdesk/internal/security/middleware"
	"github.com/aryan0dhankhar/roomdesk/internal/security/ratelimit"
	"github.com/aryan0dhankhar/roomdesk/internal/service"
	"github.com/aryan0dhankhar/roomdesk/internal/worker"
	"github.com/aryan0dhankhar/roomdesk/pkg/config"
	"github.com/aryan0dhankhar/roomdesk/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting Roomdesk server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op when no collector endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "roomdesk", cfg.Environment)
	if err != nil {
		log.Warn("tracing init failed, continuing without", slog.String("error", err.Error()))
		shutdownTracing = func(context.Context) error { return nil }
	}

	// 4. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize Postgres connection pool
	db, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	// 6. Change feed and repositories
	feed := redis.NewChangeFeed(redisClient, log)

	roomRepo := repository.NewPostgresRoomRepository(db.GetDB(), log)
	tenantRepo := repository.NewPostgresTenantRepository(db.GetDB(), log)
	paymentRepo := repository.NewPostgresPaymentRepository(db.GetDB(), log)
	notificationRepo := repository.NewPostgresNotificationRepository(db.GetDB(), feed, log)
	userRepo := repository.NewPostgresUserRepository(db.GetDB(), log)
	propertyRepo := repository.NewPostgresPropertyRepository(db.GetDB(), log)
	sessionStore := repository.NewSessionStore(redisClient, log)

	// 7. Services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer)
	authService := service.NewAuthService(userRepo, tokenManager, sessionStore, cfg.TokenTTL, log)
	occupancyService := service.NewOccupancyService(roomRepo, tenantRepo, log)
	paymentService := service.NewPaymentService(paymentRepo, tenantRepo, roomRepo, notificationRepo, cfg.AggregateCacheTTL, log)

	// 8. Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	roomsHandler := handler.NewRoomsHandler(occupancyService, log)
	tenantsHandler := handler.NewTenantsHandler(occupancyService, log)
	paymentsHandler := handler.NewPaymentsHandler(paymentService, log, cfg)
	notificationsHandler := handler.NewNotificationsHandler(notificationRepo, log)
	propertiesHandler := handler.NewPropertiesHandler(propertyRepo, security.NewAuthorizationServiceV2(log), log)
	feedHandler := handler.NewFeedHandler(authService, notificationRepo, feed, log, cfg.CORSAllowedOrigins)
	healthHandler := handler.NewHealthHandler(db, redisClient, log)

	// 8a. Security components
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)
	authzService := security.NewAuthorizationService(log)

	// 9. Routes
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("POST /api/auth/password", authHandler.ChangePassword)

	mux.HandleFunc("GET /api/rooms", roomsHandler.List)
	mux.HandleFunc("POST /api/rooms", roomsHandler.Create)
	mux.HandleFunc("GET /api/rooms/{id}", roomsHandler.Get)
	mux.HandleFunc("PUT /api/rooms/{id}", roomsHandler.Update)
	mux.HandleFunc("DELETE /api/rooms/{id}", roomsHandler.Delete)
	mux.HandleFunc("POST /api/rooms/{id}/assign", roomsHandler.Assign)
	mux.HandleFunc("POST /api/rooms/{id}/vacate", roomsHandler.Vacate)
	mux.HandleFunc("POST /api/rooms/{id}/maintenance", roomsHandler.Maintenance)
	mux.HandleFunc("POST /api/rooms/{id}/duplicate", roomsHandler.Duplicate)

	mux.HandleFunc("GET /api/tenants", tenantsHandler.List)
	mux.HandleFunc("POST /api/tenants", tenantsHandler.Create)
	mux.HandleFunc("PUT /api/tenants/{id}", tenantsHandler.Update)
	mux.HandleFunc("DELETE /api/tenants/{id}", tenantsHandler.Delete)

	mux.HandleFunc("GET /api/payments", paymentsHandler.List)
	mux.HandleFunc("POST /api/payments", paymentsHandler.Create)
	mux.HandleFunc("GET /api/payments/aggregate", paymentsHandler.Aggregate)
	mux.HandleFunc("GET /api/payments/{id}", paymentsHandler.Get)
	mux.HandleFunc("POST /api/payments/{id}/record", paymentsHandler.Record)
	mux.HandleFunc("GET /api/payments/{id}/reminder", paymentsHandler.Reminder)

	mux.HandleFunc("GET /api/notifications", notificationsHandler.List)
	mux.HandleFunc("POST /api/notifications", notificationsHandler.Create)
	mux.HandleFunc("POST /api/notifications/read-all", notificationsHandler.MarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", notificationsHandler.MarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", notificationsHandler.Delete)

	mux.HandleFunc("GET /api/properties", propertiesHandler.List)
	mux.HandleFunc("POST /api/properties", propertiesHandler.Create)
	mux.HandleFunc("GET /api/properties/{id}", propertiesHandler.Get)
	mux.HandleFunc("PUT /api/properties/{id}", propertiesHandler.Update)
	mux.HandleFunc("DELETE /api/properties/{id}", propertiesHandler.Delete)

	mux.Handle("GET /ws/feed", feedHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Property-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> JWT -> authorization ->
	// rate limit -> audit -> CORS. JWT runs before anything that reads
	// claims from the context.
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.JWTMiddleware(authService, log)(
				middleware.AuthorizationMiddleware(authzService, auditLogger)(
					middleware.RateLimitMiddleware(rateLimiter, log)(
						middleware.AuditMiddleware(auditLogger)(
							middleware.ValidateJSONContentType(log)(handlerWithCORS),
						),
					),
				),
			),
		),
		log,
	)
	rootHandler = otelhttp.NewHandler(rootHandler, "roomdesk.http")

	// 10. Start overdue worker in background
	overdueWorker := worker.NewOverdueWorker(
		paymentService,
		paymentRepo,
		notificationRepo,
		log,
		cfg.OverdueCheckInterval,
	)
	go overdueWorker.Start(ctx)

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop overdue worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), audit.RequestIDContextKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
