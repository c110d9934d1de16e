package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/featureflags"
	"github.com/Tiisu/eco-action-hub/internal/handler"
	"github.com/Tiisu/eco-action-hub/internal/infrastructure/logger"
	"github.com/Tiisu/eco-action-hub/internal/infrastructure/redis"
	"github.com/Tiisu/eco-action-hub/internal/observability/metrics"
	"github.com/Tiisu/eco-action-hub/internal/observability/tracing"
	"github.com/Tiisu/eco-action-hub/internal/repository"
	"github.com/Tiisu/eco-action-hub/internal/security/audit"
	"github.com/Tiisu/eco-action-hub/internal/security/auth"
	"github.com/Tiisu/eco-action-hub/internal/security/middleware"
	"github.com/Tiisu/eco-action-hub/internal/security/ratelimit"
	"github.com/Tiisu/eco-action-hub/internal/service"
	"github.com/Tiisu/eco-action-hub/internal/storage"
	"github.com/Tiisu/eco-action-hub/internal/worker"
	"github.com/Tiisu/eco-action-hub/pkg/config"
	"github.com/Tiisu/eco-action-hub/pkg/database"
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
	log.Info("starting PCI server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op without an OTLP endpoint)
	shutdownTracing, err := tracing.Init(ctx, log, "eco-action-hub", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Redis client
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize PostgreSQL and apply schema
	db, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Initialize repositories
	profileRepo := repository.NewPostgresProfileRepository(db.GetDB(), log)
	reportRepo := repository.NewPostgresReportRepository(db.GetDB(), log)
	rewardRepo := repository.NewPostgresRewardRepository(db.GetDB(), log)
	settingRepo := repository.NewPostgresSettingRepository(db.GetDB(), log)

	if err := seedSettings(ctx, settingRepo, cfg); err != nil {
		log.Error("failed to seed settings", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "eco-action-hub", cfg.TokenTTL)
	rateLimiter := ratelimit.NewLimiter(cfg.GeneralRateLimitPerMin, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Initialize services
	settingService := service.NewSettingService(settingRepo, cfg.DefaultPointsPerKg, cfg.DefaultAgentApproval, log)
	sessionService := service.NewSessionService(profileRepo, settingService, tokenManager, log)
	leaderboardService := service.NewLeaderboardService(profileRepo, redisClient, cfg.LeaderboardSize, log)
	reportService := service.NewReportService(reportRepo, profileRepo, settingService, leaderboardService, auditLogger, log)
	rewardService := service.NewRewardService(rewardRepo, profileRepo, leaderboardService, auditLogger, log)

	approvalHub := handler.NewApprovalHub(cfg.CORSAllowedOrigins, log)
	var notifier service.ApprovalNotifier = approvalHub
	if !featureflags.EnabledDefault("approval_push", true) {
		log.Info("approval push disabled, agents fall back to polling")
		notifier = service.NopNotifier{}
	}
	agentService := service.NewAgentService(profileRepo, notifier, auditLogger, log)

	// 9. Initialize handlers
	avatarStore, err := storage.NewAvatarStore(cfg.AvatarDir, cfg.PublicBaseURL, log)
	if err != nil {
		log.Error("failed to initialize avatar store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	authHandler := handler.NewAuthHandler(sessionService, rateLimiter, cfg.LoginRateLimitPerMin, log)
	profileHandler := handler.NewProfileHandler(sessionService, avatarStore, log)
	reportHandler := handler.NewReportHandler(reportService, log)
	agentHandler := handler.NewAgentHandler(agentService, sessionService, cfg.ApprovalPollSeconds, log)
	rewardHandler := handler.NewRewardHandler(rewardService, log)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService, log)
	settingsHandler := handler.NewSettingsHandler(settingService, auditLogger, log)
	routeHandler := handler.NewRouteHandler()
	healthHandler := handler.NewHealthHandler(db, redisClient, log)

	// 10. Setup HTTP routes
	requireUser := middleware.RequireRole(domain.RoleUser, log)
	requireAgent := middleware.RequireRole(domain.RoleAgent, log)
	requireAdmin := middleware.RequireRole(domain.RoleAdmin, log)

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/reset-password", authHandler.ResetPassword)
	mux.HandleFunc("GET /api/rewards", rewardHandler.ListAvailable)
	mux.Handle("GET /api/leaderboard", leaderboardHandler)
	mux.Handle("GET /static/avatars/", avatarStore.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("/metrics", promhttp.Handler())

	// Any authenticated profile
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)
	mux.HandleFunc("GET /api/profile", profileHandler.Get)
	mux.HandleFunc("PUT /api/profile", profileHandler.Update)
	mux.HandleFunc("POST /api/profile/avatar", profileHandler.UploadAvatar)
	mux.Handle("GET /api/access/route", routeHandler)
	mux.HandleFunc("GET /api/agents/status", agentHandler.Status)
	mux.Handle("GET /ws/approval", approvalHub)

	// User role
	mux.Handle("POST /api/reports", requireUser(http.HandlerFunc(reportHandler.Submit)))
	mux.Handle("GET /api/reports", requireUser(http.HandlerFunc(reportHandler.ListOwn)))
	mux.Handle("POST /api/rewards/{id}/redeem", requireUser(http.HandlerFunc(rewardHandler.Redeem)))
	mux.Handle("GET /api/redemptions", requireUser(http.HandlerFunc(rewardHandler.History)))

	// Agent role (approved; the guard redirects pending agents)
	mux.Handle("GET /api/reports/pending", requireAgent(http.HandlerFunc(reportHandler.ListPending)))
	mux.Handle("POST /api/reports/{id}/decision", requireAgent(http.HandlerFunc(reportHandler.Decide)))

	// Admin role
	mux.Handle("GET /api/admin/agents/pending", requireAdmin(http.HandlerFunc(agentHandler.ListPending)))
	mux.Handle("POST /api/admin/agents/{id}/approve", requireAdmin(http.HandlerFunc(agentHandler.Approve)))
	mux.Handle("POST /api/admin/agents/{id}/reject", requireAdmin(http.HandlerFunc(agentHandler.Reject)))
	mux.Handle("GET /api/admin/reports", requireAdmin(http.HandlerFunc(reportHandler.ListAll)))
	mux.Handle("GET /api/admin/rewards", requireAdmin(http.HandlerFunc(rewardHandler.ListAll)))
	mux.Handle("POST /api/admin/rewards", requireAdmin(http.HandlerFunc(rewardHandler.Create)))
	mux.Handle("PUT /api/admin/rewards/{id}", requireAdmin(http.HandlerFunc(rewardHandler.Update)))
	mux.Handle("DELETE /api/admin/rewards/{id}", requireAdmin(http.HandlerFunc(rewardHandler.Delete)))
	mux.Handle("GET /api/admin/settings", requireAdmin(http.HandlerFunc(settingsHandler.List)))
	mux.Handle("PUT /api/admin/settings", requireAdmin(http.HandlerFunc(settingsHandler.Update)))

	// CORS honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> JWT -> rate limit -> content type -> CORS/mux
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			middleware.JWTMiddleware(tokenManager, log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.ValidateJSONContentType(log)(handlerWithCORS),
				),
			),
		),
		log,
	)

	// 11. Start leaderboard refresher in background
	leaderboardWorker := worker.NewLeaderboardWorker(leaderboardService, log, cfg.LeaderboardInterval)
	go leaderboardWorker.Start(ctx)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.GeneralRateLimitPerMin),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
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

	cancel() // Stop leaderboard worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

// seedSettings writes defaults for settings that have never been set, so
// the admin screen always shows the full key set.
func seedSettings(ctx context.Context, repo domain.SettingRepository, cfg *config.Config) error {
	defaults := map[string]string{
		domain.SettingPointsPerKg:          strconv.FormatFloat(cfg.DefaultPointsPerKg, 'f', -1, 64),
		domain.SettingDefaultAgentApproval: strconv.FormatBool(cfg.DefaultAgentApproval),
	}
	for key, value := range defaults {
		_, err := repo.Get(ctx, key)
		if errors.Is(err, domain.ErrNotFound) {
			if err := repo.Set(ctx, key, value); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
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
