package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framehq/deskbook/internal/handlers"
	"github.com/framehq/deskbook/internal/ratelimit"
	"github.com/framehq/deskbook/internal/repository"
	"github.com/framehq/deskbook/internal/service"
	"github.com/framehq/deskbook/pkg/config"
	"github.com/framehq/deskbook/pkg/database"
	"github.com/framehq/deskbook/pkg/events"
	"github.com/framehq/deskbook/pkg/logger"
	mw "github.com/framehq/deskbook/pkg/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const sessionCleanupInterval = time.Hour

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Rate limit store: shared Redis when configured, in-process otherwise.
	var limiterStore ratelimit.Store
	var memoryStore *ratelimit.MemoryStore
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid Redis URL", "error", err)
			os.Exit(1)
		}
		limiterStore = ratelimit.NewRedisStore(redis.NewClient(opts))
		logger.Info("Rate limiting backed by Redis")
	} else {
		memoryStore = ratelimit.NewMemoryStore()
		limiterStore = memoryStore
		logger.Info("Rate limiting backed by in-process store")
	}
	limiter := ratelimit.New(limiterStore)

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	tempRepo := repository.NewTempPasswordRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	workspaceRepo := repository.NewWorkspaceRepository(pool)

	// Services
	sessionService := service.NewSessionService(sessionRepo, userRepo, cfg)
	authService := service.NewAuthService(userRepo, tempRepo, auditRepo, sessionService, limiter, cfg)
	adminService := service.NewAdminService(userRepo, tempRepo, auditRepo, sessionService, eventBus, cfg)
	bookingService := service.NewBookingService(bookingRepo, workspaceRepo, eventBus)
	workspaceService := service.NewWorkspaceService(workspaceRepo)

	h := handlers.New(authService, sessionService, adminService, bookingService, workspaceService, cfg)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Post("/auth/logout", h.Logout)
			r.Post("/auth/change-password", h.ChangePassword)

			// Everything past this point is blocked until a forced
			// password change completes.
			r.Group(func(r chi.Router) {
				r.Use(h.RequirePasswordCurrent)

				r.Get("/auth/me", h.Me)

				r.Get("/zones", h.ListZones)
				r.Get("/desks", h.ListDesks)
				r.Get("/desks/{id}/availability", h.DeskAvailability)

				r.Post("/bookings", h.CreateBooking)
				r.Get("/bookings", h.ListBookings)
				r.Get("/bookings/mine", h.ListMyBookings)
				r.Delete("/bookings/{id}", h.CancelBooking)

				r.Route("/admin", func(r chi.Router) {
					r.Use(h.RequireAdmin)
					r.Post("/users", h.CreateUser)
					r.Get("/users", h.ListUsers)
					r.Post("/users/{id}/reset-password", h.ResetPassword)
					r.Post("/users/{id}/unlock", h.UnlockAccount)
					r.Patch("/users/{id}/active", h.SetUserActive)
					r.Get("/audit-log", h.ListAuditLog)
				})
			})
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting deskbook API", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down deskbook API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if memoryStore != nil {
		g.Go(func() error {
			memoryStore.Janitor(gctx)
			return nil
		})
	}

	// Expired sessions are deleted lazily on use; this sweep catches the
	// ones nobody presents again.
	g.Go(func() error {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := sessionService.CleanupExpired(gctx); err != nil {
					logger.Error("Session cleanup failed", "error", err)
				} else if n > 0 {
					logger.Info("Deleted expired sessions", "count", n)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Deskbook API error", "error", err)
		os.Exit(1)
	}
}
