package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"github.com/samirrijal/pinmap/internal/adapters/http"
	natsadapter "github.com/samirrijal/pinmap/internal/adapters/nats"
	"github.com/samirrijal/pinmap/internal/adapters/postgres"
	"github.com/samirrijal/pinmap/internal/adapters/storage"
	"github.com/samirrijal/pinmap/internal/adapters/valkey"
	"github.com/samirrijal/pinmap/internal/core/domain"
	"github.com/samirrijal/pinmap/internal/core/ports"
	"github.com/samirrijal/pinmap/internal/core/usecases"
	"github.com/samirrijal/pinmap/internal/mapview"
	"github.com/samirrijal/pinmap/internal/pkg/auth"
	"github.com/samirrijal/pinmap/internal/pkg/config"
	"github.com/samirrijal/pinmap/internal/pkg/logging"
	"github.com/samirrijal/pinmap/internal/pkg/resilience"
	"github.com/samirrijal/pinmap/internal/pkg/telemetry"
	"github.com/samirrijal/pinmap/internal/workflows"
)

func main() {
	cfg, err := config.Load("pinmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache. The interface stays nil when valkey is down.
	var pinCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, listings are not cached", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		pinCache = cache
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, pin events are not published", "error", err)
		pub = nil
	} else {
		defer pub.Close()
		events = pub
	}

	// Photo storage
	var blobs ports.BlobStore
	if cfg.Storage.Enabled() {
		store, err := storage.New(cfg.Storage)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		blobs = store
	}

	// Repos
	pinRepo := postgres.NewPinRepo(db)
	likeRepo := postgres.NewLikeRepo(db)
	photoRepo := postgres.NewPhotoRepo(db)
	followRepo := postgres.NewFollowRepo(db)
	profileRepo := postgres.NewProfileRepo(db)

	// Use cases
	pinSvc := usecases.NewPinService(pinRepo, pinCache, events, cfg.Map.CacheTTLSeconds)
	likeSvc := usecases.NewLikeService(pinRepo, likeRepo, events, pinSvc)
	followSvc := usecases.NewFollowService(followRepo, profileRepo)
	profileSvc := usecases.NewProfileService(profileRepo, pinRepo)
	photoSvc := usecases.NewPhotoService(pinRepo, photoRepo, blobs, events, pinSvc)

	// Photo cleanup runs as a workflow when temporal is reachable, inline otherwise.
	var cleanup ports.PhotoCleanupScheduler
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    tlog.NewStructuredLogger(slog.Default()),
		})
		if err != nil {
			slog.Warn("temporal unavailable, photos are purged inline", "error", err)
		} else {
			defer tc.Close()
			cleanup = workflows.NewTemporalScheduler(tc, cfg.Temporal.TaskQueue)
		}
	}
	pinSvc.SetPhotoCleanup(cleanup, blobs)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	// Client mistakes must not trip the like breaker.
	breakerCfg := resilience.DefaultConfig("like-confirm")
	breakerCfg.IsSuccessful = func(err error) bool {
		return err == nil ||
			errors.Is(err, domain.ErrNotFound) ||
			errors.Is(err, domain.ErrForbidden) ||
			errors.Is(err, domain.ErrInvalidInput)
	}
	likeBreaker := resilience.New(breakerCfg)

	// Live map sessions reload whenever any pin changes.
	hub := mapview.NewHub()
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats subscriber unavailable, live maps refresh on demand only", "error", err)
	} else {
		defer sub.Close()
		err = sub.SubscribePinEvents(ctx, "", func(ctx context.Context, event *domain.PinEvent) error {
			// New pins can land in any viewer's collection; other events only
			// concern sessions that already hold the pin.
			var n int
			if event.Type == domain.EventPinCreated {
				n = hub.RefreshAll(ctx, pinSvc)
			} else {
				n = hub.RefreshPin(ctx, pinSvc, event.PinID)
			}
			slog.Debug("pin event", "type", event.Type, "pin_id", event.PinID, "sessions", n)
			return nil
		})
		if err != nil {
			slog.Warn("subscribe pin events", "error", err)
		}
	}

	deps := &http.Dependencies{
		Pins:           pinSvc,
		Likes:          likeSvc,
		Follows:        followSvc,
		Profiles:       profileSvc,
		Photos:         photoSvc,
		Auth:           verifier,
		Hub:            hub,
		LikeBreaker:    likeBreaker,
		VisibleCap:     cfg.Map.VisibleCap,
		ConfirmTimeout: cfg.Map.ConfirmTimeout(),
		DB:             db,
		Cache:          cache,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Pinmap API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Link, Location, ETag, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
