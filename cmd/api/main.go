package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"timeclock/internal/attendance"
	"timeclock/internal/auth"
	"timeclock/internal/config"
	"timeclock/internal/handler"
	"timeclock/internal/httpmiddleware"
	"timeclock/internal/logging"
	"timeclock/internal/presence"
	"timeclock/internal/queue"
	"timeclock/internal/store"
	"timeclock/internal/user"
	"timeclock/internal/validation"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.Init()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("http server failed")
	}
}

func run(cfg config.App, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var (
		users    user.Repository
		attStore attendance.Store
		schema   handler.Schema
		checks   = map[string]handler.HealthCheck{}
	)
	switch cfg.StoreBackend {
	case "memory":
		mem := user.NewInMemoryRepository()
		users = mem
		attStore = attendance.NewMemoryStore(mem)
		schema = store.NoopMigrator{}
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
		if err != nil {
			return err
		}
		defer db.Close()
		users = user.NewPostgresRepository(db.Client)
		attStore = attendance.NewPostgresStore(db.Client)
		schema = store.NewMigrator(db.Client, logger)
		checks["db"] = db.Healthy
	}

	var (
		q      queue.Queue
		roster presence.Roster
	)
	switch cfg.QueueBackend {
	case "memory":
		mem := queue.NewInMemory(256)
		q = mem
		roster = presence.NewMemoryRoster()
		msgs, err := mem.Consume(ctx)
		if err != nil {
			return err
		}
		go presence.NewTracker(roster, logger).Run(ctx, msgs)
	default:
		rdb := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		q = queue.NewRedisQueue(rdb.Client, "", logger)
		roster = presence.NewRedisRoster(rdb.Client, "")
		checks["redis"] = rdb.Healthy
	}

	att := attendance.NewService(attStore, loc, logger,
		attendance.WithPublisher(attendance.NewQueuePublisher(q)))
	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	h := handler.New(user.NewService(users), att, tokens, schema, roster, logger)
	for name, check := range checks {
		h.AddHealthCheck(name, check)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.AccessLog(logger, "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(cors.New(corsConfig(cfg)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, nil).GinMiddleware())
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.HTTPPort,
			"store":    cfg.StoreBackend,
			"queue":    cfg.QueueBackend,
			"timezone": loc.String(),
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

func corsConfig(cfg config.App) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", httpmiddleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.AllowedOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
