package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"timeclock/internal/config"
	"timeclock/internal/logging"
	"timeclock/internal/presence"
	"timeclock/internal/queue"
	"timeclock/internal/store"
)

// Worker consumes recorded attendance events and keeps the presence roster
// in Redis up to date.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)
	if cfg.QueueBackend == "memory" {
		logger.Fatal("worker needs QUEUE_BACKEND=redis; the memory queue is consumed inside the api")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		logger.WithField("addr", cfg.RedisAddr).Warn("redis not reachable yet, will keep retrying")
	}

	q := queue.NewRedisQueue(rdb.Client, "", logger)
	msgs, err := q.Consume(ctx)
	if err != nil {
		logger.WithError(err).Fatal("queue consume init failed")
	}

	logger.Info("worker started, waiting for messages")
	presence.NewTracker(presence.NewRedisRoster(rdb.Client, ""), logger).Run(ctx, msgs)
	logger.Info("worker stopped")
}
