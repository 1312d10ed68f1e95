package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumecraft/internal/catalog"
	"resumecraft/internal/config"
	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/metrics"
	"resumecraft/internal/notify"
	"resumecraft/internal/render"
	"resumecraft/internal/storage"
	"resumecraft/internal/tasks"
	"resumecraft/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	store := docstore.NewStore(db, redisClient)
	notifier := notify.NewRedisNotifier(redisClient)
	renderer := render.NewRodRenderer()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
	})

	// worker 进程本地不读缓存，持有 Cache 只为把失效广播到各 API 实例。
	listCache := catalog.NewCache(redisClient)
	previewHandler := worker.NewPreviewHandler(store, storageClient, renderer, notifier, listCache, logger)
	sweepHandler := worker.NewSweepHandler(store, storageClient, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypePreviewCapture, previewHandler)
	mux.Handle(tasks.TypeStorageSweep, sweepHandler)

	// 清扫任务按固定节奏排队，与即时任务共用同一个 server。
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register(cfg.Worker.SweepInterval, tasks.NewStorageSweepTask()); err != nil {
		log.Fatalf("register sweep schedule: %v", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("scheduler stopped", slog.Any("error", err))
		}
	}()

	logger.Info("worker service started", slog.String("redis_addr", cfg.Redis.Addr()))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
