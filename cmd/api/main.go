package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumecraft/internal/api"
	"resumecraft/internal/auth"
	"resumecraft/internal/catalog"
	"resumecraft/internal/config"
	"resumecraft/internal/database"
	"resumecraft/internal/docstore"
	"resumecraft/internal/gateway"
	"resumecraft/internal/notify"
	"resumecraft/internal/render"
	"resumecraft/internal/session"
	"resumecraft/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	logger.Info("database connection ready",
		slog.String("host", cfg.Database.Host),
		slog.String("name", cfg.Database.Name),
	)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	privateKeyPEM, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		log.Fatalf("read private key: %v", err)
	}
	publicKeyPEM, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		log.Fatalf("read public key: %v", err)
	}
	authService, err := auth.NewAuthService(privateKeyPEM, publicKeyPEM, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	providers, err := session.NewProviderRegistry(context.Background(), cfg.Auth.Providers)
	if err != nil {
		log.Fatalf("init identity providers: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	store := docstore.NewStore(db, redisClient)
	gw := gateway.New(store)
	resolver := session.NewResolver(store)
	notifier := notify.NewRedisNotifier(redisClient)

	cache := catalog.NewCache(redisClient)
	go cache.ListenInvalidations(context.Background())

	catalogService := catalog.NewService(cache, gw, store, resolver, notifier, logger)
	renderer := render.NewRodRenderer()

	router := api.NewRouter(logger)
	api.RegisterRoutes(
		router,
		cfg,
		store,
		catalogService,
		gw,
		renderer,
		providers,
		resolver,
		authService,
		asynqClient,
		redisClient,
		storageClient,
		notifier,
		logger,
	)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
