package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/example/snapshop/configs"
	"github.com/example/snapshop/internal/address"
	"github.com/example/snapshop/internal/api"
	"github.com/example/snapshop/internal/badge"
	"github.com/example/snapshop/internal/catalog"
	"github.com/example/snapshop/internal/docstore"
	"github.com/example/snapshop/internal/domain/profile"
	"github.com/example/snapshop/internal/identity"
	"github.com/example/snapshop/internal/infrastructure/kafka"
	"github.com/example/snapshop/internal/logging"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := configs.Load("./configs", getEnv("SNAPSHOP_ENV", "dev"))
	if err != nil {
		log.Fatalf("[API] Failed to load config: %v", err)
	}

	logger := logging.Init("api", cfg.App.LogFile)
	logger.Info("starting", "addr", cfg.App.HTTPAddr, "store", cfg.Store.Backend)

	// Document store backend
	var store docstore.DocumentStore
	switch cfg.Store.Backend {
	case "dynamo":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("[API] Failed to load AWS config: %v", err)
		}
		store = docstore.NewDynamoDocumentStore(dynamodb.NewFromConfig(awsCfg), cfg.Store.DynamoTable)
		log.Printf("[API] Document store: DynamoDB table %s", cfg.Store.DynamoTable)
	case "postgres":
		db, err := docstore.ConnectPostgres(cfg.Store.PostgresDSN)
		if err != nil {
			log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()
		pgStore := docstore.NewPostgresDocumentStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatalf("[API] Failed to ensure schema: %v", err)
		}
		store = pgStore
		log.Println("[API] Document store: PostgreSQL")
	default:
		log.Fatalf("[API] Unknown store backend %q", cfg.Store.Backend)
	}

	// Catalog client, optionally cached in Redis
	var catalogClient catalog.Client = catalog.NewHTTPClient(cfg.Catalog.BaseURL)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		defer redisClient.Close()
		catalogClient = catalog.NewCachedClient(catalogClient, redisClient, cfg.Catalog.CacheTTL)
		log.Printf("[API] Catalog cache: Redis at %s", cfg.Redis.Addr)
	}

	// Badge fan-out
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.BadgeTopic)
	defer producer.Close()
	badgePublisher := badge.NewPublisher(producer)

	// Services
	sessions := api.NewSessionRegistry(store, badgePublisher)
	profiles := profile.NewService(store)
	proofs := identity.NewProofService(cfg.Identity.ProofSecret, cfg.Identity.ProofTTL)
	resolver := address.NewGeoResolver(cfg.Geocode.BaseURL, locatorFromEnv())

	handlers := api.NewHandlers(catalogClient, sessions, profiles, proofs, resolver)
	server := &http.Server{
		Addr:    cfg.App.HTTPAddr,
		Handler: api.NewRouter(handlers),
	}

	go func() {
		log.Printf("[API] Listening on %s", cfg.App.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}
	cancel()
}

// locatorFromEnv reads a fixed device position from SNAPSHOP_LAT/SNAPSHOP_LON.
// Without one, address prefill is skipped and checkout falls back to manual
// entry.
func locatorFromEnv() address.Locator {
	return func(ctx context.Context) (float64, float64, bool) {
		lat, err1 := strconv.ParseFloat(os.Getenv("SNAPSHOP_LAT"), 64)
		lon, err2 := strconv.ParseFloat(os.Getenv("SNAPSHOP_LON"), 64)
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return lat, lon, true
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
