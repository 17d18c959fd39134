package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/snapshop/internal/badge"
	"github.com/example/snapshop/internal/infrastructure/kafka"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "snapshop-badge")
	consumerGroup := "badge-notifier"

	log.Println("[Badge] Cart badge notifier")
	log.Printf("[Badge] Kafka: %v", kafkaBrokers)
	log.Printf("[Badge] Topic: %s", kafkaTopic)
	log.Printf("[Badge] Group: %s", consumerGroup)

	listener := badge.NewListener()
	listener.Subscribe(func(userID string, count int) {
		log.Printf("[Badge] User %s cart count is now %d", userID, count)
	})

	consumer := kafka.NewConsumer(kafkaBrokers, kafkaTopic, consumerGroup)
	defer consumer.Close()

	go func() {
		log.Println("[Badge] Starting consumer...")
		if err := consumer.Consume(ctx, listener.HandleMessage); err != nil {
			log.Printf("[Badge] Consumer error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Badge] Shutting down...")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
