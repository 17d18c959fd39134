package badge

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/example/snapshop/internal/infrastructure/kafka"
)

// CountChanged carries the cart line count for one user. Only the count
// travels over the wire, never the cart contents.
type CountChanged struct {
	UserID    string    `json:"user_id"`
	Count     int       `json:"count"`
	ChangedAt time.Time `json:"changed_at"`
}

// Publisher fans cart count changes out to Kafka so badge indicators in
// other sessions stay current.
type Publisher struct {
	producer *kafka.Producer
}

func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{producer: producer}
}

// Publish emits the user's current cart line count. Badge delivery is best
// effort; a publish failure is logged and dropped.
func (p *Publisher) Publish(ctx context.Context, userID string, count int) {
	event := CountChanged{
		UserID:    userID,
		Count:     count,
		ChangedAt: time.Now(),
	}
	if err := p.producer.Publish(ctx, userID, event); err != nil {
		log.Printf("[Badge] Failed to publish count for %s: %v", userID, err)
	}
}

// Listener consumes count events and keeps the latest count per user, with
// subscriber callbacks for reactive badge rendering.
type Listener struct {
	mu          sync.RWMutex
	counts      map[string]int
	subscribers []func(userID string, count int)
}

func NewListener() *Listener {
	return &Listener{counts: make(map[string]int)}
}

// HandleMessage is a kafka.MessageHandler.
func (l *Listener) HandleMessage(ctx context.Context, key, value []byte) error {
	var event CountChanged
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Badge] Failed to unmarshal count event: %v", err)
		return err
	}

	l.mu.Lock()
	l.counts[event.UserID] = event.Count
	subscribers := make([]func(string, int), len(l.subscribers))
	copy(subscribers, l.subscribers)
	l.mu.Unlock()

	for _, fn := range subscribers {
		fn(event.UserID, event.Count)
	}
	return nil
}

// Count returns the last seen cart line count for a user.
func (l *Listener) Count(userID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[userID]
}

// Subscribe registers a callback invoked on every count change.
func (l *Listener) Subscribe(fn func(userID string, count int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, fn)
}
