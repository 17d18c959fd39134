package status

import (
	"sync"
	"time"
)

// DefaultClearDelay is how long a flashed message stays visible.
const DefaultClearDelay = 2 * time.Second

// Board holds a single transient status message and notifies subscribers on
// every change. It replaces the UI-framework observable the screens used to
// read.
type Board struct {
	mu        sync.Mutex
	message   string
	delay     time.Duration
	timer     *time.Timer
	listeners []func(string)
}

func NewBoard(delay time.Duration) *Board {
	if delay <= 0 {
		delay = DefaultClearDelay
	}
	return &Board{delay: delay}
}

// Flash sets the message and clears it after the board's delay. A newer
// message restarts the countdown.
func (b *Board) Flash(message string) {
	b.mu.Lock()
	b.message = message
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.clear)
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(message)
	}
}

// Set sets the message without scheduling a clear. Used for failures that
// should stay visible until the next action.
func (b *Board) Set(message string) {
	b.mu.Lock()
	b.message = message
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(message)
	}
}

// Message returns the current status message, empty when cleared.
func (b *Board) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}

// Subscribe registers a listener invoked with the new message after every
// change, including the auto-clear.
func (b *Board) Subscribe(fn func(string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

func (b *Board) clear() {
	b.mu.Lock()
	b.message = ""
	b.timer = nil
	listeners := b.snapshotListeners()
	b.mu.Unlock()

	for _, fn := range listeners {
		fn("")
	}
}

func (b *Board) snapshotListeners() []func(string) {
	out := make([]func(string), len(b.listeners))
	copy(out, b.listeners)
	return out
}
