package server

import (
	"context"
	"sync"

	"github.com/df07/go-enhanced-svg/pkg/logging"
)

// consoleHub fans log messages out to every connected console client
type consoleHub struct {
	in chan logging.ConsoleMessage

	mu          sync.Mutex
	subscribers map[chan logging.ConsoleMessage]struct{}
}

func newConsoleHub(buffer int) *consoleHub {
	return &consoleHub{
		in:          make(chan logging.ConsoleMessage, buffer),
		subscribers: make(map[chan logging.ConsoleMessage]struct{}),
	}
}

// subscribe registers a client; the returned func unregisters it
func (h *consoleHub) subscribe(buffer int) (<-chan logging.ConsoleMessage, func()) {
	ch := make(chan logging.ConsoleMessage, buffer)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
		})
	}
}

// run forwards messages until ctx is done
func (h *consoleHub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.in:
			h.broadcast(msg)
		}
	}
}

func (h *consoleHub) broadcast(msg logging.ConsoleMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			// Slow client, skip (don't block)
		}
	}
}
