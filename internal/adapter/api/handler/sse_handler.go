package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/trackbeam/beacon/internal/domain"
)

// SSEMessage is one message on the live feed: either an emitted event
// envelope or a periodic emission-rate sample.
type SSEMessage struct {
	Type  string        `json:"type"` // "event" or "rate"
	Event *domain.Event `json:"event,omitempty"`
	Rate  float64       `json:"rate,omitempty"`
}

// SSEBroker fans emitted envelopes out to connected live-feed clients
// and publishes a once-a-second emission rate.
type SSEBroker struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[chan []byte]struct{}

	events chan domain.Event
}

// NewSSEBroker creates a new SSEBroker and starts its processing loop.
func NewSSEBroker(ctx context.Context, logger *slog.Logger) *SSEBroker {
	broker := &SSEBroker{
		logger:  logger,
		clients: make(map[chan []byte]struct{}),
		events:  make(chan domain.Event, 1000),
	}
	go broker.run(ctx)
	return broker
}

// ServeHTTP handles new client connections for the SSE stream.
func (b *SSEBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	messageChan := make(chan []byte, 16)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// ReportEvent is registered as an emitter observer. It never blocks the
// emission path: when the feed falls behind, envelopes are dropped from
// the feed only, never from the data layer.
func (b *SSEBroker) ReportEvent(event domain.Event) {
	select {
	case b.events <- event:
	default:
		b.logger.Warn("live feed buffer full, dropping envelope from feed")
	}
}

func (b *SSEBroker) addClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("live feed client connected")
}

func (b *SSEBroker) removeClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Info("live feed client disconnected")
	}
}

func (b *SSEBroker) broadcast(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Slow client, skip it for this message.
		}
	}
}

func (b *SSEBroker) run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var eventCount int
	lastTimestamp := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			eventCount++
			b.marshalAndBroadcast(SSEMessage{Type: "event", Event: &event})
		case <-ticker.C:
			now := time.Now()
			duration := now.Sub(lastTimestamp).Seconds()
			rate := 0.0
			if duration > 0 {
				rate = float64(eventCount) / duration
			}
			b.marshalAndBroadcast(SSEMessage{Type: "rate", Rate: rate})

			lastTimestamp = now
			eventCount = 0
		}
	}
}

func (b *SSEBroker) marshalAndBroadcast(msg SSEMessage) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal live feed message", "error", err)
		return
	}
	b.broadcast(jsonData)
}
