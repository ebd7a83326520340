package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vietddude/walletscore/internal/core/domain"
	"github.com/vietddude/walletscore/internal/metrics"
)

const (
	subscriberBuffer = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

// FeedEvent is one message of the live feed.
type FeedEvent struct {
	Transport domain.Transport          `json:"transport"`
	Result    *domain.WalletScoreResult `json:"result"`
}

// Feed fans scored results out to websocket subscribers. A subscriber that
// cannot keep up loses events rather than slowing producers down.
type Feed struct {
	mu       sync.Mutex
	subs     map[chan []byte]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		subs: make(map[chan []byte]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: slog.Default().With("component", "feed"),
	}
}

// Subscribe registers a new subscriber channel.
func (f *Feed) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	n := len(f.subs)
	f.mu.Unlock()
	metrics.LiveSubscribers.Set(float64(n))
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (f *Feed) Unsubscribe(ch chan []byte) {
	f.mu.Lock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
	n := len(f.subs)
	f.mu.Unlock()
	metrics.LiveSubscribers.Set(float64(n))
}

// Subscribers returns the number of connected subscribers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Broadcast sends a result to every subscriber without blocking.
func (f *Feed) Broadcast(transport domain.Transport, result *domain.WalletScoreResult) {
	msg, err := json.Marshal(FeedEvent{Transport: transport, Result: result})
	if err != nil {
		f.log.Error("Failed to encode feed event", "error", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- msg:
		default:
			f.log.Debug("Dropping feed event for slow subscriber")
		}
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := f.Subscribe()
	defer f.Unsubscribe(ch)

	// Reader: handles pongs and notices disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
