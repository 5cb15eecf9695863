// Package sse implements a Server-Sent Events broker for conversion status updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/starford/hexokit/internal/models"
)

// DefaultKeepAlive is the interval of comment frames that keep idle
// connections open through proxies.
const DefaultKeepAlive = 15 * time.Second

// Event types.
const (
	TypeStatus   = "conversion.status"
	TypeFinished = "conversion.finished"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Status is the payload of a status event.
type Status struct {
	RunID      string           `json:"run_id,omitempty"`
	Path       string           `json:"path,omitempty"`
	Name       string           `json:"name,omitempty"`
	Status     models.RunStatus `json:"status"`
	Total      int              `json:"total"`
	Failed     int              `json:"failed"`
	DurationMS int64            `json:"duration_ms"`
}

// StatusOf summarises a run for the status indicator.
func StatusOf(run *models.Run) Status {
	return Status{
		RunID:      run.ID,
		Path:       run.Path,
		Name:       run.Name,
		Status:     run.Status,
		Total:      len(run.Matches),
		Failed:     run.Failed(),
		DurationMS: run.Duration().Milliseconds(),
	}
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients + latest status). Public methods communicate with this loop
// through channels, so no mutexes are required.
type Broker struct {
	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	statusCh      chan Status
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool

	keepAlive time.Duration
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithKeepAlive sets the keep-alive interval. Zero disables it.
func WithKeepAlive(d time.Duration) BrokerOption {
	return func(b *Broker) { b.keepAlive = d }
}

// NewBroker creates a new SSE broker and starts its event loop.
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		statusCh:      make(chan Status, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
		keepAlive:     DefaultKeepAlive,
	}
	for _, o := range opts {
		o(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var last []byte // latest status frame, replayed to new clients
	var seq uint64

	broadcast := func(event Event) []byte {
		seq++
		raw, err := encode(seq, event)
		if err != nil {
			return nil
		}
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
		return raw
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			if last != nil {
				ch <- last
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case st := <-b.statusCh:
			if raw := broadcast(Event{Type: TypeStatus, Data: st}); raw != nil {
				last = raw
			}
			if st.Status.Finished() {
				broadcast(Event{Type: TypeFinished, Data: st})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishStatus broadcasts a status change. Terminal statuses are
// followed by a conversion.finished event.
func (b *Broker) PublishStatus(st Status) {
	if b.closed.Load() {
		return
	}
	select {
	case b.statusCh <- st:
	case <-b.stopped:
	}
}

// PublishRun is PublishStatus for a run.
func (b *Broker) PublishRun(run *models.Run) {
	b.PublishStatus(StatusOf(run))
}

func encode(id uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\nid: %d\ndata: %s\n\n", event.Type, id, payload)), nil
}

var keepAliveFrame = []byte(": keep-alive\n\n")

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write(keepAliveFrame)
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
