// Package sse implements a Server-Sent Events broker for real-time registry
// updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Entity change kinds accepted by PublishEntityEvent.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// GraphUpdated is the coalesced event telling views to re-materialize.
const GraphUpdated = "graph.updated"

// DefaultHeartbeat is how often idle streams receive a keep-alive comment.
const DefaultHeartbeat = 15 * time.Second

type entityEventReq struct {
	kind string
	id   string
}

// subscription is one client. An empty types set receives everything.
type subscription struct {
	ch    chan []byte
	types map[string]bool
}

func (s *subscription) wants(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable state
// (clients, event sequence, pending graph changes and the throttle timer).
// Public methods communicate with this loop through channels, so no mutexes
// are required.
//
// Entity events are delivered as they happen. graph.updated is throttled to
// one per interval; changes that arrive inside the interval are announced
// by a trailing graph.updated once it elapses, carrying how many entity
// events it covers.
type Broker struct {
	graphMin  time.Duration
	heartbeat time.Duration

	subscribeCh   chan *subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	entityEventCh chan entityEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given graph throttle interval.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		heartbeat:     DefaultHeartbeat,
		subscribeCh:   make(chan *subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		entityEventCh: make(chan entityEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]*subscription)
	var (
		seq       uint64
		lastGraph time.Time
		pending   int
		trailing  *time.Timer
		trailCh   <-chan time.Time
	)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for _, sub := range clients {
			if !sub.wants(event.Type) {
				continue
			}
			select {
			case sub.ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	flushGraph := func(now time.Time) {
		lastGraph = now
		broadcast(Event{Type: GraphUpdated, Data: map[string]int{"changes": pending}})
		pending = 0
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.entityEventCh:
			switch req.kind {
			case Created, Updated, Deleted:
				broadcast(Event{Type: "entity." + req.kind, Data: map[string]string{"id": req.id}})
			default:
				continue
			}
			pending++

			now := time.Now()
			if wait := b.graphMin - now.Sub(lastGraph); wait <= 0 {
				flushGraph(now)
			} else if trailCh == nil {
				trailing = time.NewTimer(wait)
				trailCh = trailing.C
			}

		case now := <-trailCh:
			trailCh = nil
			if pending > 0 {
				flushGraph(now)
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

// Subscribe adds a new client and returns its channel. With types, only
// events of those types are delivered.
func (b *Broker) Subscribe(types ...string) chan []byte {
	sub := &subscription{ch: make(chan []byte, 64)}
	if len(types) > 0 {
		sub.types = make(map[string]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	if b.closed.Load() {
		close(sub.ch)
		return sub.ch
	}

	select {
	case b.subscribeCh <- sub:
	case <-b.stopped:
		close(sub.ch)
	}

	return sub.ch
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

// PublishEntityEvent publishes an entity change and schedules a throttled
// graph.updated event.
func (b *Broker) PublishEntityEvent(kind, id string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.entityEventCh <- entityEventReq{kind: kind, id: id}:
	case <-b.stopped:
	}
}

// parseTypes reads the comma-separated types query parameter.
func parseTypes(r *http.Request) []string {
	var types []string
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// types query parameter restricts the stream, e.g. ?types=graph.updated.
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

	ch := b.Subscribe(parseTypes(r)...)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(b.heartbeat)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
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
