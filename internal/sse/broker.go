// Package sse streams graph mutations to browsers as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// GraphUpdated is sent, throttled, after any change so clients can refetch.
const GraphUpdated = "graph.updated"

const (
	clientBuffer = 64
	historySize  = 128
	keepAlive    = 15 * time.Second
)

// Event is one mutation notice. ID is assigned on publish when empty.
type Event struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscription selects which frames a client receives.
type Subscription struct {
	// Types holds event type prefixes ("edge.", "import."); empty receives all.
	Types []string
	// LastEventID replays the retained frames published after that id.
	LastEventID string
}

func (s Subscription) wants(eventType string) bool {
	if len(s.Types) == 0 {
		return true
	}
	for _, p := range s.Types {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}
	return false
}

type frame struct {
	id    string
	typ   string
	bytes []byte
}

type subscribeReq struct {
	ch  chan []byte
	sub Subscription
}

type publication struct {
	event  Event
	change bool
}

// Broker fans graph events out to SSE clients.
//
// One goroutine owns the client table, the replay ring and the graph.updated
// throttle; every public method talks to it over channels.
type Broker struct {
	graphMin time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan chan []byte
	publishCh     chan publication
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that emits graph.updated at most once per graphThrottle.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan publication, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.loop()
	return b
}

func encode(event Event) (frame, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return frame{}, false
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	raw := fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, payload)
	return frame{id: event.ID, typ: event.Type, bytes: []byte(raw)}, true
}

// replayAfter returns the retained frames newer than id, or nil when id is
// unknown (evicted or never seen).
func replayAfter(history []frame, id string) []frame {
	if id == "" {
		return nil
	}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].id == id {
			return history[i+1:]
		}
	}
	return nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]Subscription)
	history := make([]frame, 0, historySize)
	var lastGraph time.Time

	send := func(ch chan []byte, f frame) {
		select {
		case ch <- f.bytes:
		default:
			// slow client, drop
		}
	}
	emit := func(event Event) {
		f, ok := encode(event)
		if !ok {
			return
		}
		if len(history) == historySize {
			copy(history, history[1:])
			history = history[:historySize-1]
		}
		history = append(history, f)
		for ch, sub := range clients {
			if sub.wants(f.typ) {
				send(ch, f)
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case req := <-b.subscribeCh:
			clients[req.ch] = req.sub
			for _, f := range replayAfter(history, req.sub.LastEventID) {
				if req.sub.wants(f.typ) {
					send(req.ch, f)
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case p := <-b.publishCh:
			emit(p.event)
			if !p.change {
				continue
			}
			if now := time.Now(); now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				emit(Event{Type: GraphUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close.
func (b *Broker) Subscribe(sub Subscription) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscribeReq{ch: ch, sub: sub}:
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

func (b *Broker) publish(p publication) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- p:
	case <-b.stopped:
	}
}

// Publish sends an event without touching the graph.updated throttle.
func (b *Broker) Publish(event Event) {
	b.publish(publication{event: event})
}

// PublishChange sends a mutation event followed, at most once per throttle
// window, by graph.updated.
func (b *Broker) PublishChange(eventType string, data any) {
	b.publish(publication{event: Event{Type: eventType, Data: data}, change: true})
}

// ServeHTTP streams events (GET /api/events). The types query parameter takes
// comma-separated prefixes; Last-Event-ID resumes from the replay ring.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := Subscription{LastEventID: r.Header.Get("Last-Event-ID")}
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			sub.Types = append(sub.Types, t)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(sub)
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
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
