package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// drain collects the frames buffered on ch after a short settle.
func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func frameID(frame string) string {
	line := strings.SplitN(frame, "\n", 2)[0]
	return strings.TrimPrefix(line, "id: ")
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ch := b.Subscribe(Subscription{})
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	b.Unsubscribe(ch)
	if n := b.ClientCount(); n != 0 {
		t.Fatalf("clients after unsubscribe = %d, want 0", n)
	}
}

func TestPublishFrame(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(Subscription{})
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "vertex.created", Data: map[string]string{"text": "kettle"}})

	frames := drain(ch)
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(frames))
	}
	f := frames[0]
	if !strings.HasPrefix(f, "id: ") || frameID(f) == "" {
		t.Errorf("missing id in %q", f)
	}
	if !strings.Contains(f, "event: vertex.created\n") || !strings.Contains(f, `data: {"text":"kettle"}`) {
		t.Errorf("frame = %q", f)
	}
}

func TestPublishChangeThrottlesGraphUpdated(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe(Subscription{})
	defer b.Unsubscribe(ch)

	b.PublishChange("vertex.created", map[string]string{"text": "a"})
	b.PublishChange("edge.created", map[string]string{"arrow": "then"})

	var graph, changes int
	ids := map[string]bool{}
	for _, f := range drain(ch) {
		ids[frameID(f)] = true
		if strings.Contains(f, "event: "+GraphUpdated+"\n") {
			graph++
		} else {
			changes++
		}
	}
	if changes != 2 || graph != 1 {
		t.Errorf("changes = %d graph = %d, want 2 and 1", changes, graph)
	}
	if len(ids) != 3 {
		t.Errorf("distinct ids = %d, want 3", len(ids))
	}
}

func TestSubscriptionTypeFilter(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe(Subscription{Types: []string{"import."}})
	defer b.Unsubscribe(ch)

	b.PublishChange("edge.created", nil)
	b.PublishChange("import.applied", map[string]string{"path": "tea.yaml"})

	frames := drain(ch)
	if len(frames) != 1 || !strings.Contains(frames[0], "event: import.applied") {
		t.Errorf("filtered frames = %q", frames)
	}
}

func TestReplayAfterLastEventID(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	first := b.Subscribe(Subscription{})
	b.Publish(Event{ID: "e1", Type: "vertex.created", Data: 1})
	b.Publish(Event{ID: "e2", Type: "edge.created", Data: 2})
	b.Publish(Event{ID: "e3", Type: "vertex.created", Data: 3})
	if got := len(drain(first)); got != 3 {
		t.Fatalf("live frames = %d, want 3", got)
	}
	b.Unsubscribe(first)

	resumed := b.Subscribe(Subscription{LastEventID: "e1", Types: []string{"vertex."}})
	defer b.Unsubscribe(resumed)
	frames := drain(resumed)
	if len(frames) != 1 || frameID(frames[0]) != "e3" {
		t.Errorf("replayed = %q, want only e3", frames)
	}

	unknown := b.Subscribe(Subscription{LastEventID: "gone"})
	defer b.Unsubscribe(unknown)
	if frames := drain(unknown); len(frames) != 0 {
		t.Errorf("unknown id replayed %d frames", len(frames))
	}
}

func TestReplayRingIsBounded(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	b.Publish(Event{ID: "oldest", Type: "t", Data: 0})
	for i := 0; i < historySize; i++ {
		b.Publish(Event{Type: "t", Data: i})
	}
	ch := b.Subscribe(Subscription{LastEventID: "oldest"})
	defer b.Unsubscribe(ch)
	if frames := drain(ch); len(frames) != 0 {
		t.Errorf("evicted id replayed %d frames", len(frames))
	}
}

func TestServeHTTP(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events?types=import.", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}

	b.PublishChange("vertex.created", nil)
	b.Publish(Event{Type: "import.applied", Data: map[string]string{"path": "kitchen.yaml"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: import.applied") {
		t.Errorf("body missing import event: %q", body)
	}
	if strings.Contains(body, "vertex.created") || strings.Contains(body, GraphUpdated) {
		t.Errorf("body carries filtered events: %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if n := b.ClientCount(); n != 0 {
		t.Errorf("client not cleaned up, count = %d", n)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe(Subscription{})
	defer b.Unsubscribe(ch)

	for i := 0; i < clientBuffer+10; i++ {
		b.Publish(Event{Type: "t", Data: i})
	}
	if got := len(drain(ch)); got != clientBuffer {
		t.Errorf("buffered = %d, want %d", got, clientBuffer)
	}
}

func TestClose(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe(Subscription{})

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("subscriber channel still open")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("clients after close = %d", n)
	}

	b.Close()
	b.Publish(Event{Type: "import.applied"})
	b.PublishChange("edge.created", nil)
	if ch := b.Subscribe(Subscription{}); ch == nil {
		t.Error("Subscribe after close returned nil")
	}
}
