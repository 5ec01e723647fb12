package tracking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestDispatcher_DeliversEvent(t *testing.T) {
	var mu sync.Mutex
	var received []Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var ev Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, zerolog.Nop())
	d.Start()

	ev := NewEvent("app-1", "user-1", EventSessionStarted)
	ev.SessionID = "sess-1"
	ev.Properties = map[string]any{"onboardingId": "ob-1"}
	d.Dispatch(ev)

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("received %d events, want 1", len(received))
	}
	got := received[0]
	if got.EventName != EventSessionStarted || got.SessionID != "sess-1" {
		t.Errorf("unexpected event: %+v", got)
	}
	if got.EventID == "" {
		t.Error("event id not generated")
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	var mu sync.Mutex
	count := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		mu.Unlock()
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, zerolog.Nop())
	for i := 0; i < 5; i++ {
		d.Dispatch(NewEvent("app-1", "user-1", EventScreenViewed))
	}
	// Worker starts after the queue is populated; Close must still drain.
	d.Start()
	_ = d.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Errorf("delivered %d events, want 5", count)
	}
}

func TestDispatcher_CloseIdempotent(t *testing.T) {
	d := NewDispatcher("", zerolog.Nop())
	d.Start()
	if err := d.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	// Dispatch after close must not panic on the closed channel.
	d.Dispatch(NewEvent("app-1", "user-1", EventSessionAbandoned))
}

func TestDispatcher_QueueFullDrops(t *testing.T) {
	dropped := 0
	// Never started: the queue only fills.
	d := NewDispatcher("http://localhost:0", zerolog.Nop(), WithDropCounter(func() { dropped++ }))
	for i := 0; i < queueSize+10; i++ {
		d.Dispatch(NewEvent("app-1", "user-1", EventScreenViewed))
	}
	if dropped != 10 {
		t.Errorf("dropped %d events, want 10", dropped)
	}
}

func TestDispatcher_FailedDeliveryIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no thanks", http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewDispatcher(srv.URL, zerolog.Nop())
	d.Start()
	d.Dispatch(NewEvent("app-1", "user-1", EventOnboardingCompleted))
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDispatcher_EmptyEndpointDiscards(t *testing.T) {
	d := NewDispatcher("", zerolog.Nop())
	d.Start()
	d.Dispatch(NewEvent("app-1", "user-1", EventSessionStarted))
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
