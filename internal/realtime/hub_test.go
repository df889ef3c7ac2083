package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, c *SSEClient) SSEMessage {
	t.Helper()
	select {
	case msg := <-c.Outbound():
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubTenantIsolationAndOrdering(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	tenantA, tenantB := uuid.New(), uuid.New()

	clientA := hub.Subscribe(tenantA, Filter{})
	clientB := hub.Subscribe(tenantB, Filter{})

	hub.Broadcast(SSEMessage{TenantID: tenantA, Event: SSEEventBookingCreated})
	hub.Broadcast(SSEMessage{TenantID: tenantA, Event: SSEEventBookingConfirmed})
	hub.Broadcast(SSEMessage{Event: SSEEventBookingConfirmed})

	if got := recvMessage(t, clientA); got.Event != SSEEventBookingCreated {
		t.Fatalf("first event: want=%s got=%s", SSEEventBookingCreated, got.Event)
	}
	if got := recvMessage(t, clientA); got.Event != SSEEventBookingConfirmed {
		t.Fatalf("second event: want=%s got=%s", SSEEventBookingConfirmed, got.Event)
	}
	select {
	case msg := <-clientB.Outbound():
		t.Fatalf("tenant B received tenant A event %s", msg.Event)
	case msg := <-clientA.Outbound():
		t.Fatalf("message without tenant delivered: %s", msg.Event)
	default:
	}

	hub.Unsubscribe(clientA)
	hub.Unsubscribe(clientA)
	if n := hub.Subscribers(tenantA); n != 0 {
		t.Fatalf("subscribers after unsubscribe: want=0 got=%d", n)
	}
	if n := hub.Subscribers(tenantB); n != 1 {
		t.Fatalf("tenant B subscribers: want=1 got=%d", n)
	}
}

func TestFilterBySpaceAndEvent(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	tenantID, room, other := uuid.New(), uuid.New(), uuid.New()

	f, err := ParseFilter("BookingCreated, BookingCancelled", room.String())
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	c := hub.Subscribe(tenantID, f)

	hub.Broadcast(SSEMessage{TenantID: tenantID, SpaceID: &other, Event: SSEEventBookingCreated})
	hub.Broadcast(SSEMessage{TenantID: tenantID, SpaceID: &room, Event: SSEEventBookingConfirmed})
	hub.Broadcast(SSEMessage{TenantID: tenantID, Event: SSEEventPaymentRecorded})
	hub.Broadcast(SSEMessage{TenantID: tenantID, SpaceID: &room, Event: SSEEventBookingCancelled})

	if got := recvMessage(t, c); got.Event != SSEEventBookingCancelled || *got.SpaceID != room {
		t.Fatalf("unexpected message: %+v", got)
	}
	select {
	case msg := <-c.Outbound():
		t.Fatalf("filtered message delivered: %+v", msg)
	default:
	}

	if _, err := ParseFilter("Teleported", ""); err == nil {
		t.Fatalf("want error for unknown event")
	}
	if _, err := ParseFilter("", "room-1"); err == nil {
		t.Fatalf("want error for bad space id")
	}
}

func TestSlowClientDropsInsteadOfBlocking(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	tenantID := uuid.New()
	c := hub.Subscribe(tenantID, Filter{})
	for i := 0; i < clientBuffer+5; i++ {
		hub.Broadcast(SSEMessage{TenantID: tenantID, Event: SSEEventPaymentRecorded})
	}
	if c.Dropped() != 5 {
		t.Fatalf("dropped: want=5 got=%d", c.Dropped())
	}
}

func TestSSEHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	tenantID := uuid.New()
	client := hub.Subscribe(tenantID, Filter{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()

	id := uuid.New()
	hub.Broadcast(SSEMessage{ID: id, TenantID: tenantID, Event: SSEEventBookingCancelled, Data: map[string]any{"id": "b1"}})
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("ServeHTTP did not return after cancel")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: BookingCancelled") || !strings.Contains(body, "id: "+id.String()) {
		t.Fatalf("missing event lines in %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: want=text/event-stream got=%s", ct)
	}
}
