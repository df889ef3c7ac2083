package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

const clientBuffer = 32

// SSEHub fans bus messages out to the open streams of each tenant.
type SSEHub struct {
	mu        sync.RWMutex
	log       *logger.Logger
	tenants   map[uuid.UUID]map[*SSEClient]struct{}
	heartbeat time.Duration
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:       log.With("component", "SSEHub"),
		tenants:   make(map[uuid.UUID]map[*SSEClient]struct{}),
		heartbeat: 15 * time.Second,
	}
}

func (hub *SSEHub) Subscribe(tenantID uuid.UUID, f Filter) *SSEClient {
	c := &SSEClient{
		ID:       uuid.New(),
		TenantID: tenantID,
		filter:   f,
		out:      make(chan SSEMessage, clientBuffer),
		done:     make(chan struct{}),
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	set, ok := hub.tenants[tenantID]
	if !ok {
		set = make(map[*SSEClient]struct{})
		hub.tenants[tenantID] = set
	}
	set[c] = struct{}{}
	return c
}

// Unsubscribe detaches c and ends its stream. Safe to call more than once.
func (hub *SSEHub) Unsubscribe(c *SSEClient) {
	hub.mu.Lock()
	if set, ok := hub.tenants[c.TenantID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(hub.tenants, c.TenantID)
		}
	}
	hub.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

func (hub *SSEHub) Subscribers(tenantID uuid.UUID) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.tenants[tenantID])
}

func (hub *SSEHub) Broadcast(msg SSEMessage) {
	if msg.TenantID == uuid.Nil {
		return
	}
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.tenants[msg.TenantID] {
		if !c.offer(msg) {
			hub.log.Warn("SSE client behind, message dropped", "client_id", c.ID, "event", msg.Event)
		}
	}
}

// ServeHTTP streams c's messages as server-sent events until the request
// ends or the client is unsubscribed.
func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, c *SSEClient) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	_, _ = fmt.Fprintf(w, "retry: 5000\n\n")
	flusher.Flush()

	tick := time.NewTicker(hub.heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-tick.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
		case msg := <-c.out:
			raw, err := json.Marshal(msg)
			if err != nil {
				hub.log.Warn("SSE marshal failed", "event", msg.Event, "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Event, raw)
		}
		flusher.Flush()
	}
}
