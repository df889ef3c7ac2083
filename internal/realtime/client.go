package realtime

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Filter narrows a stream. The zero value passes every event of the tenant.
type Filter struct {
	Events  map[SSEEvent]bool
	SpaceID *uuid.UUID
}

// ParseFilter reads the comma separated event list and optional space id of
// a stream request.
func ParseFilter(events, spaceID string) (Filter, error) {
	var f Filter
	for _, raw := range strings.Split(events, ",") {
		ev := SSEEvent(strings.TrimSpace(raw))
		if ev == "" {
			continue
		}
		if !knownEvents[ev] {
			return Filter{}, fmt.Errorf("unknown event %q", ev)
		}
		if f.Events == nil {
			f.Events = map[SSEEvent]bool{}
		}
		f.Events[ev] = true
	}
	if s := strings.TrimSpace(spaceID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid space id: %w", err)
		}
		f.SpaceID = &id
	}
	return f, nil
}

func (f Filter) Match(m SSEMessage) bool {
	if len(f.Events) > 0 && !f.Events[m.Event] {
		return false
	}
	if f.SpaceID != nil && (m.SpaceID == nil || *m.SpaceID != *f.SpaceID) {
		return false
	}
	return true
}

type SSEClient struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	filter  Filter
	out     chan SSEMessage
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

func (c *SSEClient) Outbound() <-chan SSEMessage { return c.out }

// Dropped counts messages discarded because the client fell behind.
func (c *SSEClient) Dropped() int64 { return c.dropped.Load() }

func (c *SSEClient) offer(m SSEMessage) bool {
	if !c.filter.Match(m) {
		return true
	}
	select {
	case c.out <- m:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}
