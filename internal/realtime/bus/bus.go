package bus

import (
	"context"
	"sync"

	"github.com/yungbote/deskbase-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// localBus delivers messages in-process. Used when no redis is configured,
// which limits fan-out to a single API instance.
type localBus struct {
	mu        sync.RWMutex
	listeners []func(m realtime.SSEMessage)
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	ls := append([]func(realtime.SSEMessage){}, b.listeners...)
	b.mu.RUnlock()
	for _, fn := range ls {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return nil
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
