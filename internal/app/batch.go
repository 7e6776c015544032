package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avlasov/Parley/internal/domain"
	"github.com/avlasov/Parley/internal/protocol"
)

// Batcher coalesces accepted messages and periodically flushes them as a
// single "messages" envelope per room, alongside the immediate per-message
// broadcast. Clients reconcile the two paths by message_id.
type Batcher struct {
	interval time.Duration
	size     int
	flush    func(roomID domain.RoomID, msgs []protocol.Message)

	mu    sync.Mutex
	queue []*domain.Message
}

func NewBatcher(interval time.Duration, size int, flush func(domain.RoomID, []protocol.Message)) *Batcher {
	return &Batcher{
		interval: interval,
		size:     size,
		flush:    flush,
	}
}

func (b *Batcher) Enqueue(m *domain.Message) {
	b.mu.Lock()
	b.queue = append(b.queue, m)
	b.mu.Unlock()
}

// Run drains the queue every interval until ctx is cancelled.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.batcher").Msg("batcher stopped")
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}

// Flush sends up to size queued messages, grouped by room. Exported so
// tests can drive the batcher without the ticker.
func (b *Batcher) Flush() {
	b.mu.Lock()
	n := len(b.queue)
	if n == 0 {
		b.mu.Unlock()
		return
	}
	if n > b.size {
		n = b.size
	}
	pending := b.queue[:n]
	b.queue = b.queue[n:]
	b.mu.Unlock()

	byRoom := make(map[domain.RoomID][]protocol.Message)
	for _, m := range pending {
		env := protocol.NewMessage(m)
		env.Type = ""
		byRoom[m.RoomID] = append(byRoom[m.RoomID], env)
	}
	for roomID, msgs := range byRoom {
		b.flush(roomID, msgs)
	}
}
