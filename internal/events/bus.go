package events

import (
	"sync"

	"github.com/punkmap/questledger/internal/model"
	"github.com/punkmap/questledger/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus fans ledger events out to in-process subscribers. Publishing never
// blocks: a subscriber that falls behind loses events rather than stalling
// the ledger.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan model.Event
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[string]chan model.Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
// The channel is closed on Unsubscribe.
func (b *Bus) Subscribe() (string, <-chan model.Event) {
	id := uuid.NewString()
	ch := make(chan model.Event, b.buffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
	}
}

// Publish assigns the event an id if missing and delivers it to every
// subscriber that has buffer room. The producer stamps At from whatever
// clock governs its semantics.
func (b *Bus) Publish(ev model.Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			logger.Logger().Warn("dropping event for slow subscriber",
				zap.String("subscriber", id),
				zap.String("operation", ev.Operation),
				zap.String("quest_id", ev.QuestID))
		}
	}
}
