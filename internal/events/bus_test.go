package events

import (
	"testing"
	"time"

	"github.com/punkmap/questledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(4)

	id1, ch1 := bus.Subscribe()
	id2, ch2 := bus.Subscribe()
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bus.Publish(model.Event{Operation: model.EventQuestCreated, QuestID: "42", Actor: "lord1", At: at})

	for _, ch := range []<-chan model.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, model.EventQuestCreated, ev.Operation)
			assert.Equal(t, "42", ev.QuestID)
			assert.NotEmpty(t, ev.ID)
			assert.Equal(t, at, ev.At)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus(1)

	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	bus.Publish(model.Event{Operation: model.EventProofSubmitted, QuestID: "1"})
	bus.Publish(model.Event{Operation: model.EventProofSubmitted, QuestID: "2"})

	ev := <-ch
	require.Equal(t, "1", ev.QuestID)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected second event: %+v", ev)
	default:
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(1)

	id, ch := bus.Subscribe()
	bus.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(model.Event{Operation: model.EventQuestCreated, QuestID: "3"})
}
