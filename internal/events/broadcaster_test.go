package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenbot/warden/internal/domain"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(4)

	first := b.Subscribe()
	second := b.Subscribe()
	defer b.Unsubscribe(first)
	defer b.Unsubscribe(second)

	event := domain.Event{Kind: domain.EventKindTrade, Account: "acct", Timestamp: time.Now()}
	b.Publish(event)

	assert.Equal(t, event.Kind, (<-first).Kind)
	assert.Equal(t, event.Kind, (<-second).Kind)
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	b := NewBroadcaster(1)

	slow := b.Subscribe()
	defer b.Unsubscribe(slow)

	// the buffer holds one event; the second publish must not block
	b.Publish(domain.Event{Kind: domain.EventKindDecision, Account: "first"})
	b.Publish(domain.Event{Kind: domain.EventKindDecision, Account: "second"})

	got := <-slow
	assert.Equal(t, "first", got.Account)
	select {
	case extra := <-slow:
		t.Fatalf("expected dropped event, got %+v", extra)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster(4)

	ch := b.Subscribe()
	b.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// a second unsubscribe of the same channel is a no-op
	b.Unsubscribe(ch)
}

func TestPublishAfterUnsubscribeDoesNotPanic(t *testing.T) {
	b := NewBroadcaster(4)

	ch := b.Subscribe()
	b.Unsubscribe(ch)

	require.NotPanics(t, func() {
		b.Publish(domain.Event{Kind: domain.EventKindStatus})
	})
}
