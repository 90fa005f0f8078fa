package notify

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type recordingSender struct {
	err      error
	subjects []string
}

func (s *recordingSender) Send(_ context.Context, _ string, subject, _ string) error {
	s.subjects = append(s.subjects, subject)
	return s.err
}

type testClock struct {
	current time.Time
}

func (c *testClock) now() time.Time {
	return c.current
}

func (c *testClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestNotifier(sender Sender) (*Notifier, *testClock) {
	n := NewNotifier(sender, zap.NewNop())
	clock := &testClock{current: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	n.now = clock.now
	return n, clock
}

func TestNotifyNilSenderIsDisabled(t *testing.T) {
	n, _ := newTestNotifier(nil)

	assert.False(t, n.Notify(context.Background(), "acct", KindFailure, "subject", "body"))
}

func TestNotifyFailureCooldownSuppressesRepeats(t *testing.T) {
	sender := &recordingSender{}
	n, clock := newTestNotifier(sender)

	ctx := context.Background()
	assert.True(t, n.Notify(ctx, "acct", KindFailure, "first", "body"))
	assert.False(t, n.Notify(ctx, "acct", KindFailure, "second", "body"))

	clock.advance(59 * time.Minute)
	assert.False(t, n.Notify(ctx, "acct", KindFailure, "third", "body"))

	clock.advance(2 * time.Minute)
	assert.True(t, n.Notify(ctx, "acct", KindFailure, "fourth", "body"))

	assert.Equal(t, []string{"first", "fourth"}, sender.subjects)
}

func TestNotifyCooldownIsPerAccountAndKind(t *testing.T) {
	sender := &recordingSender{}
	n, _ := newTestNotifier(sender)

	ctx := context.Background()
	assert.True(t, n.Notify(ctx, "acct", KindFailure, "a-failure", "body"))
	assert.True(t, n.Notify(ctx, "other", KindFailure, "b-failure", "body"))
	assert.True(t, n.Notify(ctx, "acct", KindPositionSize, "a-size", "body"))
	assert.False(t, n.Notify(ctx, "acct", KindFailure, "a-repeat", "body"))
}

func TestNotifyTradeKindIsUnlimited(t *testing.T) {
	sender := &recordingSender{}
	n, _ := newTestNotifier(sender)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.True(t, n.Notify(ctx, "acct", KindTrade, "trade", "body"))
	}
	assert.Len(t, sender.subjects, 5)
}

func TestNotifyFailedDeliveryStillConsumesSlot(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	n, _ := newTestNotifier(sender)

	ctx := context.Background()
	assert.False(t, n.Notify(ctx, "acct", KindFailure, "first", "body"))
	// the attempt claimed the cooldown slot even though delivery failed
	assert.False(t, n.Notify(ctx, "acct", KindFailure, "second", "body"))
	assert.Equal(t, []string{"first"}, sender.subjects)
}
