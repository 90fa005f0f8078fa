// Package notify delivers outbound operator notifications. Delivery is
// best-effort and rate-limited per account and kind so an unattended
// account cannot flood its operator.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind classifies a notification for rate limiting.
type Kind string

const (
	// KindFailure covers cycle errors and kill-switch halts.
	KindFailure Kind = "failure"
	// KindPositionSize fires when a position reaches its cap.
	KindPositionSize Kind = "position_size"
	// KindTrade announces an executed trade. Not rate-limited.
	KindTrade Kind = "trade"
)

// cooldowns per notification kind. A zero cooldown means unlimited.
var cooldowns = map[Kind]time.Duration{
	KindFailure:      time.Hour,
	KindPositionSize: 24 * time.Hour,
	KindTrade:        0,
}

// Sender delivers one message to the operator (email, webhook, chat).
type Sender interface {
	Send(ctx context.Context, account, subject, body string) error
}

// Notifier rate-limits and dispatches notifications. Send failures are
// swallowed and logged; a broken notification channel must never affect
// the trading cycle.
type Notifier struct {
	sender Sender
	logger *zap.Logger

	mu       sync.Mutex
	lastSent map[string]map[Kind]time.Time

	now func() time.Time
}

// NewNotifier creates a Notifier around the given sender. A nil sender
// disables delivery entirely.
func NewNotifier(sender Sender, logger *zap.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		logger:   logger,
		lastSent: make(map[string]map[Kind]time.Time),
		now:      time.Now,
	}
}

// Notify delivers a message if the per-account cooldown for its kind
// has elapsed. Returns whether the message was actually sent.
func (n *Notifier) Notify(ctx context.Context, account string, kind Kind, subject, body string) bool {
	if n.sender == nil {
		return false
	}

	if !n.claim(account, kind) {
		n.logger.Debug("notification suppressed by cooldown",
			zap.String("account", account),
			zap.String("kind", string(kind)))
		return false
	}

	if err := n.sender.Send(ctx, account, subject, body); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("account", account),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return false
	}
	return true
}

// claim records a send attempt if the cooldown allows one. The slot is
// consumed even if delivery later fails, matching the intent of rate
// limiting attempts rather than successes.
func (n *Notifier) claim(account string, kind Kind) bool {
	cooldown := cooldowns[kind]

	n.mu.Lock()
	defer n.mu.Unlock()

	perAccount, ok := n.lastSent[account]
	if !ok {
		perAccount = make(map[Kind]time.Time)
		n.lastSent[account] = perAccount
	}

	now := n.now()
	if cooldown > 0 {
		if last, ok := perAccount[kind]; ok && now.Sub(last) < cooldown {
			return false
		}
	}

	perAccount[kind] = now
	return true
}
