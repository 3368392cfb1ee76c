// Package notify pushes deal alerts to operators. Notifications fan out to
// every registered sender (Telegram, Discord) and are filtered by event type
// so a user can subscribe to deal alerts without the operational noise.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valoriste/valoriste/internal/domain"
)

// Event types the scanner and auth flow emit.
const (
	EventDealFound    = "deal_found"
	EventScanComplete = "scan_complete"
	EventAuthRequired = "auth_required"
	EventError        = "error"
)

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender.
	Name() string
}

// Notifier dispatches notifications to one or more Senders, forwarding only
// events whose type is in the allowed set.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders. Only events
// whose type appears in events are forwarded; an empty list allows all.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends a notification to all senders if the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyDeals formats and sends a deal alert for a completed scan. Scans with
// no deals are silent.
func (n *Notifier) NotifyDeals(ctx context.Context, result domain.ScanResult) error {
	if len(result.Deals) == 0 {
		return nil
	}
	title := fmt.Sprintf("%d deal(s) found for %s", len(result.Deals), result.UserID)
	return n.Notify(ctx, EventDealFound, title, FormatDeals(result.Deals, 5))
}

// dispatch fans out to every sender. Individual sender failures are collected
// into a combined error; one failing channel never blocks the others.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// FormatDeals renders the top deals as a compact message body, one line per
// deal, capped at max lines.
func FormatDeals(deals []domain.Deal, max int) string {
	var b strings.Builder
	for i, d := range deals {
		if i >= max {
			fmt.Fprintf(&b, "...and %d more", len(deals)-max)
			break
		}
		fmt.Fprintf(&b, "%s: $%.2f, profit $%.2f (%.0f%% ROI)\n%s\n",
			d.Listing.Title, d.Listing.Price, d.Profit, d.ROI, d.Listing.ItemURL)
	}
	return strings.TrimRight(b.String(), "\n")
}
