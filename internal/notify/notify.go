// Package notify delivers confirmation and cancellation messages.
//
// The engine treats notification as fire-and-forget: nothing here ever
// returns an error, and a lost message must never fail a registration.
package notify

import (
	"context"
	"log/slog"

	"github.com/riverhall/attendance/internal/service"
)

// LogNotifier writes each notification to the log. It stands in for the
// real mail sender in development and is the delivery record either way.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

// Notify logs the outbound message.
func (n *LogNotifier) Notify(_ context.Context, userID string, kind service.NotificationKind, payload map[string]any) {
	n.log.Info("notify", "user_id", userID, "kind", string(kind), "payload", payload)
}
