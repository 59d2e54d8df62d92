package notify

import (
	"context"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

// Multi fans a notification out to every notifier in order.
type Multi []ports.SessionNotifier

// OnTagAccepted implements ports.SessionNotifier.
func (m Multi) OnTagAccepted(ctx context.Context, o *domain.Outcome) {
	for _, n := range m {
		n.OnTagAccepted(ctx, o)
	}
}

// OnTagRejected implements ports.SessionNotifier.
func (m Multi) OnTagRejected(ctx context.Context, r *domain.Rejection) {
	for _, n := range m {
		n.OnTagRejected(ctx, r)
	}
}

// LogNotifier writes outcomes to the terminal log. Rejection causes are
// logged here and nowhere else.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// OnTagAccepted implements ports.SessionNotifier.
func (n *LogNotifier) OnTagAccepted(_ context.Context, o *domain.Outcome) {
	ev := n.log.Info().Str("session_id", o.SessionID.String())
	if o.Receipt != nil {
		ev = ev.Str("operation", string(o.Receipt.Kind)).
			Uint64("total", o.Receipt.Total).
			Uint64("balance", o.Receipt.Balance)
	}
	ev.Msg("notify: tag accepted")
}

// OnTagRejected implements ports.SessionNotifier.
func (n *LogNotifier) OnTagRejected(_ context.Context, r *domain.Rejection) {
	n.log.Warn().
		Err(r.Cause).
		Str("session_id", r.SessionID.String()).
		Str("operation", string(r.Operation)).
		Str("reason", string(r.Reason)).
		Bool("reread_required", r.RereadRequired).
		Msg("notify: tag rejected")
}
