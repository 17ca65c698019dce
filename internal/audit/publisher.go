package audit

import (
	"context"
	"log/slog"

	"seedfund/pkg/requestcontext"
)

// Publisher stamps and appends audit events. Append failures are logged, not
// propagated: the audit trail must never fail a funding operation that has
// already been authorized.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "failed to append audit event",
			"action", string(event.Action),
			"error", err,
		)
	}
}
