package audit

import (
	"context"
	"errors"
	"fmt"
)

// ChannelStore queues events for a Worker. Append never blocks a request
// path: a full inbox drops the event with an error the Publisher logs.
type ChannelStore struct {
	inbox chan<- Event
}

func NewChannelStore(inbox chan<- Event) *ChannelStore {
	return &ChannelStore{inbox: inbox}
}

func (s *ChannelStore) Append(ctx context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("audit inbox full, dropping %s", event.Action)
	}
}

// MultiStore fans one append out to every configured sink.
type MultiStore []Store

func (m MultiStore) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, store := range m {
		if err := store.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
