// Package events adapts the ledger event feed to typed form events: a live
// subscription and bounded historical queries sharing one decoder.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/louisbranch/formledger/internal/ledger"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
	"github.com/louisbranch/formledger/internal/services/forms/contract"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
)

const (
	// DefaultRecentLimit bounds RecentEvents when no limit is given.
	DefaultRecentLimit = 50
	// FormEventsLimit is how far back FormEvents looks.
	FormEventsLimit = 100
)

// Stream reads form events from a ledger event source.
type Stream struct {
	source  ledger.EventSource
	binding contract.Binding
	decoder Decoder
	logger  *slog.Logger
}

// NewStream returns a stream over source for binding's package.
func NewStream(source ledger.EventSource, binding contract.Binding, logger *slog.Logger) *Stream {
	logger = resolveLogger(logger)
	return &Stream{
		source:  source,
		binding: binding,
		decoder: NewDecoder(binding, logger),
		logger:  logger,
	}
}

// Subscription is a live feed. Unsubscribe may be called any number of
// times.
type Subscription struct {
	ID     string
	once   sync.Once
	cancel func()
}

// Unsubscribe stops delivery.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Subscribe delivers decoded events of the given types, or all forms events,
// until ctx ends or the subscription is cancelled. Events for one form
// arrive in emission order.
func (s *Stream) Subscribe(ctx context.Context, handler func(domain.Event), types ...domain.EventType) (*Subscription, error) {
	if handler == nil {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "event handler is required")
	}
	id := uuid.NewString()
	logger := s.logger.With("subscription_id", id)

	stop, err := s.source.SubscribeEvents(ctx, s.binding.EventFilter(types...), func(raw ledger.RawEvent) {
		if ev, ok := s.decoder.Decode(raw); ok {
			handler(ev)
		}
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNetworkError, fmt.Sprintf("network error: subscribe: %v", err), err)
	}
	logger.Info("form events subscribed", "event", "forms_events_subscribed", "types", len(types))
	return &Subscription{ID: id, cancel: func() {
		stop()
		logger.Info("form events unsubscribed", "event", "forms_events_unsubscribed")
	}}, nil
}

// Query selects historical events.
type Query struct {
	Types      []domain.EventType
	Limit      int
	Descending bool
	Cursor     *ledger.EventID
}

// Page is one page of decoded history. Events dropped by the decoder still
// advance the cursor.
type Page struct {
	Events      []domain.Event
	NextCursor  *ledger.EventID
	HasNextPage bool
}

// QueryPage reads one page of history.
func (s *Stream) QueryPage(ctx context.Context, q Query) (Page, error) {
	page, err := s.source.QueryEvents(ctx, ledger.EventQuery{
		Filter:     s.binding.EventFilter(q.Types...),
		Cursor:     q.Cursor,
		Limit:      q.Limit,
		Descending: q.Descending,
	})
	if err != nil {
		return Page{}, apperrors.Wrap(apperrors.CodeNetworkError, fmt.Sprintf("network error: query events: %v", err), err)
	}
	return Page{
		Events:      s.decoder.DecodeAll(page.Events),
		NextCursor:  page.NextCursor,
		HasNextPage: page.HasNextPage,
	}, nil
}

// RecentEvents returns the latest forms events, newest first. A limit of
// zero or less uses DefaultRecentLimit.
func (s *Stream) RecentEvents(ctx context.Context, limit int, types ...domain.EventType) ([]domain.Event, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	page, err := s.QueryPage(ctx, Query{Types: types, Limit: limit, Descending: true})
	if err != nil {
		return nil, err
	}
	return page.Events, nil
}

// FormEvents returns the events concerning formID among the latest
// FormEventsLimit forms events, newest first.
func (s *Stream) FormEvents(ctx context.Context, formID string, types ...domain.EventType) ([]domain.Event, error) {
	page, err := s.QueryPage(ctx, Query{Types: types, Limit: FormEventsLimit, Descending: true})
	if err != nil {
		return nil, err
	}
	out := page.Events[:0]
	for _, ev := range page.Events {
		if IsEventRelatedToForm(ev, formID) {
			out = append(out, ev)
		}
	}
	return out, nil
}
