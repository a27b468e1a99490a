package ledgertest

import (
	"sync"

	"github.com/louisbranch/formledger/internal/ledger"
)

// subscription delivers events in emission order from its own goroutine so
// handlers may call back into the ledger.
type subscription struct {
	filter  ledger.EventFilter
	handler func(ledger.RawEvent)

	mu    sync.Mutex
	queue []ledger.RawEvent
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newSubscription(filter ledger.EventFilter, handler func(ledger.RawEvent)) *subscription {
	s := &subscription{
		filter:  filter,
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *subscription) push(events []ledger.RawEvent) {
	s.mu.Lock()
	for _, ev := range events {
		if s.filter.Matches(ev) {
			s.queue = append(s.queue, ev)
		}
	}
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()
		for _, ev := range batch {
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(ev)
		}
	}
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.done) })
}
