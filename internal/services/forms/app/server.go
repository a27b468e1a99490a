// Package server wires the forms watcher runtime: a live event
// subscription feeding the activity journal, behind a gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/louisbranch/formledger/internal/services/forms/domain"
	"github.com/louisbranch/formledger/internal/services/forms/events"
	"github.com/louisbranch/formledger/internal/services/forms/storage"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the health-checked service name of the watcher.
const HealthService = "formledger.forms.Watcher"

const (
	defaultBacklog  = 256
	catchUpPageSize = 50
)

// Stats counts what the watcher has processed since it started.
type Stats struct {
	Observed   int64
	Journaled  int64
	Duplicates int64
	Failed     int64
}

// Option configures a Server.
type Option func(*Server)

// WithJournal records every observed event in journal. Without a journal the
// watcher only reports events.
func WithJournal(journal storage.JournalStore) Option {
	return func(s *Server) { s.journal = journal }
}

// WithObserver calls fn for every event after it has been journaled. fn
// runs on the watcher's worker goroutine.
func WithObserver(fn func(domain.Event)) Option {
	return func(s *Server) { s.observer = fn }
}

// WithTypes restricts the subscription to the given event types.
func WithTypes(types ...domain.EventType) Option {
	return func(s *Server) { s.types = append([]domain.EventType(nil), types...) }
}

// Server hosts the watcher loop and its health endpoint.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	stream     *events.Stream
	journal    storage.JournalStore
	observer   func(domain.Event)
	types      []domain.EventType

	backlog chan domain.Event

	observed   atomic.Int64
	journaled  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64

	closeOnce sync.Once
}

// New creates a watcher for stream with its health endpoint on port.
func New(port int, stream *events.Stream, opts ...Option) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port), stream, opts...)
}

// NewWithAddr creates a watcher with its health endpoint on addr.
func NewWithAddr(addr string, stream *events.Stream, opts ...Option) (*Server, error) {
	if stream == nil {
		return nil, errors.New("event stream is required")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	s := &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		stream:     stream,
		backlog:    make(chan domain.Event, defaultBacklog),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the health listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stats returns the current counters.
func (s *Server) Stats() Stats {
	return Stats{
		Observed:   s.observed.Load(),
		Journaled:  s.journaled.Load(),
		Duplicates: s.duplicates.Load(),
		Failed:     s.failed.Load(),
	}
}

// Serve subscribes to form events and serves health until ctx ends. Events
// emitted after the last journaled one are read back from history first,
// so a restart does not lose activity.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := s.stream.Subscribe(runCtx, func(ev domain.Event) {
		select {
		case s.backlog <- ev:
		case <-runCtx.Done():
		}
	}, s.types...)
	if err != nil {
		return fmt.Errorf("subscribe to form events: %w", err)
	}
	defer sub.Unsubscribe()

	if err := s.catchUp(runCtx); err != nil {
		return err
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		s.work(runCtx)
	}()

	log.Printf("forms watcher health listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	var result error
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		if err := <-serveErr; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			result = fmt.Errorf("serve gRPC: %w", err)
		}
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			result = fmt.Errorf("serve gRPC: %w", err)
		}
	}
	cancel()
	<-workerDone
	stats := s.Stats()
	log.Printf("forms watcher stopped: observed=%d journaled=%d duplicates=%d failed=%d",
		stats.Observed, stats.Journaled, stats.Duplicates, stats.Failed)
	return result
}

// catchUp replays the history after the last journaled event.
func (s *Server) catchUp(ctx context.Context) error {
	if s.journal == nil {
		return nil
	}
	last, err := s.journal.LastEntry(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read journal position: %w", err)
	}
	cursor := last.Cursor()
	query := events.Query{Types: s.types, Limit: catchUpPageSize, Cursor: &cursor}
	replayed := 0
	for {
		page, err := s.stream.QueryPage(ctx, query)
		if err != nil {
			return fmt.Errorf("catch up form events: %w", err)
		}
		for _, ev := range page.Events {
			s.handle(ctx, ev)
			replayed++
		}
		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		query.Cursor = page.NextCursor
	}
	if replayed > 0 {
		log.Printf("forms watcher replayed %d events after %s", replayed, last.TxDigest)
	}
	return nil
}

func (s *Server) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.backlog:
			s.handle(ctx, ev)
		}
	}
}

// handle journals one event. Events seen during catch-up arrive again from
// the subscription and are counted as duplicates.
func (s *Server) handle(ctx context.Context, ev domain.Event) {
	s.observed.Add(1)
	if s.journal != nil {
		_, err := s.journal.AppendEntry(ctx, storage.EntryFromEvent(ev))
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			s.duplicates.Add(1)
			return
		case err != nil:
			s.failed.Add(1)
			log.Printf("journal %s for form %s: %v", ev.Type(), ev.CorrelationID(), err)
			return
		}
		s.journaled.Add(1)
	}
	if s.observer != nil {
		s.observer(ev)
	}
}

// Close releases watcher resources. The journal is owned by the caller.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.health != nil {
			s.health.Shutdown()
		}
		if s.grpcServer != nil {
			s.grpcServer.Stop()
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}
