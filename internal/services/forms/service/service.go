// Package service implements the form and registry operations on top of a
// ledger gateway. Every write is submitted to the ledger and every read
// fetches fresh objects; the service keeps no state between calls.
package service

import (
	"log/slog"

	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/services/forms/analytics"
	"github.com/louisbranch/formledger/internal/services/forms/contract"
	"github.com/louisbranch/formledger/internal/services/forms/i18n"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultFanout bounds concurrent object reads in multi-form queries.
const DefaultFanout = 16

const tracerName = "github.com/louisbranch/formledger/internal/services/forms/service"

// Service runs form operations against one deployment.
type Service struct {
	gateway   ledger.Gateway
	binding   contract.Binding
	logger    *slog.Logger
	tracer    trace.Tracer
	localizer analytics.Localizer
	fanout    int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Nil uses slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = resolveLogger(logger) }
}

// WithFanout bounds concurrent reads. Values below one use DefaultFanout.
func WithFanout(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanout = n
		}
	}
}

// WithLocalizer sets the locale of failure messages in results.
func WithLocalizer(l analytics.Localizer) Option {
	return func(s *Service) { s.localizer = l }
}

// WithTracerProvider sets the span source. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// New returns a service submitting through gateway.
func New(gateway ledger.Gateway, binding contract.Binding, opts ...Option) *Service {
	s := &Service{
		gateway:   gateway,
		binding:   binding,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		localizer: analytics.NewLocalizer(i18n.Default()),
		fanout:    DefaultFanout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Binding returns the deployment the service targets.
func (s *Service) Binding() contract.Binding {
	return s.binding
}

// Sender returns the signing address, empty for a read-only gateway.
func (s *Service) Sender() string {
	return s.gateway.Sender()
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
