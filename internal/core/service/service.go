package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Morsalin012/sushi-cafe-web/internal/core/domain"
	"github.com/Morsalin012/sushi-cafe-web/internal/metrics"
	"github.com/Morsalin012/sushi-cafe-web/internal/port"
)

var tracer = otel.Tracer("github.com/Morsalin012/sushi-cafe-web/internal/core/service")

func userLockKey(userID string) string      { return "user:" + userID }
func ratingLockKey(productID string) string { return "rating:" + productID }

type options struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	events  port.EventPublisher
	now     func() time.Time
	newID   func() string
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(o *options) { o.metrics = m } }

func WithEvents(p port.EventPublisher) Option { return func(o *options) { o.events = p } }

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithIDs overrides uuid generation, mostly for tests.
func WithIDs(newID func() string) Option { return func(o *options) { o.newID = newID } }

func buildOptions(opts []Option) options {
	o := options{
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// endSpan records err on the span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// withLock runs fn while holding key.
func withLock(ctx context.Context, locker port.Locker, key string, fn func() error) error {
	release, err := locker.Acquire(ctx, key)
	if err != nil {
		return domain.NewError("lock", err, key, "could not acquire lock, try again")
	}
	defer release()
	return fn()
}
