package customerorder

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
)

const instrumentationName = "github.com/harvestcart/harvestcart/internal/domain/customerorder"

// TrackerConfig holds the optional collaborators of a Tracker.
type TrackerConfig struct {
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Tracker surfaces customer orders and guards their status machine.
type Tracker struct {
	repo        Repository
	lg          *zap.Logger
	tracer      trace.Tracer
	transitions metric.Int64Counter
}

// NewTracker creates a Tracker. Nil collaborators in cfg fall back to no-op
// implementations.
func NewTracker(repo Repository, cfg TrackerConfig) (*Tracker, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}

	transitions, err := cfg.MeterProvider.Meter(instrumentationName).Int64Counter(
		"harvestcart.customer_orders.transitions",
		metric.WithDescription("Number of customer order status transitions applied"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}

	return &Tracker{
		repo:        repo,
		lg:          cfg.Logger,
		tracer:      cfg.TracerProvider.Tracer(instrumentationName),
		transitions: transitions,
	}, nil
}

// ListForUser returns the user's orders, newest first. An empty user id
// (anonymous caller) yields an empty slice without touching the store.
func (t *Tracker) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return []Order{}, nil
	}

	ctx, span := t.tracer.Start(ctx, "customerorder.ListForUser")
	defer span.End()

	orders, err := t.repo.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, apperr.Storage("list orders for user", errors.Wrap(err, "query orders"))
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// Advance moves an order to status to. The transition is checked against the
// status machine and applied with a compare-and-set, so a concurrent change
// between read and write is reported as an invalid transition.
func (t *Tracker) Advance(ctx context.Context, orderID string, to Status) (_ *Order, rerr error) {
	const op = "advance order status"

	ctx, span := t.tracer.Start(ctx, "customerorder.Advance",
		trace.WithAttributes(
			attribute.String("order.id", orderID),
			attribute.String("order.status.to", string(to)),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, string(apperr.KindOf(rerr)))
		}
		span.End()
	}()

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.Validation(op, "order id is required", map[string]string{"id": "must not be empty"})
	}
	if !to.Valid() {
		return nil, apperr.Validation(op, "unknown status", map[string]string{"status": "unknown status " + string(to)})
	}

	o, err := t.repo.Get(ctx, orderID)
	if err != nil {
		return nil, apperr.Storage(op, errors.Wrap(err, "get order"))
	}
	if err := Transition(o.Status, to); err != nil {
		return nil, err
	}

	from := o.Status
	ok, err := t.repo.UpdateStatus(ctx, orderID, from, to)
	if err != nil {
		return nil, apperr.Storage(op, errors.Wrap(err, "update order status"))
	}
	if !ok {
		// The stored status moved on since we read it.
		return nil, apperr.InvalidTransition(op, from, to)
	}

	o.Status = to
	t.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
	t.lg.Info("Order status advanced",
		zap.String("order_id", orderID),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	return o, nil
}
