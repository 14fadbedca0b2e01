package purchaseorder

import (
	"context"
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/ogen-go/ogen/validate"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/pricing"
)

const instrumentationName = "github.com/harvestcart/harvestcart/internal/domain/purchaseorder"

var (
	idRule       = validate.String{MinLength: 1, MinLengthSet: true, MaxLength: 64, MaxLengthSet: true}
	quantityRule = validate.Int{MinSet: true, Min: 1, MaxSet: true, Max: math.MaxInt32}
)

// CreateRequest holds the caller-controlled fields of a new purchase order.
// The final total is derived by the engine.
type CreateRequest struct {
	VendorID  string
	ProductID string
	Quantity  int
	BaseTotal decimal.Decimal
}

// EngineConfig holds the optional collaborators of an Engine.
type EngineConfig struct {
	Rule           pricing.Rule
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Engine creates and lists purchase orders.
type Engine struct {
	repo    Repository
	rule    pricing.Rule
	lg      *zap.Logger
	tracer  trace.Tracer
	created metric.Int64Counter
}

// NewEngine creates an Engine. Nil collaborators in cfg fall back to no-op
// implementations.
func NewEngine(repo Repository, cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}

	created, err := cfg.MeterProvider.Meter(instrumentationName).Int64Counter(
		"harvestcart.purchase_orders.created",
		metric.WithDescription("Number of purchase orders created"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}

	return &Engine{
		repo:    repo,
		rule:    cfg.Rule,
		lg:      cfg.Logger,
		tracer:  cfg.TracerProvider.Tracer(instrumentationName),
		created: created,
	}, nil
}

// Create validates req, derives the final total, and persists the purchase
// order with one gateway write. Validation failures never reach the store.
// Failures are returned as-is; the engine does not retry.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (_ *PurchaseOrder, rerr error) {
	const op = "create purchase order"

	ctx, span := e.tracer.Start(ctx, "purchaseorder.Create",
		trace.WithAttributes(
			attribute.String("vendor.id", req.VendorID),
			attribute.String("product.id", req.ProductID),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, string(apperr.KindOf(rerr)))
		}
		span.End()
	}()

	req.VendorID = strings.TrimSpace(req.VendorID)
	req.ProductID = strings.TrimSpace(req.ProductID)
	if err := validateRequest(op, &req); err != nil {
		return nil, err
	}

	final, err := pricing.ComputeFinalTotal(req.BaseTotal, req.Quantity, e.rule)
	if err != nil {
		return nil, errors.Wrap(err, "compute final total")
	}

	po := &PurchaseOrder{
		VendorID:   req.VendorID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		BaseTotal:  req.BaseTotal,
		FinalTotal: final,
	}
	if err := e.repo.Create(ctx, po); err != nil {
		return nil, apperr.Storage(op, errors.Wrap(err, "insert purchase order"))
	}

	e.created.Add(ctx, 1)
	e.lg.Info("Purchase order created",
		zap.String("purchase_order_id", po.ID),
		zap.String("vendor_id", po.VendorID),
		zap.String("product_id", po.ProductID),
		zap.Int("quantity", po.Quantity),
		zap.Stringer("final_total", po.FinalTotal),
	)
	return po, nil
}

// List returns all purchase orders, most recently created first.
func (e *Engine) List(ctx context.Context) ([]PurchaseOrder, error) {
	ctx, span := e.tracer.Start(ctx, "purchaseorder.List")
	defer span.End()

	orders, err := e.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, apperr.Storage("list purchase orders", errors.Wrap(err, "query purchase orders"))
	}
	if orders == nil {
		orders = []PurchaseOrder{}
	}
	return orders, nil
}

// validateRequest checks every field of req and normalizes its base total.
func validateRequest(op string, req *CreateRequest) error {
	var check apperr.FieldCheck
	check.Add("vendor_id", idRule.Validate(req.VendorID))
	check.Add("product_id", idRule.Validate(req.ProductID))
	check.Add("quantity", quantityRule.Validate(int64(req.Quantity)))
	base, err := pricing.NormalizeAmount(req.BaseTotal)
	check.Add("base_total", err)
	if err := check.Err(op); err != nil {
		return err
	}
	req.BaseTotal = base
	return nil
}
