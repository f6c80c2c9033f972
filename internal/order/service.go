package order

import (
	"context"

	"atelier-be/internal/logger"
	"atelier-be/internal/metrics"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "atelier-be/internal/order"

type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (int64, error)
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status string) error
	DeleteOrder(ctx context.Context, orderID int64) error
	Stats() metrics.Snapshot
}

type service struct {
	repo    Repository
	metrics *metrics.OrderMetrics
	tracer  trace.Tracer
}

func NewService(repo Repository, m *metrics.OrderMetrics) Service {
	if m == nil {
		m = &metrics.OrderMetrics{}
	}
	return &service{
		repo:    repo,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
	}
}

func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder", trace.WithAttributes(
		attribute.Int64("order.user_id", in.UserID),
		attribute.Int("order.item_count", len(in.Items)),
	))
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int64("user_id", in.UserID),
	)

	timer := metrics.StartTimer()
	orderID, err := s.repo.CreateOrder(ctx, in)
	if err != nil {
		s.metrics.Failed.Inc()

		var vErr *ValidationError
		if !errors.As(err, &vErr) && !errors.Is(err, ErrBeginTx) {
			s.metrics.RolledBack.Inc()
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "create order failed")
		log.Warn("order not created", zap.Error(err))
		return 0, err
	}

	s.metrics.Created.Inc()
	s.metrics.ObserveCreate(timer.Duration())
	span.SetAttributes(attribute.Int64("order.id", orderID))

	log.Info("order created",
		zap.Int64("order_id", orderID),
		zap.Duration("took", timer.Duration()),
	)
	return orderID, nil
}

func (s *service) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	if orderID <= 0 {
		return nil, ErrOrderNotFound
	}

	s.metrics.Reads.Inc()
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get order failed")
	}
	return o, err
}

func (s *service) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.ListByUser", trace.WithAttributes(
		attribute.Int64("order.user_id", userID),
	))
	defer span.End()

	if userID <= 0 {
		return nil, &ValidationError{Fields: []string{"user_id"}}
	}

	s.metrics.Reads.Inc()
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list user orders failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("order.count", len(orders)))
	return orders, nil
}

func (s *service) ListOrders(ctx context.Context) ([]Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.ListOrders")
	defer span.End()

	s.metrics.Reads.Inc()
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list orders failed")
	}
	return orders, err
}

func (s *service) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", status),
	))
	defer span.End()

	st := OrderStatus(status)
	if !st.Valid() {
		return errors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	if orderID <= 0 {
		return ErrOrderNotFound
	}

	if err := s.repo.UpdateStatus(ctx, orderID, st); err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update status failed")
		}
		return err
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.String("layer", "service"),
		zap.Int64("order_id", orderID),
		zap.String("status", status),
	)
	return nil
}

func (s *service) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "order.DeleteOrder", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
	))
	defer span.End()

	if orderID <= 0 {
		return ErrOrderNotFound
	}

	if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
		if !errors.Is(err, ErrOrderNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delete order failed")
		}
		return err
	}

	logger.FromCtx(ctx).Info("order deleted",
		zap.String("layer", "service"),
		zap.Int64("order_id", orderID),
	)
	return nil
}

func (s *service) Stats() metrics.Snapshot {
	return s.metrics.Snapshot()
}
