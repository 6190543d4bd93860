package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
	"decobot/internal/notify"
)

type PricingCalculator interface {
	Compute(items []domain.LineItem, method domain.PaymentMethod) (domain.Totals, error)
	Preview(items []domain.LineItem) ([]domain.Totals, error)
}

type Notifier interface {
	Notify(ctx context.Context, intents ...notify.Intent)
}

type OrderRecords interface {
	Create(ctx context.Context, customer domain.Customer, chatID int64, items []domain.LineItem) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	FindActiveByCustomer(ctx context.Context, customerID string) (*domain.Order, error)
	Update(ctx context.Context, orderID string, mutate func(*domain.Order) error) (*domain.Order, error)
	FindDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
}

// Engine drives an order through its lifecycle. Transitions on one order are
// serialized; notifications go out only after the new state is stored.
type Engine struct {
	records  OrderRecords
	pricing  PricingCalculator
	coord    *Coordinator
	notifier Notifier
	locks    *KeyedLocker
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewEngine(
	records OrderRecords,
	pricing PricingCalculator,
	coord *Coordinator,
	notifier Notifier,
	timeout time.Duration,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		records:  records,
		pricing:  pricing,
		coord:    coord,
		notifier: notifier,
		locks:    NewKeyedLocker(),
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (e *Engine) Coordinator() *Coordinator {
	return e.coord
}

// Checkout snapshots the cart into a new order. A customer holds at most one
// active order at a time.
func (e *Engine) Checkout(ctx context.Context, customer domain.Customer, chatID int64, items []domain.LineItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("cart is empty")
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	unlock := e.locks.Lock("customer:" + customer.Code)
	defer unlock()

	active, err := e.records.FindActiveByCustomer(ctx, customer.Code)
	if err == nil {
		e.logger.Info("checkout rejected, active order exists",
			zap.String("customerId", customer.Code),
			zap.String("orderId", active.ID),
			zap.String("stage", string(active.Stage)))
		return nil, apperrors.NewActiveOrderError(customer.Code, active.ID)
	}
	if _, ok := apperrors.IsNotFoundError(err); !ok {
		return nil, err
	}

	return e.records.Create(ctx, customer, chatID, items)
}

func (e *Engine) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return e.records.Get(ctx, orderID)
}

func (e *Engine) ActiveOrder(ctx context.Context, customerID string) (*domain.Order, error) {
	return e.records.FindActiveByCustomer(ctx, customerID)
}

// Apply runs one event against an order. A rejected event leaves the stored
// order untouched and sends nothing.
func (e *Engine) Apply(ctx context.Context, orderID string, ev domain.Event) (*domain.Order, error) {
	expected, ok := ev.Kind.ActorFor()
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown event %q", ev.Kind))
	}
	if ev.Actor != expected {
		return nil, apperrors.NewForbiddenError(fmt.Sprintf("event %s is reserved for %s", ev.Kind, expected))
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var (
		intents []notify.Intent
		from    domain.Stage
	)
	unlock := e.locks.Lock(orderID)
	order, err := e.records.Update(ctx, orderID, func(o *domain.Order) error {
		intents = nil
		from = o.Stage
		if ev.Actor == domain.ActorCustomer && ev.ActorID != o.ChatID {
			return apperrors.NewForbiddenError("order belongs to another customer")
		}
		var err error
		intents, err = e.transition(o, ev)
		return err
	})
	unlock()

	if err != nil {
		e.logRejected(orderID, ev, err)
		return nil, err
	}

	e.logger.Info("order event applied",
		zap.String("orderId", orderID),
		zap.String("event", string(ev.Kind)),
		zap.String("from", string(from)),
		zap.String("to", string(order.Stage)),
		zap.Int64("version", order.Version))

	if len(intents) > 0 {
		snapshot := order.Clone()
		for i := range intents {
			intents[i].Order = snapshot
		}
		e.notifier.Notify(context.WithoutCancel(ctx), intents...)
	}
	return order, nil
}

func (e *Engine) logRejected(orderID string, ev domain.Event, err error) {
	fields := []zap.Field{
		zap.String("orderId", orderID),
		zap.String("event", string(ev.Kind)),
		zap.Int64("actorId", ev.ActorID),
		zap.Error(err),
	}
	switch {
	case isExpectedRejection(err):
		e.logger.Info("order event rejected", fields...)
	default:
		e.logger.Error("order event failed", fields...)
	}
}

func isExpectedRejection(err error) bool {
	if _, ok := apperrors.IsStaleTransitionError(err); ok {
		return true
	}
	if _, ok := apperrors.IsMissingPaymentContextError(err); ok {
		return true
	}
	if _, ok := apperrors.IsDuplicateAssignmentError(err); ok {
		return true
	}
	if _, ok := apperrors.IsValidationError(err); ok {
		return true
	}
	if _, ok := apperrors.IsForbiddenError(err); ok {
		return true
	}
	_, ok := apperrors.IsNotFoundError(err)
	return ok
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}
