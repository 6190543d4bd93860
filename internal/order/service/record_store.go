package service

import (
	"context"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"decobot/internal/domain"
	apperrors "decobot/internal/errors"
)

// ErrNoChange tells RecordStore.Update to skip the write. The loaded order is
// returned unchanged.
var ErrNoChange = stderrors.New("order unchanged")

type OrderRepository interface {
	Insert(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	CompareAndSwap(ctx context.Context, order *domain.Order, expectedVersion int64) error
	FindActiveByCustomer(ctx context.Context, customerID string) (*domain.Order, error)
	FindDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
}

// RecordStore owns order persistence. Updates are read-modify-write with an
// optimistic version check, retried on conflict.
type RecordStore struct {
	repo        OrderRepository
	logger      *zap.Logger
	maxAttempts int
	backoffs    []time.Duration

	now   func() time.Time
	newID func() string
}

func NewRecordStore(repo OrderRepository, maxAttempts int, logger *zap.Logger) *RecordStore {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RecordStore{
		repo:        repo,
		logger:      logger,
		maxAttempts: maxAttempts,
		// attempt 1 (0ms), attempt 2 (50ms), attempt 3 (100ms), then 200ms
		backoffs: []time.Duration{0, 50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond},
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *RecordStore) Create(ctx context.Context, customer domain.Customer, chatID int64, items []domain.LineItem) (*domain.Order, error) {
	now := s.now().UTC()
	order := &domain.Order{
		ID:           s.newID(),
		CustomerID:   customer.Code,
		CustomerName: customer.Name,
		City:         customer.City,
		ChatID:       chatID,
		Items:        append([]domain.LineItem(nil), items...),
		Stage:        domain.StageCheckoutPending,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, order); err != nil {
		s.logger.Error("failed to create order", zap.String("customerId", customer.Code), zap.Error(err))
		return nil, err
	}

	s.logger.Info("order created", zap.String("orderId", order.ID), zap.String("customerId", customer.Code), zap.Int("items", len(items)))
	return order.Clone(), nil
}

func (s *RecordStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *RecordStore) FindActiveByCustomer(ctx context.Context, customerID string) (*domain.Order, error) {
	return s.repo.FindActiveByCustomer(ctx, customerID)
}

// FindDueReminders lists orders whose payment schedule has an installment due
// by now that the admin group was not reminded of yet.
func (s *RecordStore) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	return s.repo.FindDueReminders(ctx, now, limit)
}

// Update applies mutate to a fresh copy of the order and stores it if the
// version did not move underneath. mutate may run more than once.
func (s *RecordStore) Update(ctx context.Context, orderID string, mutate func(*domain.Order) error) (*domain.Order, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.repo.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			if stderrors.Is(err, ErrNoChange) {
				return current, nil
			}
			return nil, err
		}

		next.Version = current.Version + 1
		next.UpdatedAt = s.now().UTC()

		err = s.repo.CompareAndSwap(ctx, next, current.Version)
		if err == nil {
			return next.Clone(), nil
		}

		if !isRetryable(err) {
			s.logger.Error("failed to store order", zap.String("orderId", orderID), zap.Error(err))
			return nil, err
		}
		if attempt == s.maxAttempts {
			break
		}

		s.logger.Warn("order write conflict, retrying",
			zap.String("orderId", orderID),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", s.maxAttempts),
			zap.Error(err))
		if err := s.sleep(ctx, attempt); err != nil {
			return nil, err
		}
	}

	return nil, apperrors.NewConflictError("order " + orderID + " changed concurrently, max retries exceeded")
}

func (s *RecordStore) sleep(ctx context.Context, attempt int) error {
	idx := attempt
	if idx >= len(s.backoffs) {
		idx = len(s.backoffs) - 1
	}
	base := s.backoffs[idx]
	if base <= 0 {
		return nil
	}
	// ±20% jitter around the base
	delay := time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRetryable(err error) bool {
	if _, ok := apperrors.IsConflictError(err); ok {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
