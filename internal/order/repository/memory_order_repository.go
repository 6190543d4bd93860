package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"decobot/internal/domain"
	"decobot/internal/errors"
)

// MemoryOrderRepository keeps order records in process memory. Every read
// and write goes through Clone so callers never share state with the store.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*domain.Order)}
}

func (r *MemoryOrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return errors.NewConflictError(fmt.Sprintf("order with id %s already exists", order.ID))
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *MemoryOrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	return order.Clone(), nil
}

func (r *MemoryOrderRepository) CompareAndSwap(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[order.ID]
	if !ok {
		return errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", order.ID))
	}
	if current.Version != expectedVersion {
		return errors.NewConflictError(fmt.Sprintf("order %s version is %d, expected %d", order.ID, current.Version, expectedVersion))
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *MemoryOrderRepository) FindActiveByCustomer(ctx context.Context, customerID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var newest *domain.Order
	for _, o := range r.orders {
		if o.CustomerID != customerID || !o.Stage.IsActive() {
			continue
		}
		if newest == nil || o.CreatedAt.After(newest.CreatedAt) {
			newest = o
		}
	}
	if newest == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no active order for customer %s", customerID))
	}
	return newest.Clone(), nil
}

func (r *MemoryOrderRepository) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*domain.Order
	for _, o := range r.orders {
		next := o.Schedule.NextReminderAt()
		if next == nil || next.After(now) {
			continue
		}
		due = append(due, o.Clone())
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].Schedule.NextReminderAt().Before(*due[j].Schedule.NextReminderAt())
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}
