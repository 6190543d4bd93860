package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decobot/internal/domain"
	"decobot/internal/errors"
)

type orderStore interface {
	Insert(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	CompareAndSwap(ctx context.Context, order *domain.Order, expectedVersion int64) error
	FindActiveByCustomer(ctx context.Context, customerID string) (*domain.Order, error)
	FindDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
}

func newTestOrder(id, customerID string, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:           id,
		CustomerID:   customerID,
		CustomerName: "نیما کریمی",
		ChatID:       42,
		Items:        []domain.LineItem{{ProductID: "baby-01", Size: "70x140", Quantity: 1, UnitPrice: 4780000}},
		Stage:        domain.StageCheckoutPending,
		Version:      1,
		CreatedAt:    createdAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:    createdAt.UTC().Truncate(time.Millisecond),
	}
}

func runOrderStoreContract(t *testing.T, repo orderStore) {
	ctx := context.Background()
	now := time.Now()

	t.Run("insert and get", func(t *testing.T) {
		order := newTestOrder("contract-1", "100001", now)
		require.NoError(t, repo.Insert(ctx, order))

		got, err := repo.Get(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, order.CustomerID, got.CustomerID)
		assert.Equal(t, order.Items, got.Items)
		assert.Equal(t, domain.StageCheckoutPending, got.Stage)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("duplicate insert conflicts", func(t *testing.T) {
		err := repo.Insert(ctx, newTestOrder("contract-1", "100001", now))
		_, ok := errors.IsConflictError(err)
		assert.True(t, ok)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		_, ok := errors.IsNotFoundError(err)
		assert.True(t, ok)
	})

	t.Run("compare and swap", func(t *testing.T) {
		order, err := repo.Get(ctx, "contract-1")
		require.NoError(t, err)

		order.Stage = domain.StagePaymentMethodSelection
		order.Version = 2
		require.NoError(t, repo.CompareAndSwap(ctx, order, 1))

		stale := order.Clone()
		stale.Version = 2
		err = repo.CompareAndSwap(ctx, stale, 1)
		_, ok := errors.IsConflictError(err)
		assert.True(t, ok)

		got, err := repo.Get(ctx, "contract-1")
		require.NoError(t, err)
		assert.Equal(t, domain.StagePaymentMethodSelection, got.Stage)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("compare and swap missing", func(t *testing.T) {
		err := repo.CompareAndSwap(ctx, newTestOrder("missing", "100001", now), 1)
		_, ok := errors.IsNotFoundError(err)
		assert.True(t, ok)
	})

	t.Run("find active by customer", func(t *testing.T) {
		done := newTestOrder("contract-2", "100002", now.Add(-time.Hour))
		done.Stage = domain.StageShipped
		require.NoError(t, repo.Insert(ctx, done))

		_, err := repo.FindActiveByCustomer(ctx, "100002")
		_, ok := errors.IsNotFoundError(err)
		assert.True(t, ok)

		active := newTestOrder("contract-3", "100002", now)
		active.Stage = domain.StageAdminReview
		require.NoError(t, repo.Insert(ctx, active))

		got, err := repo.FindActiveByCustomer(ctx, "100002")
		require.NoError(t, err)
		assert.Equal(t, "contract-3", got.ID)
	})

	t.Run("find due reminders", func(t *testing.T) {
		approved := now.Add(-100 * 24 * time.Hour).UTC().Truncate(time.Millisecond)

		ninety := newTestOrder("contract-4", "100003", now)
		ninety.Stage = domain.StageConfirmed
		ninety.Schedule = domain.NewPaymentSchedule(domain.PaymentMethodInstallment90, domain.Totals{GrandTotal: 1200, Advance: 300}, approved)
		require.NoError(t, repo.Insert(ctx, ninety))

		notYet := newTestOrder("contract-5", "100004", now)
		notYet.Stage = domain.StageConfirmed
		notYet.Schedule = domain.NewPaymentSchedule(domain.PaymentMethodInstallment60, domain.Totals{GrandTotal: 500}, now.UTC().Truncate(time.Millisecond))
		require.NoError(t, repo.Insert(ctx, notYet))

		due, err := repo.FindDueReminders(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "contract-4", due[0].ID)
		require.NotNil(t, due[0].Schedule)
		assert.Len(t, due[0].Schedule.Installments, 3)

		reminded := due[0].Clone()
		for _, n := range reminded.Schedule.DueForReminder(now) {
			reminded.Schedule.MarkReminded(n, now)
		}
		reminded.Version = 2
		require.NoError(t, repo.CompareAndSwap(ctx, reminded, 1))

		due, err = repo.FindDueReminders(ctx, now, 10)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}
