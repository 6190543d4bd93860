package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approvedAt = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func TestNewPaymentSchedule_SixtyDay(t *testing.T) {
	s := NewPaymentSchedule(PaymentMethodInstallment60, Totals{GrandTotal: 3585000}, approvedAt)
	require.NotNil(t, s)

	require.Len(t, s.Installments, 1)
	assert.Equal(t, int64(3585000), s.Installments[0].Amount)
	assert.Equal(t, approvedAt.Add(60*24*time.Hour), s.Installments[0].DueAt)
	assert.Equal(t, ScheduleActive, s.Status)
}

func TestNewPaymentSchedule_NinetyDaySplitsDeferredPart(t *testing.T) {
	s := NewPaymentSchedule(PaymentMethodInstallment90, Totals{GrandTotal: 1000001, Advance: 250000}, approvedAt)
	require.NotNil(t, s)

	require.Len(t, s.Installments, 3)
	assert.Equal(t, int64(750001), s.Deferred)
	assert.Equal(t, int64(250000), s.Installments[0].Amount)
	assert.Equal(t, int64(250000), s.Installments[1].Amount)
	assert.Equal(t, int64(250001), s.Installments[2].Amount)
	for i, days := range []int{30, 60, 90} {
		assert.Equal(t, i+1, s.Installments[i].Number)
		assert.Equal(t, approvedAt.Add(time.Duration(days)*24*time.Hour), s.Installments[i].DueAt)
	}
	assert.Equal(t, s.Deferred, s.Outstanding())
}

func TestNewPaymentSchedule_NothingDeferred(t *testing.T) {
	assert.Nil(t, NewPaymentSchedule(PaymentMethodCash, Totals{GrandTotal: 700}, approvedAt))
	assert.Nil(t, NewPaymentSchedule(PaymentMethodInstallment90, Totals{GrandTotal: 100, Advance: 100}, approvedAt))
}

func TestPaymentSchedule_RemindersAndPayments(t *testing.T) {
	s := NewPaymentSchedule(PaymentMethodInstallment90, Totals{GrandTotal: 1200, Advance: 300}, approvedAt)

	assert.Empty(t, s.DueForReminder(approvedAt.Add(29*24*time.Hour)))
	require.NotNil(t, s.NextReminderAt())
	assert.Equal(t, s.Installments[0].DueAt, *s.NextReminderAt())

	later := approvedAt.Add(61 * 24 * time.Hour)
	assert.Equal(t, []int{1, 2}, s.DueForReminder(later))

	s.MarkReminded(1, later)
	assert.Equal(t, []int{2}, s.DueForReminder(later))
	assert.Equal(t, s.Installments[1].DueAt, *s.NextReminderAt())

	paid, err := s.MarkPaid(2, later)
	require.NoError(t, err)
	assert.True(t, paid)
	assert.Empty(t, s.DueForReminder(later))

	paid, err = s.MarkPaid(2, later)
	require.NoError(t, err)
	assert.False(t, paid)

	_, err = s.MarkPaid(7, later)
	assert.Error(t, err)

	_, err = s.MarkPaid(1, later)
	require.NoError(t, err)
	_, err = s.MarkPaid(3, later)
	require.NoError(t, err)
	assert.Equal(t, ScheduleCompleted, s.Status)
	assert.Nil(t, s.NextReminderAt())
}

func TestPaymentSchedule_CancelStopsReminders(t *testing.T) {
	s := NewPaymentSchedule(PaymentMethodInstallment60, Totals{GrandTotal: 500}, approvedAt)
	s.Cancel()

	assert.Equal(t, ScheduleCancelled, s.Status)
	assert.Nil(t, s.NextReminderAt())
	assert.Empty(t, s.DueForReminder(approvedAt.Add(365*24*time.Hour)))
}

func TestOrder_CloneCopiesSchedule(t *testing.T) {
	order := &Order{ID: "o-1", Schedule: NewPaymentSchedule(PaymentMethodInstallment60, Totals{GrandTotal: 500}, approvedAt)}

	clone := order.Clone()
	_, err := clone.Schedule.MarkPaid(1, approvedAt)
	require.NoError(t, err)

	assert.False(t, order.Schedule.Installments[0].Paid())
	assert.Equal(t, ScheduleActive, order.Schedule.Status)
}
