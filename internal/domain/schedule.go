package domain

import (
	"fmt"
	"time"
)

type ScheduleStatus string

const (
	ScheduleActive    ScheduleStatus = "active"
	ScheduleCompleted ScheduleStatus = "completed"
	ScheduleCancelled ScheduleStatus = "cancelled"
)

const day = 24 * time.Hour

// installmentOffsets are the due dates of the deferred part of each
// installment method, counted from approval.
var installmentOffsets = map[PaymentMethod][]time.Duration{
	PaymentMethodInstallment60: {60 * day},
	PaymentMethodInstallment90: {30 * day, 60 * day, 90 * day},
}

type Installment struct {
	Number     int        `json:"number" bson:"number"`
	Amount     int64      `json:"amount" bson:"amount"`
	DueAt      time.Time  `json:"dueAt" bson:"dueAt"`
	RemindedAt *time.Time `json:"remindedAt,omitempty" bson:"remindedAt,omitempty"`
	PaidAt     *time.Time `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

func (i Installment) Paid() bool {
	return i.PaidAt != nil
}

// PaymentSchedule tracks the deferred part of an installment order: what is
// still owed, when, and whether the admin group was reminded.
type PaymentSchedule struct {
	Method       PaymentMethod  `json:"method" bson:"method"`
	Deferred     int64          `json:"deferred" bson:"deferred"`
	Installments []Installment  `json:"installments" bson:"installments"`
	Status       ScheduleStatus `json:"status" bson:"status"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
}

// NewPaymentSchedule splits the deferred amount over the method's due dates.
// The last installment absorbs the rounding remainder. It returns nil when
// nothing is deferred.
func NewPaymentSchedule(method PaymentMethod, t Totals, now time.Time) *PaymentSchedule {
	offsets, ok := installmentOffsets[method]
	deferred := t.GrandTotal - t.Advance
	if !ok || deferred <= 0 {
		return nil
	}

	s := &PaymentSchedule{
		Method:    method,
		Deferred:  deferred,
		Status:    ScheduleActive,
		CreatedAt: now,
	}
	share := deferred / int64(len(offsets))
	for i, offset := range offsets {
		amount := share
		if i == len(offsets)-1 {
			amount = deferred - share*int64(len(offsets)-1)
		}
		s.Installments = append(s.Installments, Installment{
			Number: i + 1,
			Amount: amount,
			DueAt:  now.Add(offset),
		})
	}
	return s
}

func (s *PaymentSchedule) Active() bool {
	return s != nil && s.Status == ScheduleActive
}

// Outstanding is the sum of unpaid installments.
func (s *PaymentSchedule) Outstanding() int64 {
	var total int64
	for _, in := range s.Installments {
		if !in.Paid() {
			total += in.Amount
		}
	}
	return total
}

// NextReminderAt is the earliest due date still waiting for a reminder, or
// nil when none is left.
func (s *PaymentSchedule) NextReminderAt() *time.Time {
	if !s.Active() {
		return nil
	}
	var next *time.Time
	for i := range s.Installments {
		in := s.Installments[i]
		if in.Paid() || in.RemindedAt != nil {
			continue
		}
		if next == nil || in.DueAt.Before(*next) {
			due := in.DueAt
			next = &due
		}
	}
	return next
}

// DueForReminder returns the numbers of unpaid installments due by now that
// have not been reminded yet.
func (s *PaymentSchedule) DueForReminder(now time.Time) []int {
	if !s.Active() {
		return nil
	}
	var due []int
	for _, in := range s.Installments {
		if in.Paid() || in.RemindedAt != nil || in.DueAt.After(now) {
			continue
		}
		due = append(due, in.Number)
	}
	return due
}

func (s *PaymentSchedule) MarkReminded(number int, now time.Time) {
	if in := s.installment(number); in != nil {
		at := now
		in.RemindedAt = &at
	}
}

// MarkPaid records installment number as paid. It returns false when it was
// already paid. Paying the last open installment completes the schedule.
func (s *PaymentSchedule) MarkPaid(number int, now time.Time) (bool, error) {
	in := s.installment(number)
	if in == nil {
		return false, fmt.Errorf("installment %d does not exist", number)
	}
	if in.Paid() {
		return false, nil
	}
	at := now
	in.PaidAt = &at

	if s.Outstanding() == 0 {
		s.Status = ScheduleCompleted
	}
	return true, nil
}

func (s *PaymentSchedule) Cancel() {
	if s.Active() {
		s.Status = ScheduleCancelled
	}
}

func (s *PaymentSchedule) Installment(number int) (Installment, bool) {
	if in := s.installment(number); in != nil {
		return *in, true
	}
	return Installment{}, false
}

func (s *PaymentSchedule) installment(number int) *Installment {
	for i := range s.Installments {
		if s.Installments[i].Number == number {
			return &s.Installments[i]
		}
	}
	return nil
}

func (s *PaymentSchedule) Clone() *PaymentSchedule {
	if s == nil {
		return nil
	}
	c := *s
	c.Installments = make([]Installment, len(s.Installments))
	for i, in := range s.Installments {
		if in.RemindedAt != nil {
			at := *in.RemindedAt
			in.RemindedAt = &at
		}
		if in.PaidAt != nil {
			at := *in.PaidAt
			in.PaidAt = &at
		}
		c.Installments[i] = in
	}
	return &c
}
