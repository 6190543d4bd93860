package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"decobot/internal/domain"
	"decobot/internal/notify"
)

// SendDueReminders sends one admin-group reminder per installment that fell
// due by now and marks it reminded. Orders are handled one at a time under
// their lock, so a reminder is never sent twice.
func (e *Engine) SendDueReminders(ctx context.Context, now time.Time, limit int) (int, error) {
	orders, err := e.records.FindDueReminders(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, candidate := range orders {
		n, err := e.remind(ctx, candidate.ID, now)
		if err != nil {
			e.logger.Warn("installment reminder failed", zap.String("orderId", candidate.ID), zap.Error(err))
			continue
		}
		sent += n
	}
	return sent, nil
}

func (e *Engine) remind(ctx context.Context, orderID string, now time.Time) (int, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var intents []notify.Intent
	unlock := e.locks.Lock(orderID)
	order, err := e.records.Update(ctx, orderID, func(o *domain.Order) error {
		intents = nil
		due := o.Schedule.DueForReminder(now)
		if len(due) == 0 {
			return ErrNoChange
		}
		for _, n := range due {
			o.Schedule.MarkReminded(n, now)
			intents = append(intents, e.coord.InstallmentReminder(o, n))
		}
		return nil
	})
	unlock()
	if err != nil {
		return 0, err
	}
	if len(intents) == 0 {
		return 0, nil
	}

	e.logger.Info("installment reminders sent",
		zap.String("orderId", orderID),
		zap.Int("count", len(intents)),
		zap.Int64("version", order.Version))

	snapshot := order.Clone()
	for i := range intents {
		intents[i].Order = snapshot
	}
	e.notifier.Notify(context.WithoutCancel(ctx), intents...)
	return len(intents), nil
}

// ReminderWorker polls for due installments on a fixed interval.
type ReminderWorker struct {
	engine   *Engine
	interval time.Duration
	batch    int
	logger   *zap.Logger
	now      func() time.Time
}

func NewReminderWorker(engine *Engine, interval time.Duration, batch int, logger *zap.Logger) *ReminderWorker {
	if batch < 1 {
		batch = 1
	}
	return &ReminderWorker{
		engine:   engine,
		interval: interval,
		batch:    batch,
		logger:   logger,
		now:      time.Now,
	}
}

// Run checks once right away and then on every tick until ctx is done.
func (w *ReminderWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("installment reminders disabled")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("installment reminder worker started", zap.Duration("interval", w.interval))
	for {
		w.Tick(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("installment reminder worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick drains every due reminder, a batch at a time.
func (w *ReminderWorker) Tick(ctx context.Context) int {
	now := w.now().UTC()
	total := 0
	for ctx.Err() == nil {
		sent, err := w.engine.SendDueReminders(ctx, now, w.batch)
		if err != nil {
			w.logger.Error("listing due installments failed", zap.Error(err))
			return total
		}
		total += sent
		if sent == 0 {
			break
		}
	}
	return total
}
