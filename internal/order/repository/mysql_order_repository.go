package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"decobot/internal/domain"
	"decobot/internal/errors"
)

const mysqlDuplicateEntry = 1062

// MySQLOrderRepository stores each order as a versioned JSON document in
// the order_records table. Only the columns needed for lookups are broken
// out of the body.
type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding order: %w", err)
	}

	query := `
		INSERT INTO order_records (id, customer_id, stage, active, version, body, next_reminder_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID, order.CustomerID, string(order.Stage), order.Stage.IsActive(),
		order.Version, body, nextReminder(order), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stderrors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return errors.NewConflictError(fmt.Sprintf("order with id %s already exists", order.ID))
		}
		return fmt.Errorf("inserting order: %w", err)
	}

	return nil
}

func (r *MySQLOrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT body FROM order_records WHERE id = ?`

	var body []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return decodeOrder(body)
}

func (r *MySQLOrderRepository) CompareAndSwap(ctx context.Context, order *domain.Order, expectedVersion int64) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding order: %w", err)
	}

	query := `
		UPDATE order_records
		SET stage = ?, active = ?, version = ?, body = ?, next_reminder_at = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(order.Stage), order.Stage.IsActive(), order.Version, body, nextReminder(order), order.UpdatedAt,
		order.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("updating order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := r.Get(ctx, order.ID); err != nil {
			return err
		}
		return errors.NewConflictError(fmt.Sprintf("order %s changed concurrently, expected version %d", order.ID, expectedVersion))
	}

	return nil
}

func (r *MySQLOrderRepository) FindActiveByCustomer(ctx context.Context, customerID string) (*domain.Order, error) {
	query := `
		SELECT body FROM order_records
		WHERE customer_id = ? AND active = 1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var body []byte
	err := r.db.QueryRowContext(ctx, query, customerID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no active order for customer %s", customerID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying active order: %w", err)
	}

	return decodeOrder(body)
}

func (r *MySQLOrderRepository) FindDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	query := `
		SELECT body FROM order_records
		WHERE next_reminder_at IS NOT NULL AND next_reminder_at <= ?
		ORDER BY next_reminder_at
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying due reminders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning due reminder: %w", err)
		}
		order, err := decodeOrder(body)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating due reminders: %w", err)
	}
	return orders, nil
}

// nextReminder is the indexed copy of the schedule's next due reminder.
func nextReminder(order *domain.Order) sql.NullTime {
	if next := order.Schedule.NextReminderAt(); next != nil {
		return sql.NullTime{Time: next.UTC(), Valid: true}
	}
	return sql.NullTime{}
}

func decodeOrder(body []byte) (*domain.Order, error) {
	var order domain.Order
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("decoding order body: %w", err)
	}
	return &order, nil
}
