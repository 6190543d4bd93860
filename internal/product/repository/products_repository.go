package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"decobot/internal/domain"
)

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT id, name, category, price, size_prices, disabled
		FROM products
		WHERE id IN (%s)
		ORDER BY id`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			p          domain.Product
			sizePrices sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &sizePrices, &p.Disabled); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		if sizePrices.Valid && sizePrices.String != "" {
			if err := json.Unmarshal([]byte(sizePrices.String), &p.SizePrices); err != nil {
				return nil, fmt.Errorf("decoding size prices of %s: %w", p.ID, err)
			}
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

// Upsert writes the given products in one transaction, replacing rows with
// the same id.
func (r *MySQLRepository) Upsert(ctx context.Context, products []domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		var sizePrices interface{}
		if len(p.SizePrices) > 0 {
			b, err := json.Marshal(p.SizePrices)
			if err != nil {
				return fmt.Errorf("encoding size prices of %s: %w", p.ID, err)
			}
			sizePrices = string(b)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO products (id, name, category, price, size_prices, disabled)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				name = VALUES(name),
				category = VALUES(category),
				price = VALUES(price),
				size_prices = VALUES(size_prices),
				disabled = VALUES(disabled)`,
			p.ID, p.Name, p.Category, p.Price, sizePrices, p.Disabled,
		)
		if err != nil {
			return fmt.Errorf("upserting product %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing products: %w", err)
	}
	return nil
}
