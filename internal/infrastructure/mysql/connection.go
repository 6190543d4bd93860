package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"decobot/internal/config"
)

const orderRecordsDDL = `
CREATE TABLE IF NOT EXISTS order_records (
	id VARCHAR(36) NOT NULL PRIMARY KEY,
	customer_id VARCHAR(16) NOT NULL,
	stage VARCHAR(64) NOT NULL,
	active TINYINT(1) NOT NULL DEFAULT 1,
	version BIGINT NOT NULL,
	body JSON NOT NULL,
	next_reminder_at DATETIME(6) NULL,
	created_at DATETIME(6) NOT NULL,
	updated_at DATETIME(6) NOT NULL,
	INDEX idx_customer_active (customer_id, active, created_at),
	INDEX idx_next_reminder (next_reminder_at)
)`

const productsDDL = `
CREATE TABLE IF NOT EXISTS products (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	category VARCHAR(64) NOT NULL,
	price BIGINT NOT NULL,
	size_prices JSON NULL,
	disabled TINYINT(1) NOT NULL DEFAULT 0
)`

func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsnCfg := mysql.NewConfig()
	dsnCfg.User = cfg.User
	dsnCfg.Passwd = cfg.Password
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsnCfg.DBName = cfg.Name
	dsnCfg.ParseTime = true

	db, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the order_records and products tables when they do not
// exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, orderRecordsDDL); err != nil {
		return fmt.Errorf("creating order_records table: %w", err)
	}
	if _, err := db.ExecContext(ctx, productsDDL); err != nil {
		return fmt.Errorf("creating products table: %w", err)
	}
	return nil
}
