package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetupTestDB opens the MySQL test database, skipping the test when it is
// not reachable. TEST_MYSQL_DSN overrides the default local DSN.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/decobot_test?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

func SetupTestTables(t *testing.T, db *sql.DB) {
	createOrderRecords := `
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

	createProducts := `
	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		category VARCHAR(64) NOT NULL,
		price BIGINT NOT NULL,
		size_prices JSON NULL,
		disabled TINYINT(1) NOT NULL DEFAULT 0
	)`

	for name, ddl := range map[string]string{"order_records": createOrderRecords, "products": createProducts} {
		if _, err := db.Exec(ddl); err != nil {
			t.Logf("failed to create table %s: %v", name, err)
		}
	}
}

func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	for _, table := range []string{"order_records", "products"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestMongo connects to TEST_MONGO_URI and returns a fresh collection
// that is dropped when the test ends. The test is skipped without a URI.
func SetupTestMongo(t *testing.T) *mongo.Collection {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("mongo not available: %v", err)
	}

	coll := client.Database("decobot_test").Collection("order_records")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = coll.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return coll
}
