package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decobot/internal/domain"
	"decobot/internal/testutil"
)

var catalog = []domain.Product{
	{ID: "b-101", Name: "سرویس خواب نوزاد", Category: "baby", Price: 4780000},
	{ID: "t-201", Name: "رومیزی", Category: "tablecloth", Price: 2400000,
		SizePrices: map[string]int64{"120x160": 2400000, "160x220": 3100000}},
	{ID: "c-301", Name: "کوسن", Category: "cushion", Price: 2800000, Disabled: true},
}

// Unit Tests

func TestNewMySQLRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestMemoryRepository_FindByIDs(t *testing.T) {
	repo := NewMemoryRepository(catalog)

	products, err := repo.FindByIDs(context.Background(), []string{"t-201", "missing", "b-101", "t-201"})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "b-101", products[0].ID)
	assert.Equal(t, "t-201", products[1].ID)
	assert.Equal(t, int64(3100000), products[1].PriceFor("160x220"))
}

func TestMemoryRepository_FindByIDs_EmptyList(t *testing.T) {
	repo := NewMemoryRepository(catalog)

	products, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, products)
}

// Integration Tests

func TestRepository_FindByIDs_Success(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLRepository(db)
	require.NoError(t, repo.Upsert(context.Background(), catalog))

	products, err := repo.FindByIDs(context.Background(), []string{"b-101", "c-301", "t-201"})
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "b-101", products[0].ID)
	assert.Nil(t, products[0].SizePrices)
	assert.True(t, products[1].Disabled)
	assert.Equal(t, int64(3100000), products[2].SizePrices["160x220"])
}

func TestRepository_FindByIDs_EmptyList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLRepository(db)

	products, err := repo.FindByIDs(context.Background(), []string{})
	require.NoError(t, err)
	assert.Nil(t, products)
}

func TestRepository_Upsert_ReplacesPrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLRepository(db)
	require.NoError(t, repo.Upsert(context.Background(), catalog[:1]))

	updated := catalog[0]
	updated.Price = 5000000
	require.NoError(t, repo.Upsert(context.Background(), []domain.Product{updated}))

	var price int64
	err := db.QueryRow(`SELECT price FROM products WHERE id = ?`, "b-101").Scan(&price)
	require.NoError(t, err)
	assert.Equal(t, int64(5000000), price)
}
