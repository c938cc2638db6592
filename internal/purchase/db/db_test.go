package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"eventpass/internal/models"
	"eventpass/internal/purchase/db"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Purchase)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create purchases table: %v", err)
	}

	_, err = bunDB.NewCreateTable().Model((*models.PurchaseItem)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create purchase_items table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func TestFindPurchaseByUser_NoneYet(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	purchase, err := purchaseDB.FindPurchaseByUser(context.Background(), nil, "user123")
	assert.NoError(t, err)
	assert.Nil(t, purchase)
}

func TestCreateEmptyPurchase(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	created, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", created.UserID)
	assert.NotEmpty(t, created.ID)

	found, err := purchaseDB.FindPurchaseByUser(context.Background(), nil, "user123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestCreateEmptyPurchase_DuplicateConvergesOnOneLedger(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	first, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)

	// The conflicting insert is a no-op; the existing ledger is re-read.
	second, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := bunDB.NewSelect().
		Model((*models.Purchase)(nil)).
		Where("user_id = ?", "user123").
		Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateAndFindItem(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ledger, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)

	item, err := purchaseDB.FindItemByUserAndTicket(context.Background(), nil, "user123", "ticket1")
	assert.NoError(t, err)
	assert.Nil(t, item)

	created, err := purchaseDB.CreateItem(context.Background(), nil, models.PurchaseItem{
		PurchaseID: ledger.ID,
		TicketID:   "ticket1",
		UserID:     "user123",
		Quantity:   2,
		UnitPrice:  50.0,
		TotalPrice: 100.0,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.PurchaseDate.IsZero())

	item, err = purchaseDB.FindItemByUserAndTicket(context.Background(), nil, "user123", "ticket1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, item.ID)
	assert.Equal(t, 2, item.Quantity)
}

func TestUpdateItemQuantity(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ledger, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)

	item, err := purchaseDB.CreateItem(context.Background(), nil, models.PurchaseItem{
		PurchaseID: ledger.ID,
		TicketID:   "ticket1",
		UserID:     "user123",
		Quantity:   2,
		UnitPrice:  50.0,
		TotalPrice: 100.0,
	})
	require.NoError(t, err)

	err = purchaseDB.UpdateItemQuantity(context.Background(), nil, item, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, 250.0, item.TotalPrice)

	stored, err := purchaseDB.FindItemByUserAndTicket(context.Background(), nil, "user123", "ticket1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)
	assert.Equal(t, 250.0, stored.TotalPrice)
}

func TestRecomputeTotal(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ledger, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)

	for i, price := range []float64{100.0, 60.0} {
		_, err := purchaseDB.CreateItem(context.Background(), nil, models.PurchaseItem{
			PurchaseID: ledger.ID,
			TicketID:   uuid.New().String(),
			UserID:     "user123",
			Quantity:   i + 1,
			UnitPrice:  price,
			TotalPrice: price * float64(i+1),
		})
		require.NoError(t, err)
	}

	total, err := purchaseDB.RecomputeTotal(context.Background(), nil, "user123")
	require.NoError(t, err)
	assert.Equal(t, 220.0, total)

	stored, err := purchaseDB.FindPurchaseByUser(context.Background(), nil, "user123")
	require.NoError(t, err)
	assert.Equal(t, 220.0, stored.TotalPrice)
}

func TestRecomputeTotal_NoItems(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	_, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)

	total, err := purchaseDB.RecomputeTotal(context.Background(), nil, "user123")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, total)
}

func TestFindItemsByTicketIDs(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ledger, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)

	_, err = purchaseDB.CreateItem(context.Background(), nil, models.PurchaseItem{
		PurchaseID: ledger.ID,
		TicketID:   "ticket1",
		UserID:     "user123",
		Quantity:   1,
		UnitPrice:  10.0,
		TotalPrice: 10.0,
	})
	require.NoError(t, err)

	items, err := purchaseDB.FindItemsByTicketIDs(context.Background(), []string{"ticket1", "ticket2"})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = purchaseDB.FindItemsByTicketIDs(context.Background(), []string{"ticket2"})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = purchaseDB.FindItemsByTicketIDs(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestFindItemByTicketID(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	item, err := purchaseDB.FindItemByTicketID(context.Background(), "ticket1")
	assert.NoError(t, err)
	assert.Nil(t, item)

	ledger, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)
	_, err = purchaseDB.CreateItem(context.Background(), nil, models.PurchaseItem{
		PurchaseID: ledger.ID,
		TicketID:   "ticket1",
		UserID:     "user123",
		Quantity:   1,
		UnitPrice:  10.0,
		TotalPrice: 10.0,
	})
	require.NoError(t, err)

	item, err = purchaseDB.FindItemByTicketID(context.Background(), "ticket1")
	require.NoError(t, err)
	assert.Equal(t, "user123", item.UserID)
}

func TestFindHistoryByUser(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ledger, err := purchaseDB.CreateEmptyPurchase(context.Background(), nil, "user123")
	require.NoError(t, err)

	old := models.PurchaseItem{
		ID:           uuid.New().String(),
		PurchaseID:   ledger.ID,
		TicketID:     "ticket1",
		UserID:       "user123",
		Quantity:     1,
		UnitPrice:    10.0,
		TotalPrice:   10.0,
		PurchaseDate: time.Now().Add(-time.Hour),
	}
	recent := models.PurchaseItem{
		ID:           uuid.New().String(),
		PurchaseID:   ledger.ID,
		TicketID:     "ticket2",
		UserID:       "user123",
		Quantity:     2,
		UnitPrice:    20.0,
		TotalPrice:   40.0,
		PurchaseDate: time.Now(),
	}
	for _, item := range []models.PurchaseItem{old, recent} {
		_, err := purchaseDB.CreateItem(context.Background(), nil, item)
		require.NoError(t, err)
	}

	purchase, items, err := purchaseDB.FindHistoryByUser(context.Background(), "user123", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, ledger.ID, purchase.ID)
	require.Len(t, items, 2)
	assert.Equal(t, recent.ID, items[0].ID)
	assert.Equal(t, old.ID, items[1].ID)

	// Second page is empty at this size.
	_, items, err = purchaseDB.FindHistoryByUser(context.Background(), "user123", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFindHistoryByUser_NoLedger(t *testing.T) {
	purchaseDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	purchase, items, err := purchaseDB.FindHistoryByUser(context.Background(), "ghost", 1, 10)
	assert.NoError(t, err)
	assert.Nil(t, purchase)
	assert.Nil(t, items)
}
