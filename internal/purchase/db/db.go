package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"eventpass/internal/models"
)

// DB holds the ledger (purchases) and line-item (purchase_items) stores.
// Every method takes a bun.IDB so the orchestrator can run the whole
// workflow inside one transaction; passing nil falls back to the root DB.
type DB struct {
	Bun *bun.DB
}

func (d *DB) idb(idb bun.IDB) bun.IDB {
	if idb == nil {
		return d.Bun
	}
	return idb
}

// FindPurchaseByUser returns the user's ledger, or nil if none exists yet.
func (d *DB) FindPurchaseByUser(ctx context.Context, idb bun.IDB, userID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := d.idb(idb).NewSelect().
		Model(&purchase).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &purchase, nil
}

// CreateEmptyPurchase inserts a fresh ledger for the user. The unique index
// on user_id decides races: the losing insert is a no-op and the winner's
// row is re-read and returned, so concurrent first purchases converge on a
// single ledger.
func (d *DB) CreateEmptyPurchase(ctx context.Context, idb bun.IDB, userID string) (*models.Purchase, error) {
	purchase := models.Purchase{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	res, err := d.idb(idb).NewInsert().
		Model(&purchase).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return d.FindPurchaseByUser(ctx, idb, userID)
	}
	return &purchase, nil
}

// FindItemByUserAndTicket returns the user's line item for the ticket, or
// nil if the user has never bought this ticket.
func (d *DB) FindItemByUserAndTicket(ctx context.Context, idb bun.IDB, userID, ticketID string) (*models.PurchaseItem, error) {
	var item models.PurchaseItem
	err := d.idb(idb).NewSelect().
		Model(&item).
		Where("user_id = ?", userID).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (d *DB) CreateItem(ctx context.Context, idb bun.IDB, item models.PurchaseItem) (*models.PurchaseItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.PurchaseDate.IsZero() {
		item.PurchaseDate = time.Now()
	}
	_, err := d.idb(idb).NewInsert().Model(&item).Exec(ctx)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemQuantity adds delta to the item's quantity and recomputes its
// total from the snapshotted unit price.
func (d *DB) UpdateItemQuantity(ctx context.Context, idb bun.IDB, item *models.PurchaseItem, delta int) error {
	item.Quantity += delta
	item.TotalPrice = item.UnitPrice * float64(item.Quantity)
	_, err := d.idb(idb).NewUpdate().
		Model(item).
		Column("quantity", "total_price").
		Where("id = ?", item.ID).
		Exec(ctx)
	return err
}

// RecomputeTotal derives the ledger total from the full item set and
// persists it. A fresh SUM rather than an incremental add, so a ledger can
// never drift from its items.
func (d *DB) RecomputeTotal(ctx context.Context, idb bun.IDB, userID string) (float64, error) {
	var total sql.NullFloat64
	err := d.idb(idb).NewSelect().
		Model((*models.PurchaseItem)(nil)).
		ColumnExpr("SUM(total_price)").
		Where("user_id = ?", userID).
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	_, err = d.idb(idb).NewUpdate().
		Model((*models.Purchase)(nil)).
		Set("total_price = ?", total.Float64).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// FindItemsByTicketIDs is the event-deletion guard query: any rows mean the
// event still has purchased tickets.
func (d *DB) FindItemsByTicketIDs(ctx context.Context, ticketIDs []string) ([]models.PurchaseItem, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	var items []models.PurchaseItem
	err := d.Bun.NewSelect().
		Model(&items).
		Where("ticket_id IN (?)", bun.In(ticketIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindItemByTicketID is the single-ticket deletion guard.
func (d *DB) FindItemByTicketID(ctx context.Context, ticketID string) (*models.PurchaseItem, error) {
	var item models.PurchaseItem
	err := d.Bun.NewSelect().
		Model(&item).
		Where("ticket_id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// FindHistoryByUser returns the ledger with its items, newest first.
func (d *DB) FindHistoryByUser(ctx context.Context, userID string, page, limit int) (*models.Purchase, []models.PurchaseItem, error) {
	purchase, err := d.FindPurchaseByUser(ctx, nil, userID)
	if err != nil {
		return nil, nil, err
	}
	if purchase == nil {
		return nil, nil, nil
	}

	var items []models.PurchaseItem
	err = d.Bun.NewSelect().
		Model(&items).
		Where("user_id = ?", userID).
		Order("purchase_date DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Scan(ctx)
	if err != nil {
		return nil, nil, err
	}
	return purchase, items, nil
}
