package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Purchase is the per-user ledger. One row per user, enforced by a unique
// index on user_id; total_price is always recomputed from the user's items.
type Purchase struct {
	bun.BaseModel `bun:"table:purchases"`

	ID         string    `bun:"id,pk" json:"id"`
	UserID     string    `bun:"user_id,notnull,unique" json:"user_id"`
	TotalPrice float64   `bun:"total_price,notnull,default:0" json:"total_price"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"created_at"`
}

// PurchaseItem is one line per (user, ticket) pair. Repeat purchases of the
// same ticket bump quantity instead of inserting a second row.
type PurchaseItem struct {
	bun.BaseModel `bun:"table:purchase_items"`

	ID           string    `bun:"id,pk" json:"id"`
	PurchaseID   string    `bun:"purchase_id,notnull" json:"purchase_id"`
	TicketID     string    `bun:"ticket_id,notnull,unique:user_ticket" json:"ticket_id"`
	UserID       string    `bun:"user_id,notnull,unique:user_ticket" json:"user_id"`
	Quantity     int       `bun:"quantity,notnull" json:"quantity"`
	UnitPrice    float64   `bun:"unit_price,notnull" json:"unit_price"`
	TotalPrice   float64   `bun:"total_price,notnull" json:"total_price"`
	PurchaseDate time.Time `bun:"purchase_date,notnull" json:"purchase_date"`
}

type AddToPurchaseRequest struct {
	TicketID string `json:"ticket_id"`
	Quantity int    `json:"quantity"`
}

// PurchaseHistory is the ledger joined with its line items, as returned by
// the history endpoint. Receipt carries the item's QR receipt PNG.
type PurchaseHistory struct {
	Purchase Purchase              `json:"purchase"`
	Items    []PurchaseHistoryItem `json:"items"`
}

type PurchaseHistoryItem struct {
	PurchaseItem
	Receipt []byte `json:"receipt,omitempty"`
}
