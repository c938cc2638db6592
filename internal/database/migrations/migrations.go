package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"eventpass/internal/models"
)

// Run creates the schema. CreateTable honors the unique tags the workflow
// depends on: purchases.user_id and purchase_items(user_id, ticket_id).
func Run(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Event)(nil),
		(*models.Ticket)(nil),
		(*models.Purchase)(nil),
		(*models.PurchaseItem)(nil),
	}

	for _, table := range tables {
		_, err := db.NewCreateTable().
			Model(table).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create table for %T: %w", table, err)
		}
	}
	return nil
}
