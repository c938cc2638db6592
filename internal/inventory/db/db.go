package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"eventpass/internal/domain"
	"eventpass/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetTicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) CreateTicket(ctx context.Context, ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx)
	return err
}

func (d *DB) UpdateTicket(ctx context.Context, ticket models.Ticket) error {
	res, err := d.Bun.NewUpdate().
		Model(&ticket).
		Column("category", "price", "available_ticket").
		Where("id = ?", ticket.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (d *DB) DeleteTicket(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (d *DB) GetTicketsByEventID(ctx context.Context, eventID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("event_id = ?", eventID).
		Order("created_at").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// DecrementStock subtracts amount from the ticket's available_ticket in a
// single conditional UPDATE. The stock check and the subtraction happen in
// one statement, so two concurrent calls can never both pass a stale check:
// the second one sees the already-decremented row and fails the guard.
func (d *DB) DecrementStock(ctx context.Context, idb bun.IDB, ticketID string, amount int) (*models.Ticket, error) {
	if idb == nil {
		idb = d.Bun
	}
	res, err := idb.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("available_ticket = available_ticket - ?", amount).
		Where("id = ?", ticketID).
		Where("available_ticket >= ?", amount).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Guard failed: either the ticket is gone or the stock ran out.
		exists, err := idb.NewSelect().
			Model((*models.Ticket)(nil)).
			Where("id = ?", ticketID).
			Exists(ctx)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, domain.ErrTicketNotFound
		}
		return nil, domain.ErrInsufficientStock
	}

	var ticket models.Ticket
	err = idb.NewSelect().
		Model(&ticket).
		Where("id = ?", ticketID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}
