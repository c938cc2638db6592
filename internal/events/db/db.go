package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"eventpass/internal/domain"
	"eventpass/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateEvent(ctx context.Context, event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (d *DB) UpdateEvent(ctx context.Context, event models.Event) error {
	res, err := d.Bun.NewUpdate().
		Model(&event).
		Column("name", "date", "time", "venue").
		Where("id = ?", event.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (d *DB) ListEvents(ctx context.Context, page, limit int) ([]models.Event, int, error) {
	var events []models.Event
	count, err := d.Bun.NewSelect().
		Model(&events).
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return events, count, nil
}

// SearchEvents filters events by name, case-insensitively.
func (d *DB) SearchEvents(ctx context.Context, q string, page, limit int) ([]models.Event, int, error) {
	var events []models.Event
	count, err := d.Bun.NewSelect().
		Model(&events).
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%").
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return events, count, nil
}
