package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"eventpass/internal/domain"
	"eventpass/internal/models"
)

// DB is the user directory. The services only ever read from it; account
// creation and credentials live with the identity provider.
type DB struct {
	Bun *bun.DB
}

func (d *DB) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (d *DB) UserExists(ctx context.Context, id string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exists(ctx)
}
