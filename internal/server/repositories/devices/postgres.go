package devices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/dbx"
	"github.com/dmitrijs2005/sic/internal/server/models"
)

const selectColumns = `SELECT id, name, owner_id, authorized, public_key, created_at FROM devices`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, device *models.Device) (*models.Device, error) {
	query :=
		`INSERT INTO devices (name, owner_id, authorized, public_key)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		device.Name, device.OwnerID, device.Authorized, dbx.NullString(device.PublicKey),
	).Scan(&device.ID, &device.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return device, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Device, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) SetAuthorized(ctx context.Context, id int64, authorized bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE devices SET authorized = $1 WHERE id = $2`, authorized, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.ExpectOneRow(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeauthorizeByOwner(ctx context.Context, ownerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET authorized = FALSE WHERE owner_id = $1 AND authorized`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id int64) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDevice(s scanner) (*models.Device, error) {
	var (
		d   models.Device
		key sql.NullString
	)
	if err := s.Scan(&d.ID, &d.Name, &d.OwnerID, &d.Authorized, &key, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.PublicKey = dbx.StringPtr(key)
	return &d, nil
}
