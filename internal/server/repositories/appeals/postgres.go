package appeals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/dbx"
	"github.com/dmitrijs2005/sic/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, appeal *models.Appeal) (*models.Appeal, error) {
	query :=
		`INSERT INTO appeals (user_id, reason)
		 VALUES ($1, $2)
		 RETURNING id, created_at`

	if err := r.db.QueryRowContext(ctx, query, appeal.UserID, appeal.Reason).Scan(&appeal.ID, &appeal.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return appeal, nil
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Appeal, error) {
	query :=
		`SELECT id, user_id, reason, resolved, approved, created_at, resolved_at, resolved_by
		 FROM appeals WHERE id = $1 FOR UPDATE`

	var (
		a          models.Appeal
		resolvedAt sql.NullTime
		resolvedBy sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Reason, &a.Resolved, &a.Approved, &a.CreatedAt, &resolvedAt, &resolvedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	a.ResolvedAt = dbx.TimePtr(resolvedAt)
	a.ResolvedBy = dbx.StringPtr(resolvedBy)
	return &a, nil
}

func (r *PostgresRepository) MarkResolved(ctx context.Context, appeal *models.Appeal) error {
	query :=
		`UPDATE appeals SET resolved = TRUE, approved = $1, resolved_at = $2, resolved_by = $3
		 WHERE id = $4 AND NOT resolved`

	var resolvedAt sql.NullTime
	if appeal.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *appeal.ResolvedAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		appeal.Approved, resolvedAt, dbx.NullString(appeal.ResolvedBy), appeal.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if err := dbx.ExpectOneRow(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrConflict
		}
		return fmt.Errorf("db error: %w", err)
	}

	appeal.Resolved = true
	return nil
}

func (r *PostgresRepository) ListPending(ctx context.Context) ([]models.PendingAppeal, error) {
	query :=
		`SELECT a.id, a.user_id, u.username, u.email, a.reason, u.blocked_code, a.created_at
		 FROM appeals a
		 JOIN users u ON u.id = a.user_id
		 WHERE NOT a.resolved
		 ORDER BY a.created_at, a.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.PendingAppeal
	for rows.Next() {
		var (
			p    models.PendingAppeal
			code sql.NullString
		)
		if err := rows.Scan(&p.AppealID, &p.UserID, &p.UserName, &p.Email, &p.Reason, &code, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		p.BlockedCode = dbx.StringPtr(code)
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
