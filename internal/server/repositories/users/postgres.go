package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/dbx"
	"github.com/dmitrijs2005/sic/internal/server/models"
)

const selectColumns = `SELECT id, username, email, password_hash, secret_key, birthday,
		is_admin, blocked, blocked_code, permanently_banned, created_at
		FROM users`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, password_hash, secret_key, birthday, is_admin)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.PasswordHash, user.SecretKey,
		dbx.NullString(user.Birthday), user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, selectColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, selectColumns+` WHERE username = $1`, username)
}

func (r *PostgresRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) UpdateModeration(ctx context.Context, user *models.User) error {
	query :=
		`UPDATE users SET blocked = $1, blocked_code = $2, permanently_banned = $3
		 WHERE id = $4`

	res, err := r.db.ExecContext(ctx, query,
		user.Blocked, dbx.NullString(user.BlockedCode), user.PermanentlyBanned, user.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkUpdated(res)
}

func (r *PostgresRepository) UpdateSecretKey(ctx context.Context, id int64, secretKey string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET secret_key = $1 WHERE id = $2`, secretKey, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkUpdated(res)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		u        models.User
		birthday sql.NullString
		code     sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.UserName, &u.Email, &u.PasswordHash, &u.SecretKey, &birthday,
		&u.IsAdmin, &u.Blocked, &code, &u.PermanentlyBanned, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Birthday = dbx.StringPtr(birthday)
	u.BlockedCode = dbx.StringPtr(code)
	return &u, nil
}

func checkUpdated(res sql.Result) error {
	if err := dbx.ExpectOneRow(res); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
