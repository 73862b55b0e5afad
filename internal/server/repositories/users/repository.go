package users

import (
	"context"

	"github.com/dmitrijs2005/sic/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills ID and CreatedAt. A duplicate username
	// or email is reported as common.ErrConflict.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByIDForUpdate reads the row and locks it until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	// UpdateModeration persists Blocked, BlockedCode and PermanentlyBanned.
	UpdateModeration(ctx context.Context, user *models.User) error
	UpdateSecretKey(ctx context.Context, id int64, secretKey string) error
}
