package devices

import (
	"context"

	"github.com/dmitrijs2005/sic/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, device *models.Device) (*models.Device, error)
	GetByID(ctx context.Context, id int64) (*models.Device, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Device, error)
	SetAuthorized(ctx context.Context, id int64, authorized bool) error
	// DeauthorizeByOwner revokes every device of ownerID and returns how
	// many were still authorized.
	DeauthorizeByOwner(ctx context.Context, ownerID int64) (int64, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Device, error)
}
