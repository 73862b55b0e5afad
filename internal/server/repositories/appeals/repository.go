package appeals

import (
	"context"

	"github.com/dmitrijs2005/sic/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, appeal *models.Appeal) (*models.Appeal, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Appeal, error)
	// MarkResolved stores the resolution of a still pending appeal.
	// It returns common.ErrConflict if the appeal was already resolved.
	MarkResolved(ctx context.Context, appeal *models.Appeal) error
	// ListPending returns unresolved appeals, oldest first.
	ListPending(ctx context.Context) ([]models.PendingAppeal, error)
}
