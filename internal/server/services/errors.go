package services

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/logging"
)

var domainErrors = []error{
	common.ErrUnauthorized,
	common.ErrForbidden,
	common.ErrNotFound,
	common.ErrConflict,
	common.ErrInvalidArgument,
	common.ErrNotBlocked,
}

// sanitize passes domain errors through and collapses anything else into
// common.ErrInternal after logging it.
func sanitize(ctx context.Context, log logging.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	log.Error(ctx, "operation failed", "op", op, "error", err)
	return common.ErrInternal
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
