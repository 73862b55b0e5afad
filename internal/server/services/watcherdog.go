package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/dbx"
	"github.com/dmitrijs2005/sic/internal/logging"
	"github.com/dmitrijs2005/sic/internal/server/audit"
	"github.com/dmitrijs2005/sic/internal/server/models"
	"github.com/dmitrijs2005/sic/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sic/internal/server/repositories/users"
	"github.com/dmitrijs2005/sic/internal/server/sitestate"
)

// Confirmation phrases for site-wide actions. Matching is exact.
const (
	ConfirmLock     = "CONFIRM_LOCK"
	ConfirmUnlock   = "CONFIRM_UNLOCK"
	ConfirmShutdown = "CONFIRM_SHUTDOWN"
)

// Sanction tiers for BlockUserTiered.
const (
	TierBlock = iota + 1
	TierBlockDevices
	TierRevokeSessions
)

// SanctionResult describes the effect of a user sanction.
type SanctionResult struct {
	User                *models.User
	DevicesDeauthorized int64
	SessionsRevoked     bool
}

// WatcherDog is the administrative moderation engine. Every operation
// except SubmitAppeal requires an admin caller. State changes run in one
// transaction and are audited after commit.
type WatcherDog struct {
	runner       dbx.Runner
	repos        repomanager.RepositoryManager
	authn        *Authenticator
	site         sitestate.Store
	audit        audit.Sink
	secretLength int
	logger       logging.Logger
	now          func() time.Time
}

func NewWatcherDog(runner dbx.Runner, repos repomanager.RepositoryManager, authn *Authenticator,
	site sitestate.Store, sink audit.Sink, secretLength int, logger logging.Logger) *WatcherDog {
	return &WatcherDog{
		runner:       runner,
		repos:        repos,
		authn:        authn,
		site:         site,
		audit:        sink,
		secretLength: secretLength,
		logger:       logger.With("module", "watcherdog"),
		now:          time.Now,
	}
}

func (w *WatcherDog) LockSite(ctx context.Context, token, phrase string) error {
	return w.setLocked(ctx, token, phrase, true)
}

func (w *WatcherDog) UnlockSite(ctx context.Context, token, phrase string) error {
	return w.setLocked(ctx, token, phrase, false)
}

func (w *WatcherDog) setLocked(ctx context.Context, token, phrase string, locked bool) error {
	op, want, action := "unlock site", ConfirmUnlock, "Website unlocked"
	if locked {
		op, want, action = "lock site", ConfirmLock, "Website locked"
	}

	admin, err := w.requireAdmin(ctx, token)
	if err != nil {
		return sanitize(ctx, w.logger, op, err)
	}
	if phrase != want {
		return common.ErrInvalidConfirmation
	}

	if err := w.site.SetLocked(ctx, locked, admin.UserName(), w.now().UTC()); err != nil {
		return sanitize(ctx, w.logger, op, err)
	}

	w.record(ctx, admin.UserName(), action)
	return nil
}

// RequestShutdown records a shutdown request. Stopping the site is up to
// the operator.
func (w *WatcherDog) RequestShutdown(ctx context.Context, token, phrase string) error {
	admin, err := w.requireAdmin(ctx, token)
	if err != nil {
		return sanitize(ctx, w.logger, "request shutdown", err)
	}
	if phrase != ConfirmShutdown {
		return common.ErrInvalidConfirmation
	}

	if err := w.site.RequestShutdown(ctx, admin.UserName(), w.now().UTC()); err != nil {
		return sanitize(ctx, w.logger, "request shutdown", err)
	}

	w.record(ctx, admin.UserName(), "Shutdown requested")
	return nil
}

func (w *WatcherDog) SiteStatus(ctx context.Context, token string) (models.SiteState, error) {
	if _, err := w.requireAdmin(ctx, token); err != nil {
		return models.SiteState{}, sanitize(ctx, w.logger, "site status", err)
	}

	st, err := w.site.Get(ctx)
	if err != nil {
		return models.SiteState{}, sanitize(ctx, w.logger, "site status", err)
	}
	return st, nil
}

func (w *WatcherDog) BlockDevice(ctx context.Context, token string, deviceID int64) (*models.Device, error) {
	return w.setDeviceAuthorized(ctx, token, deviceID, false)
}

func (w *WatcherDog) UnblockDevice(ctx context.Context, token string, deviceID int64) (*models.Device, error) {
	return w.setDeviceAuthorized(ctx, token, deviceID, true)
}

func (w *WatcherDog) setDeviceAuthorized(ctx context.Context, token string, deviceID int64, authorized bool) (*models.Device, error) {
	op, verb := "block device", "blocked"
	if authorized {
		op, verb = "unblock device", "unblocked"
	}

	admin, err := w.requireAdmin(ctx, token)
	if err != nil {
		return nil, sanitize(ctx, w.logger, op, err)
	}

	var device *models.Device
	err = w.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := w.repos.Devices(tx)

		d, err := repo.GetByIDForUpdate(ctx, deviceID)
		if err != nil {
			return err
		}
		if err := repo.SetAuthorized(ctx, d.ID, authorized); err != nil {
			return err
		}
		d.Authorized = authorized
		device = d
		return nil
	})
	if err != nil {
		return nil, sanitize(ctx, w.logger, op, err)
	}

	w.record(ctx, admin.UserName(), fmt.Sprintf("Device %s %s", device.Name, verb))
	return device, nil
}

// BlockUserTiered applies a sanction tier to a user:
//
//	1: block the account
//	2: tier 1 and deauthorize every device of the user
//	3: tier 2 and rotate the user's secret, ending all sessions
//
// Tiers are not cumulative across calls, and a lower tier never restores
// what a higher one took away. A permanent ban is never downgraded.
func (w *WatcherDog) BlockUserTiered(ctx context.Context, token string, userID int64, tier int) (*SanctionResult, error) {
	admin, err := w.requireAdmin(ctx, token)
	if err != nil {
		return nil, sanitize(ctx, w.logger, "block user", err)
	}
	if tier < TierBlock || tier > TierRevokeSessions {
		return nil, fmt.Errorf("%w: tier must be 1, 2 or 3", common.ErrInvalidArgument)
	}

	res := &SanctionResult{}
	err = w.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		userRepo := w.repos.Users(tx)

		u, err := userRepo.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		u.ApplyBlock()
		if err := userRepo.UpdateModeration(ctx, u); err != nil {
			return err
		}

		if tier >= TierBlockDevices {
			n, err := w.repos.Devices(tx).DeauthorizeByOwner(ctx, u.ID)
			if err != nil {
				return err
			}
			res.DevicesDeauthorized = n
		}

		if tier == TierRevokeSessions {
			if err := w.rotateSecret(ctx, userRepo, u); err != nil {
				return err
			}
			res.SessionsRevoked = w.authn.PerUser()
		}

		res.User = u
		return nil
	})
	if err != nil {
		return nil, sanitize(ctx, w.logger, "block user", err)
	}

	w.record(ctx, admin.UserName(), fmt.Sprintf("User %s blocked (tier %d)", res.User.UserName, tier))
	return res, nil
}

// PermanentBan bans a user for good. Repeating it is harmless; the secret
// is rotated only by the first ban.
func (w *WatcherDog) PermanentBan(ctx context.Context, token string, userID int64) (*SanctionResult, error) {
	admin, err := w.requireAdmin(ctx, token)
	if err != nil {
		return nil, sanitize(ctx, w.logger, "ban user", err)
	}

	res := &SanctionResult{}
	err = w.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		userRepo := w.repos.Users(tx)

		u, err := userRepo.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		firstBan := !u.PermanentlyBanned
		u.ApplyBan()
		if err := userRepo.UpdateModeration(ctx, u); err != nil {
			return err
		}

		n, err := w.repos.Devices(tx).DeauthorizeByOwner(ctx, u.ID)
		if err != nil {
			return err
		}
		res.DevicesDeauthorized = n

		if firstBan {
			if err := w.rotateSecret(ctx, userRepo, u); err != nil {
				return err
			}
			res.SessionsRevoked = w.authn.PerUser()
		}

		res.User = u
		return nil
	})
	if err != nil {
		return nil, sanitize(ctx, w.logger, "ban user", err)
	}

	w.record(ctx, admin.UserName(), fmt.Sprintf("User %s permanently banned", res.User.UserName))
	return res, nil
}

// RevokeSessions rotates a user's secret without changing its moderation
// state.
func (w *WatcherDog) RevokeSessions(ctx context.Context, token string, userID int64) error {
	admin, err := w.requireAdmin(ctx, token)
	if err != nil {
		return sanitize(ctx, w.logger, "revoke sessions", err)
	}

	var userName string
	err = w.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		userRepo := w.repos.Users(tx)

		u, err := userRepo.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		userName = u.UserName
		return w.rotateSecret(ctx, userRepo, u)
	})
	if err != nil {
		return sanitize(ctx, w.logger, "revoke sessions", err)
	}

	if !w.authn.PerUser() {
		w.logger.Warn(ctx, "secret rotated but tokens are signed with the global key", "user_id", userID)
	}
	w.record(ctx, admin.UserName(), fmt.Sprintf("Sessions of user %s revoked", userName))
	return nil
}

// SubmitAppeal files an appeal for the caller's own block. Banned callers
// cannot appeal.
func (w *WatcherDog) SubmitAppeal(ctx context.Context, token, reason string) (*models.Appeal, error) {
	p, err := w.authn.Authenticate(ctx, token)
	if err != nil {
		return nil, sanitize(ctx, w.logger, "submit appeal", err)
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", common.ErrInvalidArgument)
	}

	var appeal *models.Appeal
	err = w.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := w.repos.Users(tx).GetByIDForUpdate(ctx, p.UserID())
		if err != nil {
			return err
		}
		if u.PermanentlyBanned {
			return fmt.Errorf("%w: permanent bans cannot be appealed", common.ErrForbidden)
		}
		if !u.Blocked {
			return common.ErrNotBlocked
		}

		appeal, err = w.repos.Appeals(tx).Create(ctx, &models.Appeal{UserID: u.ID, Reason: reason})
		return err
	})
	if err != nil {
		return nil, sanitize(ctx, w.logger, "submit appeal", err)
	}

	w.record(ctx, p.UserName(), fmt.Sprintf("Appeal %d submitted", appeal.ID))
	return appeal, nil
}

func (w *WatcherDog) ListPendingAppeals(ctx context.Context, token string) ([]models.PendingAppeal, error) {
	if _, err := w.requireAdmin(ctx, token); err != nil {
		return nil, sanitize(ctx, w.logger, "list appeals", err)
	}

	list, err := w.repos.Appeals(w.runner.Conn()).ListPending(ctx)
	if err != nil {
		return nil, sanitize(ctx, w.logger, "list appeals", err)
	}
	return list, nil
}

// ResolveAppeal approves or rejects a pending appeal. Approval lifts the
// owner's block unless the owner has been permanently banned since.
func (w *WatcherDog) ResolveAppeal(ctx context.Context, token string, appealID int64, approve bool) (*models.Appeal, error) {
	admin, err := w.requireAdmin(ctx, token)
	if err != nil {
		return nil, sanitize(ctx, w.logger, "resolve appeal", err)
	}

	var appeal *models.Appeal
	err = w.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		appealRepo := w.repos.Appeals(tx)
		userRepo := w.repos.Users(tx)

		a, err := appealRepo.GetByIDForUpdate(ctx, appealID)
		if err != nil {
			return err
		}
		if a.Resolved {
			return fmt.Errorf("%w: appeal already resolved", common.ErrConflict)
		}

		u, err := userRepo.GetByIDForUpdate(ctx, a.UserID)
		if err != nil {
			return err
		}
		if approve && u.ClearBlock() {
			if err := userRepo.UpdateModeration(ctx, u); err != nil {
				return err
			}
		}

		at := w.now().UTC()
		by := admin.UserName()
		a.Approved = approve
		a.ResolvedAt = &at
		a.ResolvedBy = &by
		if err := appealRepo.MarkResolved(ctx, a); err != nil {
			return err
		}

		appeal = a
		return nil
	})
	if err != nil {
		return nil, sanitize(ctx, w.logger, "resolve appeal", err)
	}

	verdict := "rejected"
	if approve {
		verdict = "approved"
	}
	w.record(ctx, admin.UserName(), fmt.Sprintf("Appeal %d %s", appeal.ID, verdict))
	return appeal, nil
}

func (w *WatcherDog) requireAdmin(ctx context.Context, token string) (*Principal, error) {
	p, err := w.authn.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin {
		return nil, fmt.Errorf("%w: admin role required", common.ErrForbidden)
	}
	return p, nil
}

func (w *WatcherDog) rotateSecret(ctx context.Context, repo users.Repository, u *models.User) error {
	secret, err := common.MakeRandHexString(w.secretLength)
	if err != nil {
		return err
	}
	if err := repo.UpdateSecretKey(ctx, u.ID, secret); err != nil {
		return err
	}
	u.SecretKey = secret
	return nil
}

// record appends an audit entry. Failures are logged and never undo the
// already committed change.
func (w *WatcherDog) record(ctx context.Context, actor, action string) {
	rec := audit.Record{Action: action, Actor: actor, At: w.now().UTC()}
	if err := w.audit.Append(ctx, rec); err != nil {
		w.logger.Warn(ctx, "audit append failed", "action", action, "error", err)
		return
	}
	w.logger.Info(ctx, action, "actor", actor)
}
