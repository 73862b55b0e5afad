// Package services contains the server-side business logic: account and
// device registration, session authentication and the WatcherDog
// moderation engine.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/dbx"
	"github.com/dmitrijs2005/sic/internal/server/auth"
	"github.com/dmitrijs2005/sic/internal/server/config"
	"github.com/dmitrijs2005/sic/internal/server/models"
	"github.com/dmitrijs2005/sic/internal/server/repositories/repomanager"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	User    *models.User
	IsAdmin bool
}

func (p *Principal) UserID() int64    { return p.User.ID }
func (p *Principal) UserName() string { return p.User.UserName }

// Authenticator issues session tokens and resolves them back to a
// Principal. The token subject is the username. In per-user mode the signing key is the account's secret, so
// verification is two-phase: the unverified subject selects the account,
// then the token is verified against that account's secret.
type Authenticator struct {
	mode      config.SigningMode
	globalKey []byte
	tokens    *auth.TokenService
	runner    dbx.Runner
	repos     repomanager.RepositoryManager
}

func NewAuthenticator(cfg *config.Config, tokens *auth.TokenService, runner dbx.Runner, repos repomanager.RepositoryManager) *Authenticator {
	return &Authenticator{
		mode:      cfg.SigningMode,
		globalKey: []byte(cfg.SecretKey),
		tokens:    tokens,
		runner:    runner,
		repos:     repos,
	}
}

// PerUser reports whether rotating an account secret revokes its sessions.
func (a *Authenticator) PerUser() bool {
	return a.mode != config.SigningModeGlobal
}

// Issue mints a session token for u.
func (a *Authenticator) Issue(u *models.User) (string, error) {
	return a.tokens.Issue(u.UserName, u.IsAdmin, a.keyFor(u))
}

// Authenticate verifies token and loads the caller. Every failure wraps
// common.ErrUnauthorized; expired tokens also match common.ErrTokenExpired.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", common.ErrUnauthorized)
	}

	subject, err := auth.PeekSubject(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}

	user, err := a.repos.Users(a.runner.Conn()).GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}

	claims, err := a.tokens.Verify(token, a.keyFor(user))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}

	return &Principal{
		User:    user,
		IsAdmin: claims.IsAdmin && user.IsAdmin,
	}, nil
}

func (a *Authenticator) keyFor(u *models.User) []byte {
	if a.mode == config.SigningModeGlobal {
		return a.globalKey
	}
	return []byte(u.SecretKey)
}
