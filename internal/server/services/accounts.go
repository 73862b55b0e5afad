package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/dbx"
	"github.com/dmitrijs2005/sic/internal/logging"
	"github.com/dmitrijs2005/sic/internal/server/models"
	"github.com/dmitrijs2005/sic/internal/server/passwords"
	"github.com/dmitrijs2005/sic/internal/server/repositories/repomanager"
)

const maxUserNameLength = 64

// RegisterUserInput carries the fields of a new account.
type RegisterUserInput struct {
	UserName string
	Password string
	Email    string
	// Birthday is optional, formatted as YYYY-MM-DD.
	Birthday *string
}

// AccountService handles registration, login and device registration.
type AccountService struct {
	runner       dbx.Runner
	repos        repomanager.RepositoryManager
	authn        *Authenticator
	hasher       *passwords.Hasher
	secretLength int
	logger       logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(runner dbx.Runner, repos repomanager.RepositoryManager, authn *Authenticator,
	hasher *passwords.Hasher, secretLength int, logger logging.Logger) *AccountService {
	return &AccountService{
		runner:       runner,
		repos:        repos,
		authn:        authn,
		hasher:       hasher,
		secretLength: secretLength,
		logger:       logger.With("module", "accounts"),
	}
}

// RegisterUser creates a regular (non-admin) account. A taken username or
// email yields common.ErrConflict.
func (s *AccountService) RegisterUser(ctx context.Context, in RegisterUserInput) (*models.User, error) {
	userName := strings.TrimSpace(in.UserName)
	email := strings.TrimSpace(in.Email)

	if err := validateRegistration(userName, in.Password, email, in.Birthday); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "register user", err)
	}
	secret, err := common.MakeRandHexString(s.secretLength)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "register user", err)
	}

	user := &models.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		SecretKey:    secret,
		Birthday:     normalizeBirthday(in.Birthday),
	}

	err = s.runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		exists, err := repo.ExistsByUsernameOrEmail(ctx, userName, email)
		if err != nil {
			return err
		}
		if exists {
			return common.ErrConflict
		}

		_, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		return nil, sanitize(ctx, s.logger, "register user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and returns a session token. Unknown users and
// wrong passwords are indistinguishable. Blocked users may log in so they
// can appeal; permanently banned users may not.
func (s *AccountService) Login(ctx context.Context, userName, password string) (string, error) {
	user, err := s.repos.Users(s.runner.Conn()).GetByUsername(ctx, strings.TrimSpace(userName))
	if err != nil {
		if isNotFound(err) {
			s.hasher.Verify(password, s.dummy())
			return "", common.ErrUnauthorized
		}
		return "", sanitize(ctx, s.logger, "login", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", common.ErrUnauthorized
	}
	if user.PermanentlyBanned {
		return "", fmt.Errorf("%w: account is permanently banned", common.ErrForbidden)
	}

	token, err := s.authn.Issue(user)
	if err != nil {
		return "", sanitize(ctx, s.logger, "login", err)
	}
	return token, nil
}

// RegisterDevice adds a device owned by the caller. Devices start
// authorized. Blocked callers cannot add devices.
func (s *AccountService) RegisterDevice(ctx context.Context, token, name string, publicKey *string) (*models.Device, error) {
	p, err := s.authn.Authenticate(ctx, token)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "register device", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: device name is required", common.ErrInvalidArgument)
	}
	if p.User.Blocked {
		return nil, fmt.Errorf("%w: account is blocked", common.ErrForbidden)
	}

	device := &models.Device{
		Name:       name,
		OwnerID:    p.UserID(),
		Authorized: true,
		PublicKey:  publicKey,
	}
	if _, err := s.repos.Devices(s.runner.Conn()).Create(ctx, device); err != nil {
		return nil, sanitize(ctx, s.logger, "register device", err)
	}

	s.logger.Info(ctx, "device registered", "device_id", device.ID, "user_id", device.OwnerID)
	return device, nil
}

// ListDevices returns the caller's devices.
func (s *AccountService) ListDevices(ctx context.Context, token string) ([]models.Device, error) {
	p, err := s.authn.Authenticate(ctx, token)
	if err != nil {
		return nil, sanitize(ctx, s.logger, "list devices", err)
	}

	list, err := s.repos.Devices(s.runner.Conn()).ListByOwner(ctx, p.UserID())
	if err != nil {
		return nil, sanitize(ctx, s.logger, "list devices", err)
	}
	return list, nil
}

// dummy returns a hash to compare against for unknown users, so the
// response time does not reveal whether the account exists.
func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		pw, _ := common.MakeRandHexString(16)
		h, err := s.hasher.Hash(pw)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func validateRegistration(userName, password, email string, birthday *string) error {
	switch {
	case userName == "":
		return fmt.Errorf("%w: username is required", common.ErrInvalidArgument)
	case len(userName) > maxUserNameLength:
		return fmt.Errorf("%w: username is longer than %d characters", common.ErrInvalidArgument, maxUserNameLength)
	case password == "":
		return fmt.Errorf("%w: password is required", common.ErrInvalidArgument)
	case email == "":
		return fmt.Errorf("%w: email is required", common.ErrInvalidArgument)
	}

	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return fmt.Errorf("%w: malformed email", common.ErrInvalidArgument)
	}

	if b := normalizeBirthday(birthday); b != nil {
		if _, err := time.Parse(time.DateOnly, *b); err != nil {
			return fmt.Errorf("%w: birthday must be YYYY-MM-DD", common.ErrInvalidArgument)
		}
	}
	return nil
}

func normalizeBirthday(b *string) *string {
	if b == nil {
		return nil
	}
	v := strings.TrimSpace(*b)
	if v == "" {
		return nil
	}
	return &v
}
