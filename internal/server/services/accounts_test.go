package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/server/auth"
	"github.com/dmitrijs2005/sic/internal/server/config"
	"github.com/dmitrijs2005/sic/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRegisterUser_Success(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	env.expectCommit()

	u, err := env.accounts.RegisterUser(context.Background(), RegisterUserInput{
		UserName: " alice ",
		Password: "pw",
		Email:    "alice@example.com",
		Birthday: strPtr("1990-04-01"),
	})
	require.NoError(t, err)

	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.UserName)
	assert.NotEqual(t, "pw", u.PasswordHash)
	assert.Len(t, u.SecretKey, 64)
	assert.False(t, u.IsAdmin)
	assert.False(t, u.Blocked)
	assert.Nil(t, u.BlockedCode)
	require.NotNil(t, u.Birthday)
	assert.Equal(t, "1990-04-01", *u.Birthday)
}

func TestRegisterUser_SecretsAreUnique(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	env.expectCommit()
	env.expectCommit()

	a, err := env.accounts.RegisterUser(context.Background(), RegisterUserInput{UserName: "a", Password: "pw", Email: "a@example.com"})
	require.NoError(t, err)
	b, err := env.accounts.RegisterUser(context.Background(), RegisterUserInput{UserName: "b", Password: "pw", Email: "b@example.com"})
	require.NoError(t, err)

	assert.NotEqual(t, a.SecretKey, b.SecretKey)
}

func TestRegisterUser_Duplicate(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	env.seedUser(t, "alice", false)

	env.expectRollback()
	_, err := env.accounts.RegisterUser(context.Background(), RegisterUserInput{UserName: "alice", Password: "pw", Email: "new@example.com"})
	assert.ErrorIs(t, err, common.ErrConflict)

	env.expectRollback()
	_, err = env.accounts.RegisterUser(context.Background(), RegisterUserInput{UserName: "other", Password: "pw", Email: "alice@example.com"})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRegisterUser_Validation(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)

	tests := []struct {
		name string
		in   RegisterUserInput
	}{
		{name: "no username", in: RegisterUserInput{Password: "pw", Email: "a@example.com"}},
		{name: "long username", in: RegisterUserInput{UserName: string(make([]byte, 65)), Password: "pw", Email: "a@example.com"}},
		{name: "no password", in: RegisterUserInput{UserName: "a", Email: "a@example.com"}},
		{name: "no email", in: RegisterUserInput{UserName: "a", Password: "pw"}},
		{name: "bad email", in: RegisterUserInput{UserName: "a", Password: "pw", Email: "not-an-email"}},
		{name: "display name email", in: RegisterUserInput{UserName: "a", Password: "pw", Email: "Alice <a@example.com>"}},
		{name: "bad birthday", in: RegisterUserInput{UserName: "a", Password: "pw", Email: "a@example.com", Birthday: strPtr("01/02/1990")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.RegisterUser(context.Background(), tt.in)
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}
}

func TestRegisterUser_EmptyBirthdayIsNil(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	env.expectCommit()

	u, err := env.accounts.RegisterUser(context.Background(), RegisterUserInput{
		UserName: "a", Password: "pw", Email: "a@example.com", Birthday: strPtr("  "),
	})
	require.NoError(t, err)
	assert.Nil(t, u.Birthday)
}

func TestRegisterUser_StorageFailureIsInternal(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	env.mem.failOn["users.Create"] = true
	env.expectRollback()

	_, err := env.accounts.RegisterUser(context.Background(), RegisterUserInput{UserName: "a", Password: "pw", Email: "a@example.com"})
	assert.ErrorIs(t, err, common.ErrInternal)
	assert.NotErrorIs(t, err, errBoom)
}

func registerAndLogin(t *testing.T, env *testEnv, name string) (*models.User, string) {
	t.Helper()
	env.expectCommit()
	u, err := env.accounts.RegisterUser(context.Background(), RegisterUserInput{UserName: name, Password: "pw-" + name, Email: name + "@example.com"})
	require.NoError(t, err)

	tok, err := env.accounts.Login(context.Background(), name, "pw-"+name)
	require.NoError(t, err)
	return u, tok
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	u, tok := registerAndLogin(t, env, "alice")

	subject, err := auth.PeekSubject(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	claims, err := auth.NewTokenService(time.Hour).Verify(tok, []byte(env.user(u.ID).SecretKey))
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)

	p, err := env.authn.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID())
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	registerAndLogin(t, env, "alice")

	_, err := env.accounts.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.accounts.Login(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_BlockedAllowedBannedRejected(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	u, _ := registerAndLogin(t, env, "alice")

	stored := env.user(u.ID)
	stored.ApplyBlock()
	require.NoError(t, fakeUsers{env.mem}.UpdateModeration(context.Background(), stored))

	_, err := env.accounts.Login(context.Background(), "alice", "pw-alice")
	assert.NoError(t, err)

	stored.ApplyBan()
	require.NoError(t, fakeUsers{env.mem}.UpdateModeration(context.Background(), stored))

	_, err = env.accounts.Login(context.Background(), "alice", "pw-alice")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestRegisterDevice_BoundToCaller(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	u, tok := env.seedUser(t, "alice", false)

	d, err := env.accounts.RegisterDevice(context.Background(), tok, " laptop ", strPtr("ssh-ed25519 AAAA"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, d.OwnerID)
	assert.Equal(t, "laptop", d.Name)
	assert.True(t, d.Authorized)
	require.NotNil(t, d.PublicKey)

	list, err := env.accounts.ListDevices(context.Background(), tok)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, d.ID, list[0].ID)
}

func TestRegisterDevice_Failures(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	u, tok := env.seedUser(t, "alice", false)

	_, err := env.accounts.RegisterDevice(context.Background(), "", "laptop", nil)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.accounts.RegisterDevice(context.Background(), tok, "  ", nil)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	stored := env.user(u.ID)
	stored.ApplyBlock()
	require.NoError(t, fakeUsers{env.mem}.UpdateModeration(context.Background(), stored))

	_, err = env.accounts.RegisterDevice(context.Background(), tok, "laptop", nil)
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestListDevices_OnlyOwn(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	alice, aliceTok := env.seedUser(t, "alice", false)
	bob, _ := env.seedUser(t, "bob", false)
	env.seedDevice(t, alice, "a1")
	env.seedDevice(t, bob, "b1")
	env.seedDevice(t, alice, "a2")

	list, err := env.accounts.ListDevices(context.Background(), aliceTok)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, d := range list {
		assert.Equal(t, alice.ID, d.OwnerID)
	}
}
