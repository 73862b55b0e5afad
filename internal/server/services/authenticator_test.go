package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/server/auth"
	"github.com/dmitrijs2005/sic/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_PerUser(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	u, tok := env.seedUser(t, "alice", false)

	p, err := env.authn.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID())
	assert.Equal(t, "alice", p.UserName())
	assert.False(t, p.IsAdmin)
}

func TestAuthenticate_AdminNeedsClaimAndRow(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	_, tok := env.seedUser(t, "root", true)

	p, err := env.authn.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)

	// a token carrying is_admin for a non-admin row grants nothing
	user, _ := env.seedUser(t, "mallory", false)
	forged, err := auth.NewTokenService(time.Hour).Issue(
		user.UserName, true, []byte(env.user(user.ID).SecretKey))
	require.NoError(t, err)

	p, err = env.authn.Authenticate(context.Background(), forged)
	require.NoError(t, err)
	assert.False(t, p.IsAdmin)
}

func TestAuthenticate_Failures(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	u, tok := env.seedUser(t, "alice", false)

	other, err := auth.NewTokenService(time.Hour).Issue(u.UserName, false, []byte("some-other-secret"))
	require.NoError(t, err)
	ghost, err := auth.NewTokenService(time.Hour).Issue("ghost", false, []byte("x"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		also  error
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "garbage", also: common.ErrInvalidToken},
		{name: "wrong key", token: other, also: common.ErrInvalidToken},
		{name: "unknown subject", token: ghost, also: common.ErrInvalidToken},
		{name: "tampered", token: tok + "x", also: common.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.authn.Authenticate(context.Background(), tt.token)
			require.ErrorIs(t, err, common.ErrUnauthorized)
			if tt.also != nil {
				assert.ErrorIs(t, err, tt.also)
			}
		})
	}
}

func TestAuthenticate_Expired(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	u, _ := env.seedUser(t, "alice", false)

	expired, err := auth.NewTokenService(-time.Minute).Issue(u.UserName, false, []byte(u.SecretKey))
	require.NoError(t, err)

	_, err = env.authn.Authenticate(context.Background(), expired)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestAuthenticate_RotationRevokesOnlyThatUser(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	alice, aliceTok := env.seedUser(t, "alice", false)
	_, bobTok := env.seedUser(t, "bob", false)

	require.NoError(t, fakeUsers{env.mem}.UpdateSecretKey(context.Background(), alice.ID, "rotated-secret"))

	_, err := env.authn.Authenticate(context.Background(), aliceTok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = env.authn.Authenticate(context.Background(), bobTok)
	assert.NoError(t, err)
}

func TestAuthenticate_GlobalMode(t *testing.T) {
	env := newTestEnv(t, config.SigningModeGlobal)
	u, tok := env.seedUser(t, "alice", false)
	assert.False(t, env.authn.PerUser())

	// per-user secret is irrelevant in global mode
	require.NoError(t, fakeUsers{env.mem}.UpdateSecretKey(context.Background(), u.ID, "rotated"))
	p, err := env.authn.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID())

	signedWithUserKey, err := auth.NewTokenService(time.Hour).Issue(u.UserName, false, []byte("rotated"))
	require.NoError(t, err)
	_, err = env.authn.Authenticate(context.Background(), signedWithUserKey)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestAuthenticate_RepositoryFailure(t *testing.T) {
	env := newTestEnv(t, config.SigningModePerUser)
	_, tok := env.seedUser(t, "alice", false)
	env.mem.failOn["users.Get"] = true

	_, err := env.authn.Authenticate(context.Background(), tok)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrUnauthorized)
	assert.ErrorIs(t, err, errBoom)
}
