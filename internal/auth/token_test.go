package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/pixora/internal/auth"
	"github.com/BradenHooton/pixora/internal/models"
)

const testSecret = "test-secret-32-characters-long!!"

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(testSecret, auth.TokenExpiry{
		Access:       15 * time.Minute,
		Refresh:      7 * 24 * time.Hour,
		Registration: 15 * time.Minute,
		Reset:        time.Hour,
	})
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := newTokenManager()

	token, issued, err := tm.Generate(auth.TokenAccess, "user-1", "a@b.co")
	require.NoError(t, err)

	claims, err := tm.Validate(token, auth.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@b.co", claims.Email)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_UniqueJTI(t *testing.T) {
	tm := newTokenManager()

	_, a, err := tm.Generate(auth.TokenReset, "u", "a@b.co")
	require.NoError(t, err)
	_, b, err := tm.Generate(auth.TokenReset, "u", "a@b.co")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestTokenManager_TokenPair(t *testing.T) {
	tm := newTokenManager()

	pair, err := tm.GenerateTokenPair("user-1", "a@b.co")
	require.NoError(t, err)

	_, err = tm.Validate(pair.AccessToken, auth.TokenAccess)
	assert.NoError(t, err)
	_, err = tm.Validate(pair.RefreshToken, auth.TokenRefresh)
	assert.NoError(t, err)
}

func TestTokenManager_RejectsWrongType(t *testing.T) {
	tm := newTokenManager()
	pair, err := tm.GenerateTokenPair("user-1", "a@b.co")
	require.NoError(t, err)

	_, err = tm.Validate(pair.RefreshToken, auth.TokenAccess)
	assert.ErrorIs(t, err, auth.ErrWrongTokenType)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := newTokenManager()
	now := time.Now()
	tm.SetClock(func() time.Time { return now })

	token, _, err := tm.Generate(auth.TokenRegistration, "", "a@b.co")
	require.NoError(t, err)

	tm.SetClock(func() time.Time { return now.Add(16 * time.Minute) })
	_, err = tm.Validate(token, auth.TokenRegistration)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	tm := newTokenManager()
	other := auth.NewTokenManager("another-secret-32-characters-long", auth.TokenExpiry{Access: time.Minute})

	token, _, err := other.Generate(auth.TokenAccess, "user-1", "a@b.co")
	require.NoError(t, err)

	_, err = tm.Validate(token, auth.TokenAccess)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	tm := newTokenManager()
	claims := jwt.MapClaims{"type": "access", "sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Validate(token, auth.TokenAccess)
	assert.Error(t, err)
}
