package flows_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/pixora/internal/flows"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/storage"
)

func newProfile(h *harness) *flows.Profile {
	deps := h.deps()
	return flows.NewProfile(deps, flows.NewSession(deps))
}

func TestProfile_FetchStoresUser(t *testing.T) {
	h := signedInHarness(t)
	h.api.ProfileFunc = func(ctx context.Context, token string) (*models.User, error) {
		assert.Equal(t, "access", token)
		return &models.User{ID: "u-1", Email: "a@b.co", Username: "Ann"}, nil
	}

	user, err := newProfile(h).Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Ann", user.Username)
	assert.JSONEq(t, `{"id":"u-1","email":"a@b.co","username":"Ann"}`, h.stored(storage.KeyUser))
}

func TestProfile_NotSignedIn(t *testing.T) {
	h := newHarness(t)

	_, err := newProfile(h).Fetch(context.Background())

	assert.ErrorIs(t, err, flows.ErrNotSignedIn)
	assert.Equal(t, 0, h.api.TotalCalls())
}

func TestProfile_SessionExpired(t *testing.T) {
	h := signedInHarness(t)
	h.api.ProfileFunc = func(ctx context.Context, token string) (*models.User, error) {
		return nil, rejected(401, "Token expired")
	}

	_, err := newProfile(h).Fetch(context.Background())

	assert.Error(t, err)
	assert.Empty(t, h.stored(storage.KeyAccessToken))
	assert.Equal(t, []string{flows.RouteSignIn}, h.nav.Routes())
}

func TestProfile_OtherFailureKeepsSession(t *testing.T) {
	h := signedInHarness(t)
	h.api.ProfileFunc = func(ctx context.Context, token string) (*models.User, error) {
		return nil, rejected(500, "")
	}

	_, err := newProfile(h).Fetch(context.Background())

	assert.Error(t, err)
	assert.Equal(t, "access", h.stored(storage.KeyAccessToken))
	assert.Empty(t, h.nav.Routes())
}
