package flows

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/storage"
)

// Profile fetches the signed-in user's account
type Profile struct {
	deps    Deps
	session *Session
}

func NewProfile(deps Deps, session *Session) *Profile {
	deps = deps.withDefaults()
	if session == nil {
		session = NewSession(deps)
	}
	return &Profile{deps: deps, session: session}
}

// Fetch loads the profile and refreshes the stored user. A 401 expires the session.
func (p *Profile) Fetch(ctx context.Context) (*models.User, error) {
	token, err := p.session.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := p.deps.API.Profile(ctx, token)
	if err != nil {
		if !p.session.handleAuthError(ctx, err) {
			p.deps.Logger.Warn("profile fetch failed", slog.String("error", err.Error()))
		}
		return nil, err
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	if err := p.deps.Store.Set(ctx, storage.KeyUser, string(raw)); err != nil {
		return nil, err
	}
	return user, nil
}
