package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BradenHooton/pixora/internal/apiclient"
	"github.com/BradenHooton/pixora/internal/models"
	"github.com/BradenHooton/pixora/internal/storage"
	"github.com/BradenHooton/pixora/internal/validation"
)

// failureMessage picks the text for a failed call: the server's message when
// it sent one, transportMsg when the backend was unreachable, else fallback
func failureMessage(err error, fallback, transportMsg string) string {
	if errors.Is(err, apiclient.ErrTransport) {
		return transportMsg
	}
	if errors.Is(err, apiclient.ErrMalformedResponse) {
		return apiclient.FriendlyMessage(err)
	}
	return apiclient.ServerMessage(err, fallback)
}

// fieldError records a local validation failure into errs
func fieldError(errs FieldErrors, err error) {
	var ve *validation.Error
	if errors.As(err, &ve) {
		errs[ve.Field] = ve.Message
		return
	}
	errs[FieldGeneral] = err.Error()
}

// persistSession stores the token pair and the serialized user
func persistSession(ctx context.Context, store storage.Store, tokens models.TokenPair, user *models.User) error {
	if err := store.Set(ctx, storage.KeyAccessToken, tokens.AccessToken); err != nil {
		return err
	}
	if tokens.RefreshToken != "" {
		if err := store.Set(ctx, storage.KeyRefreshToken, tokens.RefreshToken); err != nil {
			return err
		}
	}
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		if err := store.Set(ctx, storage.KeyUser, string(raw)); err != nil {
			return err
		}
	}
	return nil
}
