package flows_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/pixora/internal/apiclient"
	"github.com/BradenHooton/pixora/internal/flows"
	"github.com/BradenHooton/pixora/internal/notify"
	"github.com/BradenHooton/pixora/internal/storage"
)

type harness struct {
	api   *flows.MockBackend
	store *storage.Memory
	nav   *flows.RecordingNavigator
	queue *notify.Queue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		api:   &flows.MockBackend{},
		store: storage.NewMemory(),
		nav:   &flows.RecordingNavigator{},
		queue: notify.New(notify.WithDuration(time.Hour)),
	}
	t.Cleanup(h.queue.Close)
	return h
}

func (h *harness) deps() flows.Deps {
	return flows.Deps{
		API:    h.api,
		Store:  h.store,
		Nav:    h.nav,
		Notify: h.queue,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (h *harness) stored(key string) string {
	v, _ := storage.Lookup(context.Background(), h.store, key)
	return v
}

func (h *harness) toasts() []notify.Notification {
	return h.queue.List()
}

func rejected(status int, message string) error {
	kind := apiclient.KindRejected
	switch status {
	case 401:
		kind = apiclient.KindSessionExpired
	case 429:
		kind = apiclient.KindRateLimited
	case 502, 503:
		kind = apiclient.KindUnavailable
	}
	return &apiclient.Error{Kind: kind, StatusCode: status, Message: message}
}

func transportErr() error {
	return &apiclient.Error{Kind: apiclient.KindTransport, Err: io.ErrUnexpectedEOF}
}

func malformedErr() error {
	return &apiclient.Error{Kind: apiclient.KindMalformed, StatusCode: 200, Err: apiclient.ErrMalformedResponse}
}
