package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// TimingDelay pads credential checks to a minimum duration so that an
// unknown account and a wrong password answer in about the same time
type TimingDelay struct {
	Base   time.Duration
	Jitter time.Duration
}

// Target returns the padded duration for one request
func (td TimingDelay) Target() time.Duration {
	if td.Jitter <= 0 {
		return td.Base
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(td.Jitter)))
	if err != nil {
		return td.Base
	}
	return td.Base + time.Duration(n.Int64())
}

// WaitFrom sleeps until Target has elapsed since start, or ctx is done
func (td TimingDelay) WaitFrom(ctx context.Context, start time.Time) {
	remaining := td.Target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
