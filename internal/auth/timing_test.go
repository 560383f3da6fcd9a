package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/pixora/internal/auth"
)

func TestTimingDelay_WaitFromPadsToBase(t *testing.T) {
	timing := auth.TimingDelay{Base: 50 * time.Millisecond}
	start := time.Now()

	timing.WaitFrom(context.Background(), start)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTimingDelay_WaitFromSkipsWhenAlreadyElapsed(t *testing.T) {
	timing := auth.TimingDelay{Base: 50 * time.Millisecond}
	start := time.Now().Add(-time.Second)

	before := time.Now()
	timing.WaitFrom(context.Background(), start)

	assert.Less(t, time.Since(before), 10*time.Millisecond)
}

func TestTimingDelay_WaitFromStopsOnCancel(t *testing.T) {
	timing := auth.TimingDelay{Base: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	before := time.Now()
	timing.WaitFrom(ctx, time.Now())

	assert.Less(t, time.Since(before), 100*time.Millisecond)
}

func TestTimingDelay_TargetWithinJitter(t *testing.T) {
	timing := auth.TimingDelay{Base: 100 * time.Millisecond, Jitter: 50 * time.Millisecond}

	for i := 0; i < 20; i++ {
		target := timing.Target()
		assert.GreaterOrEqual(t, target, 100*time.Millisecond)
		assert.Less(t, target, 150*time.Millisecond)
	}
}

func TestTimingDelay_ZeroValueDoesNotWait(t *testing.T) {
	before := time.Now()
	auth.TimingDelay{}.WaitFrom(context.Background(), time.Now())
	assert.Less(t, time.Since(before), 10*time.Millisecond)
}
