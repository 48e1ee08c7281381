package util

import (
	"context"
	"time"
)

// NewTickingFunction runs runWhenTick every `dur` interval, the first time after one interval
// has elapsed, until the context is cancelled.
// It relies on `time.Ticker`, so ticks are dropped if runWhenTick takes longer than `dur`.
func NewTickingFunction(
	ctx context.Context,
	dur time.Duration,
	runWhenTick func(),
) {

	ticker := time.NewTicker(dur)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runWhenTick()
			case <-ctx.Done():
				return
			}
		}
	}()
}
