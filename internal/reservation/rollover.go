package reservation

import (
	"context"
	"time"
)

// RunWeekRollover keeps the surface on the week containing clock() until
// ctx is done.  Each tick re-runs SetWeek, which switches to a new week
// when the date crosses Sunday midnight and otherwise refreshes the slots
// and counts written by other processes.
func RunWeekRollover(ctx context.Context, s *Surface, interval time.Duration, clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = time.Minute
	}
	s.SetWeek(ctx, clock())

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SetWeek(ctx, clock())
		}
	}
}
