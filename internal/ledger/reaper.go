package ledger

import (
	"context"
	"time"

	"talentranker/internal/shared/telemetry"
)

// RunReaper calls ReapExpired every interval until ctx is cancelled.
func RunReaper(ctx context.Context, svc *Service, interval time.Duration) {
	if svc == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.ReapExpired(ctx)
			if err != nil && ctx.Err() == nil {
				telemetry.Error("ledger.reaper.failed", map[string]any{"error": err})
				continue
			}
			if n > 0 {
				telemetry.Info("ledger.reaper.released", map[string]any{"count": n})
			}
		}
	}
}
