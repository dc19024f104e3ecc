package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotReady = errors.New("dependency not ready before deadline")

// WaitReady polls probe with exponential backoff until it succeeds, the deadline
// passes or ctx is done. The last probe error is wrapped into the returned error.
func WaitReady(ctx context.Context, name string, cfg ReadinessConfig, probe func(context.Context) error) error {
	if probe == nil {
		return fmt.Errorf("resilience: readiness probe is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "dependency"
	}
	cfg = cfg.normalize()

	ctx, cancel := context.WithTimeout(ctx, cfg.Deadline)
	defer cancel()

	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = probe(ctx)
		if lastErr == nil {
			if attempt > 1 {
				cfg.Logger.Info("dependency_ready", "dependency", name, "attempts", attempt)
			}
			return nil
		}

		cfg.Logger.Debug("readiness_probe_failed",
			"dependency", name,
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			"error", lastErr,
		)

		if !sleep(ctx, backoff) {
			return fmt.Errorf("%s: %w after %d attempts: %w", name, ErrNotReady, attempt, lastErr)
		}
		backoff = min(time.Duration(float64(backoff)*cfg.Multiplier), cfg.MaxBackoff)
	}
}
