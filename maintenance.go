package authcore

import "context"

// StartMaintenance launches the background loop that rotates the signing
// key when due and sweeps expired sessions, at the configured interval.
// It may be started at most once; later calls are no-ops. The loop stops
// when ctx is cancelled or the engine is closed. Ticks run one at a time;
// a tick that outlasts the interval simply delays the next one.
func (e *Engine) StartMaintenance(ctx context.Context) {
	if err := e.checkReady(); err != nil {
		return
	}
	if !e.maintenance.CompareAndSwap(false, true) {
		return
	}

	go func() {
		ticker := e.clock.NewTicker(e.cfg.Maintenance.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				e.maintenanceTick(ctx)
			case <-ctx.Done():
				return
			case <-e.stop:
				return
			}
		}
	}()
}

func (e *Engine) maintenanceTick(ctx context.Context) {
	if _, _, err := e.RotateSigningKeyIfNeeded(ctx); err != nil {
		e.warn("authcore: maintenance rotation failed: %v", err)
	}
	if _, err := e.SweepExpiredSessions(ctx); err != nil {
		e.warn("authcore: maintenance sweep failed: %v", err)
	}
}
