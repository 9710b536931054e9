package fleet

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Monitor marks vehicles offline when their telemetry goes quiet for
// longer than the horizon. Vehicles in use are left alone; an active
// rental is never downgraded by silence.
type Monitor struct {
	registry *Registry
	horizon  time.Duration
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewMonitor creates a monitor sweeping every interval for vehicles
// unseen for longer than horizon.
func NewMonitor(registry *Registry, horizon, interval time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		horizon:  horizon,
		interval: interval,
		logger:   logger.With().Str("component", "monitor").Logger(),
		now:      time.Now,
	}
}

// Run sweeps until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Monitor) sweep() {
	cutoff := m.now().UTC().Add(-m.horizon)
	for _, v := range m.registry.Snapshot() {
		if v.Status == StatusInUse || v.Status == StatusOffline {
			continue
		}
		if v.LastSeen.After(cutoff) {
			continue
		}
		from := v.Status
		if _, err := m.registry.TransitionStatus(v.IMEI, &from, StatusOffline, ""); err != nil {
			// A rental or a fresh report beat us to it; skip this round.
			if !errors.Is(err, ErrPreconditionFailed) {
				m.logger.Warn().Err(err).Str("imei", v.IMEI).Msg("failed to mark vehicle offline")
			}
			continue
		}
		m.logger.Info().Str("imei", v.IMEI).Time("lastSeen", v.LastSeen).Msg("vehicle marked offline")
	}
}
