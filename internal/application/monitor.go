package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"standby/internal/domain"
)

// snapshotInterval is the cadence at which snapshots are pushed to sinks,
// independent of audio timing.
const snapshotInterval = 100 * time.Millisecond

// Monitor runs one monitoring session: it drains the capture queue in FIFO
// order, computes levels, folds them into the aggregator and decides when
// the session ends. All four termination sources (threshold, timer, user
// cancel, stream error) meet in a single select, so exactly one reason wins
// by arrival order.
type Monitor struct {
	source  BlockSource
	session domain.Session
	sink    SnapshotSink
	logger  *slog.Logger
	agg     atomic.Pointer[Aggregator] // set once Run has opened the device
}

func NewMonitor(source BlockSource, session domain.Session, sink SnapshotSink, logger *slog.Logger) *Monitor {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Monitor{
		source:  source,
		session: session,
		sink:    sink,
		logger:  logger,
	}
}

// Snapshot returns the latest published snapshot, or nil before Run has
// opened the device.
func (m *Monitor) Snapshot() *domain.Snapshot {
	agg := m.agg.Load()
	if agg == nil {
		return nil
	}
	return agg.Latest()
}

// Run executes the session until a terminal event. Configuration and
// device-open failures are returned as errors before any block is
// processed; every other ending is reported through Result.Reason.
func (m *Monitor) Run(ctx context.Context) (*domain.Result, error) {
	if err := m.session.Validate(); err != nil {
		return nil, err
	}

	info, err := m.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening capture device: %w", err)
	}
	defer m.source.Stop()

	if err := m.session.ValidateDevice(info); err != nil {
		return nil, err
	}

	started := time.Now()
	agg := NewAggregator(m.session, info, started)
	m.agg.Store(agg)

	if err := m.source.Start(); err != nil {
		return nil, fmt.Errorf("starting capture stream: %w", err)
	}

	m.logger.Info("monitoring started",
		"device", info.Device,
		"sample_rate", info.SampleRate,
		"device_channels", info.Channels,
		"channels", m.session.Channels,
		"mode", m.session.Mode,
	)

	reason := m.loop(ctx, agg)
	elapsed := time.Since(started)

	snap := agg.Publish(m.source.Dropped(), &reason)
	m.sink.Publish(snap)

	m.logger.Info("monitoring finished",
		"reason", reason.Kind,
		"elapsed", elapsed.Round(time.Millisecond),
		"dropped_blocks", snap.DroppedBlocks,
	)

	return agg.Result(reason, elapsed, snap.DroppedBlocks), nil
}

func (m *Monitor) loop(ctx context.Context, agg *Aggregator) domain.Reason {
	var timerC <-chan time.Time
	if m.session.Duration > 0 {
		timer := time.NewTimer(m.session.Duration)
		defer timer.Stop()
		timerC = timer.C
	}

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.Reason{Kind: domain.ReasonUserCancelled}

		case err := <-m.source.Errors():
			m.logger.Error("capture stream failed", "error", err)
			return domain.Reason{Kind: domain.ReasonDeviceError, Err: err}

		case <-timerC:
			return domain.Reason{Kind: domain.ReasonDurationElapsed}

		case block := <-m.source.Blocks():
			levels := domain.ComputeLevels(block, m.session.Channels, m.session.FloorDB)
			agg.Update(levels, time.Now())

			if m.session.Mode == domain.ModeDetect {
				if hit, ok := exceeds(levels, m.session.ThresholdDB); ok {
					return domain.Reason{
						Kind:    domain.ReasonThresholdExceeded,
						Channel: hit.Channel,
						DB:      hit.PeakDB,
					}
				}
			}

		case <-ticker.C:
			m.sink.Publish(agg.Publish(m.source.Dropped(), nil))
		}
	}
}

// exceeds reports the first channel whose peak reached the threshold.
// The comparison is inclusive.
func exceeds(levels []domain.ChannelLevel, thresholdDB float64) (domain.ChannelLevel, bool) {
	for _, lvl := range levels {
		if lvl.PeakDB >= thresholdDB {
			return lvl, true
		}
	}
	return domain.ChannelLevel{}, false
}
