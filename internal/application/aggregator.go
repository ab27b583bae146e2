package application

import (
	"sync/atomic"
	"time"

	"standby/internal/domain"
)

// Aggregator owns the per-channel running state of one session. Update is
// called only from the monitor loop; Latest may be called from any
// goroutine and never blocks the writer.
type Aggregator struct {
	mode      domain.Mode
	device    string
	states    []domain.ChannelState
	smoothers []domain.Smoother
	started   time.Time
	latest    atomic.Pointer[domain.Snapshot]
}

func NewAggregator(session domain.Session, info domain.StreamInfo, started time.Time) *Aggregator {
	a := &Aggregator{
		mode:      session.Mode,
		device:    info.Device,
		states:    make([]domain.ChannelState, len(session.Channels)),
		smoothers: make([]domain.Smoother, len(session.Channels)),
		started:   started,
	}
	for i, ch := range session.Channels {
		a.states[i] = domain.ChannelState{
			Channel:   ch,
			PeakDB:    session.FloorDB,
			RMSDB:     session.FloorDB,
			MaxDB:     session.FloorDB,
			DisplayDB: session.FloorDB,
		}
		a.smoothers[i] = domain.NewSmoother(session.FloorDB)
	}
	a.latest.Store(a.snapshot(0, nil))
	return a
}

// Update folds one block's levels into the running state. The running max
// is updated unconditionally; the RMS sum only accumulates in average mode.
func (a *Aggregator) Update(levels []domain.ChannelLevel, now time.Time) {
	for i := range levels {
		st := &a.states[i]
		st.PeakDB = levels[i].PeakDB
		st.RMSDB = levels[i].RMSDB
		if levels[i].PeakDB > st.MaxDB {
			st.MaxDB = levels[i].PeakDB
		}
		if a.mode == domain.ModeAverage {
			st.SumRMSDB += levels[i].RMSDB
			st.Blocks++
		}
		st.DisplayDB = a.smoothers[i].Update(levels[i].PeakDB)
		st.LastUpdate = now
	}
}

// Publish builds an immutable snapshot of the current state and makes it
// the one returned by Latest.
func (a *Aggregator) Publish(dropped uint64, reason *domain.Reason) *domain.Snapshot {
	snap := a.snapshot(dropped, reason)
	a.latest.Store(snap)
	return snap
}

// Latest returns the most recently published snapshot. Never nil after
// construction.
func (a *Aggregator) Latest() *domain.Snapshot {
	return a.latest.Load()
}

func (a *Aggregator) snapshot(dropped uint64, reason *domain.Reason) *domain.Snapshot {
	channels := make([]domain.ChannelState, len(a.states))
	copy(channels, a.states)
	return &domain.Snapshot{
		Device:        a.device,
		Elapsed:       time.Since(a.started),
		Channels:      channels,
		DroppedBlocks: dropped,
		Reason:        reason,
	}
}

// Result assembles the session outcome for the caller.
func (a *Aggregator) Result(reason domain.Reason, elapsed time.Duration, dropped uint64) *domain.Result {
	channels := make([]domain.ChannelResult, len(a.states))
	for i, st := range a.states {
		cr := domain.ChannelResult{
			Channel: st.Channel,
			MaxDB:   st.MaxDB,
			Blocks:  st.Blocks,
		}
		if avg, ok := st.AverageDB(); ok {
			cr.AverageDB = avg
		}
		channels[i] = cr
	}
	return &domain.Result{
		Reason:        reason,
		Elapsed:       elapsed,
		Channels:      channels,
		DroppedBlocks: dropped,
	}
}
