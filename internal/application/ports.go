package application

import (
	"context"

	"standby/internal/domain"
)

// BlockSource adapts a capture device into a pollable stream of sample
// blocks. Open acquires the device and reports its format so the session
// can be validated before Start begins the stream. Stop releases the
// device; it is safe to call after a failed Open.
type BlockSource interface {
	Open(ctx context.Context) (domain.StreamInfo, error)
	Start() error
	Stop() error
	Blocks() <-chan domain.SampleBlock
	Errors() <-chan error
	Dropped() uint64
	Name() string
}

// SnapshotSink receives immutable snapshots at a bounded cadence. Sinks
// render or forward them; they never mutate session state.
type SnapshotSink interface {
	Publish(snap *domain.Snapshot)
}

// NoopSink discards snapshots.
type NoopSink struct{}

func (NoopSink) Publish(_ *domain.Snapshot) {}
