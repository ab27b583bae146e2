package domain

import "time"

// SampleBlock is one hardware callback's worth of interleaved float32
// samples, normalized to [-1, 1]. Produced by the capture bridge, consumed
// once by the monitor loop.
type SampleBlock struct {
	Samples    []float32
	Frames     int
	Channels   int
	SampleRate float64
}

// Sample returns the sample for the given frame and channel.
func (b SampleBlock) Sample(frame, channel int) float32 {
	return b.Samples[frame*b.Channels+channel]
}

// ChannelLevel is the peak and RMS level of one channel over one block,
// in dB clamped to the session floor.
type ChannelLevel struct {
	Channel int
	PeakDB  float64
	RMSDB   float64
}

// ChannelState is the running aggregate for one selected channel. It is
// mutated only by the aggregator; readers see copies inside Snapshots.
type ChannelState struct {
	Channel    int       `json:"channel"`
	PeakDB     float64   `json:"peak_db"`    // last block
	RMSDB      float64   `json:"rms_db"`     // last block
	MaxDB      float64   `json:"max_db"`     // running maximum peak
	SumRMSDB   float64   `json:"-"`          // average mode accumulator
	Blocks     int       `json:"blocks"`     // average mode block count
	DisplayDB  float64   `json:"display_db"` // smoothed peak for rendering
	LastUpdate time.Time `json:"last_update"`
}

// AverageDB returns the mean RMS dB and whether any blocks were
// accumulated.
func (s ChannelState) AverageDB() (float64, bool) {
	if s.Blocks == 0 {
		return 0, false
	}
	return s.SumRMSDB / float64(s.Blocks), true
}

// Snapshot is an immutable copy of the session state at one point in time.
// It is safe to share across goroutines; nothing mutates it after creation.
type Snapshot struct {
	Device        string         `json:"device"`
	Elapsed       time.Duration  `json:"elapsed_ns"`
	Channels      []ChannelState `json:"channels"`
	DroppedBlocks uint64         `json:"dropped_blocks"`
	Reason        *Reason        `json:"reason,omitempty"`
}
