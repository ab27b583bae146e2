package domain

import (
	"fmt"
	"time"
)

// Mode selects how channel levels are aggregated and when a session ends.
type Mode string

const (
	// ModeDetect completes the session when any selected channel's peak
	// reaches the configured threshold.
	ModeDetect Mode = "detect"
	// ModeMax tracks the maximum peak level per channel until the session
	// ends by duration or cancellation.
	ModeMax Mode = "max"
	// ModeAverage tracks the mean RMS level per channel until the session
	// ends by duration or cancellation.
	ModeAverage Mode = "average"
)

// Decibel limits for session configuration.
const (
	MaxDB          = 0.0
	MinThresholdDB = -60.0
	MinFloorDB     = -100.0
	DefaultFloorDB = -60.0
)

// Session describes one monitoring run. It is validated before any device
// is opened; device-dependent checks happen in ValidateDevice once the
// stream format is known.
type Session struct {
	Mode        Mode
	ThresholdDB float64       // Detect mode only
	FloorDB     float64       // clamp floor for all dB values
	Channels    []int         // selected channel indices
	Duration    time.Duration // 0 = run until cancelled
	Quiet       bool
}

// Validate checks everything that does not depend on the device.
func (s *Session) Validate() error {
	switch s.Mode {
	case ModeDetect, ModeMax, ModeAverage:
	default:
		return &ConfigError{Field: "mode", Msg: fmt.Sprintf("unknown mode %q", s.Mode)}
	}

	if s.FloorDB < MinFloorDB || s.FloorDB > MaxDB {
		return &ConfigError{
			Field: "min_db",
			Msg:   fmt.Sprintf("must be between %.0f and %.0f dB, got %.1f", MinFloorDB, MaxDB, s.FloorDB),
		}
	}

	if s.Mode == ModeDetect {
		if s.ThresholdDB < MinThresholdDB || s.ThresholdDB > MaxDB {
			return &ConfigError{
				Field: "threshold_db",
				Msg:   fmt.Sprintf("must be between %.0f and %.0f dB, got %.1f", MinThresholdDB, MaxDB, s.ThresholdDB),
			}
		}
		if s.FloorDB >= s.ThresholdDB {
			return &ConfigError{
				Field: "min_db",
				Msg:   fmt.Sprintf("must be below the threshold (%.1f dB), got %.1f", s.ThresholdDB, s.FloorDB),
			}
		}
	}

	if len(s.Channels) == 0 {
		return &ConfigError{Field: "channels", Msg: "at least one channel must be selected"}
	}
	for _, ch := range s.Channels {
		if ch < 0 {
			return &ConfigError{Field: "channels", Msg: fmt.Sprintf("negative channel index %d", ch)}
		}
	}

	if s.Duration < 0 {
		return &ConfigError{Field: "duration", Msg: "must not be negative"}
	}

	return nil
}

// ValidateDevice checks the selected channels against the opened device's
// channel count. Must pass before the stream starts.
func (s *Session) ValidateDevice(info StreamInfo) error {
	for _, ch := range s.Channels {
		if ch >= info.Channels {
			return &ConfigError{
				Field: "channels",
				Msg: fmt.Sprintf("channel %d not available on %q (device has %d channels)",
					ch, info.Device, info.Channels),
			}
		}
	}
	return nil
}

// StreamInfo is the format discovered from an opened capture device.
type StreamInfo struct {
	Device     string
	SampleRate float64
	Channels   int
}

// ReasonKind identifies why a session ended.
type ReasonKind string

const (
	ReasonThresholdExceeded ReasonKind = "threshold_exceeded"
	ReasonDurationElapsed   ReasonKind = "duration_elapsed"
	ReasonUserCancelled     ReasonKind = "user_cancelled"
	ReasonDeviceError       ReasonKind = "device_error"
)

// Reason records the single terminal event of a session. Channel and DB are
// meaningful only for ReasonThresholdExceeded, Err only for
// ReasonDeviceError.
type Reason struct {
	Kind    ReasonKind `json:"kind"`
	Channel int        `json:"channel"`
	DB      float64    `json:"db"`
	Err     error      `json:"-"`
}

func (r Reason) String() string {
	switch r.Kind {
	case ReasonThresholdExceeded:
		return fmt.Sprintf("threshold exceeded on channel %d at %.1f dB", r.Channel, r.DB)
	case ReasonDurationElapsed:
		return "duration elapsed"
	case ReasonUserCancelled:
		return "cancelled by user"
	case ReasonDeviceError:
		if r.Err != nil {
			return fmt.Sprintf("device error: %v", r.Err)
		}
		return "device error"
	default:
		return string(r.Kind)
	}
}

// Result is the structured outcome of a completed session.
type Result struct {
	Reason        Reason
	Elapsed       time.Duration
	Channels      []ChannelResult
	DroppedBlocks uint64
}

// ChannelResult carries the per-channel aggregates. AverageDB is only set
// when Blocks > 0 (average mode with at least one processed block).
type ChannelResult struct {
	Channel   int
	MaxDB     float64
	AverageDB float64
	Blocks    int
}
