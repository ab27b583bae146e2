package domain

import "math"

// AmplitudeToDB converts a linear amplitude (1.0 = full scale) to decibels,
// clamped to [floor, 0]. Silence maps to the floor, never -Inf or NaN.
func AmplitudeToDB(amplitude, floor float64) float64 {
	if amplitude <= 0 {
		return floor
	}
	return ClampDB(20*math.Log10(amplitude), floor)
}

// DBToAmplitude converts decibels to linear amplitude.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

// ClampDB bounds a dB value to [floor, 0].
func ClampDB(db, floor float64) float64 {
	if db < floor {
		return floor
	}
	if db > MaxDB {
		return MaxDB
	}
	return db
}

// ComputeLevels computes per-channel peak and RMS levels in dB for the
// selected channels of one block. Values are clamped to the floor before
// they are returned, so downstream aggregation stays bounded.
func ComputeLevels(b SampleBlock, channels []int, floor float64) []ChannelLevel {
	levels := make([]ChannelLevel, len(channels))
	for i, ch := range channels {
		var peak, sumSquares float64
		for f := 0; f < b.Frames; f++ {
			s := float64(b.Sample(f, ch))
			if abs := math.Abs(s); abs > peak {
				peak = abs
			}
			sumSquares += s * s
		}

		var rms float64
		if b.Frames > 0 {
			rms = math.Sqrt(sumSquares / float64(b.Frames))
		}

		levels[i] = ChannelLevel{
			Channel: ch,
			PeakDB:  AmplitudeToDB(peak, floor),
			RMSDB:   AmplitudeToDB(rms, floor),
		}
	}
	return levels
}
