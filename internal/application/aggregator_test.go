package application_test

import (
	"math"
	"testing"
	"time"

	"standby/internal/application"
	"standby/internal/domain"
)

func testInfo() domain.StreamInfo {
	return domain.StreamInfo{Device: "test mic", SampleRate: 44100, Channels: 2}
}

func levels(peaks ...float64) []domain.ChannelLevel {
	out := make([]domain.ChannelLevel, len(peaks))
	for i, p := range peaks {
		out[i] = domain.ChannelLevel{Channel: i, PeakDB: p, RMSDB: p}
	}
	return out
}

func TestAggregator_RunningMaxIsMonotonic(t *testing.T) {
	session := domain.Session{Mode: domain.ModeMax, FloorDB: -60, Channels: []int{0}}
	agg := application.NewAggregator(session, testInfo(), time.Now())

	sequence := []float64{-30, -10, -40, -25, -10}
	prev := math.Inf(-1)
	for _, peak := range sequence {
		agg.Update(levels(peak), time.Now())
		snap := agg.Publish(0, nil)
		maxDB := snap.Channels[0].MaxDB
		if maxDB < prev {
			t.Fatalf("running max decreased: %f after %f", maxDB, prev)
		}
		prev = maxDB
	}

	if prev != -10 {
		t.Errorf("final max: got %f, want -10", prev)
	}
}

func TestAggregator_AverageAccumulatesOnlyInAverageMode(t *testing.T) {
	info := testInfo()

	maxAgg := application.NewAggregator(domain.Session{Mode: domain.ModeMax, FloorDB: -60, Channels: []int{0}}, info, time.Now())
	maxAgg.Update(levels(-20), time.Now())
	if blocks := maxAgg.Publish(0, nil).Channels[0].Blocks; blocks != 0 {
		t.Errorf("max mode accumulated %d blocks", blocks)
	}

	avgAgg := application.NewAggregator(domain.Session{Mode: domain.ModeAverage, FloorDB: -60, Channels: []int{0}}, info, time.Now())
	for _, db := range []float64{-20, -10, -30} {
		avgAgg.Update(levels(db), time.Now())
	}

	result := avgAgg.Result(domain.Reason{Kind: domain.ReasonDurationElapsed}, time.Second, 0)
	if result.Channels[0].Blocks != 3 {
		t.Fatalf("blocks: got %d, want 3", result.Channels[0].Blocks)
	}
	if math.Abs(result.Channels[0].AverageDB+20) > 1e-9 {
		t.Errorf("average: got %f, want -20", result.Channels[0].AverageDB)
	}
}

func TestAggregator_SnapshotIsImmutable(t *testing.T) {
	session := domain.Session{Mode: domain.ModeMax, FloorDB: -60, Channels: []int{0}}
	agg := application.NewAggregator(session, testInfo(), time.Now())

	agg.Update(levels(-30), time.Now())
	first := agg.Publish(0, nil)

	agg.Update(levels(-5), time.Now())
	agg.Publish(0, nil)

	if first.Channels[0].MaxDB != -30 {
		t.Errorf("earlier snapshot mutated: max now %f", first.Channels[0].MaxDB)
	}
}

func TestAggregator_LatestNeverNil(t *testing.T) {
	session := domain.Session{Mode: domain.ModeDetect, ThresholdDB: -10, FloorDB: -60, Channels: []int{0, 1}}
	agg := application.NewAggregator(session, testInfo(), time.Now())

	snap := agg.Latest()
	if snap == nil {
		t.Fatal("Latest returned nil before the first update")
	}
	for _, ch := range snap.Channels {
		if ch.MaxDB != -60 {
			t.Errorf("channel %d initial max: got %f, want floor", ch.Channel, ch.MaxDB)
		}
	}
}
