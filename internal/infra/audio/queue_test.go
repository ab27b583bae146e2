package audio_test

import (
	"testing"

	"standby/internal/domain"
	"standby/internal/infra/audio"
)

func block(seq int) domain.SampleBlock {
	return domain.SampleBlock{
		Samples:    []float32{float32(seq)},
		Frames:     1,
		Channels:   1,
		SampleRate: 44100,
	}
}

func TestBlockQueue_FIFO(t *testing.T) {
	q := audio.NewBlockQueue(4)

	for i := 0; i < 3; i++ {
		if !q.Push(block(i)) {
			t.Fatalf("push %d rejected with free capacity", i)
		}
	}

	for i := 0; i < 3; i++ {
		got := <-q.Blocks()
		if got.Samples[0] != float32(i) {
			t.Errorf("block %d: got seq %v", i, got.Samples[0])
		}
	}

	if q.Dropped() != 0 {
		t.Errorf("dropped: got %d, want 0", q.Dropped())
	}
}

func TestBlockQueue_OverflowDropsOldest(t *testing.T) {
	q := audio.NewBlockQueue(8)

	// Producer outruns the consumer by 20 blocks with nothing draining.
	for i := 0; i < 20; i++ {
		q.Push(block(i))
	}

	if q.Dropped() != 12 {
		t.Errorf("dropped: got %d, want 12", q.Dropped())
	}

	// The 8 retained blocks are the newest, still in original order.
	for want := 12; want < 20; want++ {
		got := <-q.Blocks()
		if got.Samples[0] != float32(want) {
			t.Errorf("retained block: got seq %v, want %d", got.Samples[0], want)
		}
	}

	select {
	case extra := <-q.Blocks():
		t.Errorf("unexpected extra block with seq %v", extra.Samples[0])
	default:
	}
}

func TestBlockQueue_DefaultCapacity(t *testing.T) {
	q := audio.NewBlockQueue(0)

	for i := 0; i < audio.DefaultQueueCapacity; i++ {
		if !q.Push(block(i)) {
			t.Fatalf("push %d rejected below default capacity", i)
		}
	}
	q.Push(block(99))

	if q.Dropped() != 1 {
		t.Errorf("dropped: got %d, want 1", q.Dropped())
	}
}
