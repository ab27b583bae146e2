//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"standby/internal/domain"
)

// CaptureSource stub when portaudio is not available.
type CaptureSource struct {
	logger *slog.Logger
	queue  *BlockQueue
}

func NewCaptureSource(_ string, _ int, logger *slog.Logger) *CaptureSource {
	return &CaptureSource{
		logger: logger,
		queue:  NewBlockQueue(DefaultQueueCapacity),
	}
}

func (c *CaptureSource) Name() string {
	return "portaudio"
}

func (c *CaptureSource) Open(_ context.Context) (domain.StreamInfo, error) {
	return domain.StreamInfo{}, fmt.Errorf("audio capture not available: rebuild with -tags portaudio")
}

func (c *CaptureSource) Start() error {
	return fmt.Errorf("audio capture not available: rebuild with -tags portaudio")
}

func (c *CaptureSource) Stop() error {
	return nil
}

func (c *CaptureSource) Blocks() <-chan domain.SampleBlock {
	return c.queue.Blocks()
}

func (c *CaptureSource) Errors() <-chan error {
	return nil
}

func (c *CaptureSource) Dropped() uint64 {
	return 0
}

// Device describes an input-capable audio device.
type Device struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

func Devices() ([]Device, error) {
	return nil, fmt.Errorf("device listing not available: rebuild with -tags portaudio")
}
