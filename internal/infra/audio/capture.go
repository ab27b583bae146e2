//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"standby/internal/domain"
)

// preferredSampleRate is tried first when the device supports it; otherwise
// the device default is used.
const preferredSampleRate = 44100

// watchdogTimeout bounds how long the stream may go without a callback. A
// healthy stream delivers blocks even for silence, so a stall means the
// device is gone.
const watchdogTimeout = 5 * time.Second

// CaptureSource bridges a portaudio input stream into a bounded block
// queue. The hardware callback only copies samples and enqueues; all level
// math happens on the consumer side.
type CaptureSource struct {
	device          string
	framesPerBuffer int
	logger          *slog.Logger
	queue           *BlockQueue
	errCh           chan error
	lastBlock       atomic.Int64 // unix nanos of the last callback
	done            chan struct{}

	mu       sync.Mutex
	dev      *portaudio.DeviceInfo
	stream   *portaudio.Stream
	info     domain.StreamInfo
	opened   bool
	running  bool
	stopOnce sync.Once
}

func NewCaptureSource(device string, framesPerBuffer int, logger *slog.Logger) *CaptureSource {
	if framesPerBuffer <= 0 {
		framesPerBuffer = 1024
	}
	return &CaptureSource{
		device:          device,
		framesPerBuffer: framesPerBuffer,
		logger:          logger,
		queue:           NewBlockQueue(DefaultQueueCapacity),
		errCh:           make(chan error, 1),
		done:            make(chan struct{}),
	}
}

func (c *CaptureSource) Name() string {
	return "portaudio"
}

// Open initializes portaudio, resolves the input device and reports its
// format. The stream itself is not started until Start.
func (c *CaptureSource) Open(_ context.Context) (domain.StreamInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return domain.StreamInfo{}, &domain.DeviceError{Op: "initialize", Err: err}
	}
	c.opened = true

	dev, err := c.findDevice()
	if err != nil {
		portaudio.Terminate()
		c.opened = false
		return domain.StreamInfo{}, err
	}
	c.dev = dev

	rate := dev.DefaultSampleRate
	if rate != preferredSampleRate && c.supportsRate(dev, preferredSampleRate) {
		rate = preferredSampleRate
	}

	c.info = domain.StreamInfo{
		Device:     dev.Name,
		SampleRate: rate,
		Channels:   dev.MaxInputChannels,
	}

	c.logger.Info("capture device opened",
		"device", c.info.Device,
		"sample_rate", c.info.SampleRate,
		"channels", c.info.Channels,
	)
	return c.info, nil
}

func (c *CaptureSource) findDevice() (*portaudio.DeviceInfo, error) {
	if c.device == "" || c.device == "default" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrNoDevice, err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, &domain.DeviceError{Op: "listing devices", Err: err}
	}
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 && dev.Name == c.device {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrDeviceNotFound, c.device)
}

func (c *CaptureSource) supportsRate(dev *portaudio.DeviceInfo, rate float64) bool {
	params := c.streamParameters(dev, rate)
	return portaudio.IsFormatSupported(params, c.callback) == nil
}

func (c *CaptureSource) streamParameters(dev *portaudio.DeviceInfo, rate float64) portaudio.StreamParameters {
	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = dev.MaxInputChannels
	params.SampleRate = rate
	params.FramesPerBuffer = c.framesPerBuffer
	return params
}

// Start opens and starts the input stream. Open must have succeeded.
func (c *CaptureSource) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened || c.dev == nil {
		return &domain.DeviceError{Op: "start", Err: fmt.Errorf("capture source not opened")}
	}
	if c.running {
		return nil
	}

	params := c.streamParameters(c.dev, c.info.SampleRate)
	stream, err := portaudio.OpenStream(params, c.callback)
	if err != nil {
		return &domain.DeviceError{Op: "opening stream", Err: err}
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return &domain.DeviceError{Op: "starting stream", Err: err}
	}

	c.stream = stream
	c.running = true
	c.lastBlock.Store(time.Now().UnixNano())
	go c.watchdog()
	return nil
}

// watchdog fails the session when callbacks stop arriving.
func (c *CaptureSource) watchdog() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			last := time.Unix(0, c.lastBlock.Load())
			if time.Since(last) > watchdogTimeout {
				c.fail(&domain.DeviceError{
					Op:  "stream",
					Err: fmt.Errorf("no audio callback for %s, device lost", watchdogTimeout),
				})
				return
			}
		}
	}
}

// callback runs in the portaudio capture context. It must stay bounded: one
// copy of the native buffer and a non-blocking enqueue, nothing else.
func (c *CaptureSource) callback(in []float32) {
	channels := c.info.Channels
	if channels == 0 || len(in) == 0 {
		return
	}

	c.lastBlock.Store(time.Now().UnixNano())

	samples := make([]float32, len(in))
	copy(samples, in)

	c.queue.Push(domain.SampleBlock{
		Samples:    samples,
		Frames:     len(in) / channels,
		Channels:   channels,
		SampleRate: c.info.SampleRate,
	})
}

// Stop tears the stream down and releases the device. Safe to call on any
// exit path, including after a failed Open.
func (c *CaptureSource) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.stopOnce.Do(func() {
		close(c.done)
		if c.stream != nil {
			if stopErr := c.stream.Stop(); stopErr != nil {
				err = &domain.DeviceError{Op: "stopping stream", Err: stopErr}
			}
			c.stream.Close()
			c.stream = nil
		}
		if c.opened {
			portaudio.Terminate()
			c.opened = false
		}
		c.running = false
	})
	return err
}

func (c *CaptureSource) Blocks() <-chan domain.SampleBlock {
	return c.queue.Blocks()
}

func (c *CaptureSource) Errors() <-chan error {
	return c.errCh
}

func (c *CaptureSource) Dropped() uint64 {
	return c.queue.Dropped()
}

// fail surfaces a stream fault to the monitor loop. Only the first fault is
// kept; the session is already ending.
func (c *CaptureSource) fail(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}

// Device describes an input-capable audio device.
type Device struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

// Devices enumerates input-capable devices. It owns its own portaudio
// lifetime, so it must not be called while a capture session is running.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &domain.DeviceError{Op: "initialize", Err: err}
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, &domain.DeviceError{Op: "listing devices", Err: err}
	}

	var devices []Device
	for _, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, Device{
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}
	if len(devices) == 0 {
		return nil, domain.ErrNoDevice
	}
	return devices, nil
}
