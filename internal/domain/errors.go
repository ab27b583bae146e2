package domain

import (
	"errors"
	"fmt"
)

// ErrNoDevice is returned when no audio input device is available.
var ErrNoDevice = errors.New("no audio input device found")

// ErrDeviceNotFound is returned when the named input device does not exist.
var ErrDeviceNotFound = errors.New("audio input device not found")

// ConfigError is an invalid session configuration, detected before any
// stream opens. No partial session starts after one.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// DeviceError wraps a failure to open or run the capture stream.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device: %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
