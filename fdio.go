// Package fdio is a portable file-device layer above the raw OS file
// primitives. It normalizes high-level open semantics (direction, existence
// policy, truncation, append, extra flags, permission mode) into one valid
// OS open-flag computation, and exposes non-blocking and timeout-bounded
// read/write, position, length and readiness-polling operations over an
// exclusively owned descriptor.
//
// [OpenDevice] returns the raw device for callers doing their own
// read/write/relinquish discipline; [OpenStream] wraps the device in a
// buffered stream with optional text-encoding translation.
package fdio

import (
	"github.com/copperwire/fdio/device"
	"github.com/copperwire/fdio/stream"
)

// Re-exported sentinels, so callers matching with errors.Is need not reach
// into the subpackages.
var (
	ErrInvalidConfig = device.ErrInvalidConfig
	ErrWouldBlock    = device.ErrWouldBlock
	ErrTimeout       = device.ErrTimeout
	ErrDeviceClosed  = device.ErrDeviceClosed
	ErrDeviceBusy    = device.ErrDeviceBusy
)

// OpenDevice validates opts, translates them into an open policy and opens a
// raw [device.Device] on path. The caller owns the device and must
// relinquish it exactly once.
func OpenDevice(path string, opts Options) (device.Device, error) {
	mode, err := opts.validate()
	if err != nil {
		return nil, err
	}

	dev, err := device.Open(path, opts.policy(), mode)
	if err != nil {
		return nil, err
	}

	return dev, nil
}

// OpenStream opens a device like [OpenDevice] and hands its ownership to a
// buffered [stream.Stream] configured with the buffering mode, buffer size
// and external format of opts. Closing the stream relinquishes the device.
//
// The stream configuration is validated before the device is opened, so a
// rejected configuration leaves the filesystem untouched.
func OpenStream(path string, opts Options) (*stream.Stream, error) {
	cfg := stream.Config{
		Buffering:      opts.Buffering,
		BufferSize:     opts.BufferSize,
		ExternalFormat: opts.ExternalFormat,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dev, err := OpenDevice(path, opts)
	if err != nil {
		return nil, err
	}

	s, err := stream.New(dev, cfg)
	if err != nil {
		dev.Relinquish() //nolint:errcheck

		return nil, err
	}

	return s, nil
}
