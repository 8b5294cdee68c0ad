// Package stream provides the buffered byte layer on top of a [device.Device]:
// it batches reads and writes through an internal buffer, optionally
// translating them through a named text encoding, and relinquishes the owned
// device exactly once on Close.
package stream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/copperwire/fdio/device"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// DefaultBufferSize is the buffer size used when the configuration passes 0.
const DefaultBufferSize = 8192

var (
	// ErrStreamClosed is a usage error that occurs when a stream is used or
	// closed after it already relinquished its device.
	ErrStreamClosed = errors.New("stream is closed")

	// ErrUnknownFormat is an error that occurs when an external format name
	// does not resolve to a supported text encoding.
	ErrUnknownFormat = errors.New("unknown external format")
)

// Buffering selects how writes are batched before reaching the device.
type Buffering int

const (
	// BufferFull batches writes until the buffer fills or the stream is
	// flushed or closed.
	BufferFull Buffering = iota

	// BufferLine batches writes but flushes whenever a newline is written.
	BufferLine

	// BufferNone passes every write to the device immediately.
	BufferNone
)

// Config carries the buffering mode, buffer size and external text format of
// a stream. An empty ExternalFormat means raw bytes; otherwise it is resolved
// as an IANA charset name.
type Config struct {
	Buffering      Buffering
	BufferSize     int
	ExternalFormat string
}

// Stream is a buffered file stream owning a [device.Device] for its full
// lifetime. Reads and writes block by driving the device's timeout-bounded
// primitives with no deadline.
type Stream struct {
	dev  device.Device
	mode Buffering

	r  io.Reader
	w  io.Writer
	bw *bufio.Writer
	tw *transform.Writer

	closed bool
}

// resolve checks the configuration against the allowed value sets and
// returns the effective buffer size and text encoding (nil for raw bytes).
// It touches no device.
func (c Config) resolve() (int, encoding.Encoding, error) {
	switch c.Buffering {
	case BufferFull, BufferLine, BufferNone:
	default:
		return 0, nil, fmt.Errorf("%w: unknown buffering mode %d", device.ErrInvalidConfig, int(c.Buffering))
	}

	size := c.BufferSize
	if size == 0 {
		size = DefaultBufferSize
	}
	if size < 0 {
		return 0, nil, fmt.Errorf("%w: negative buffer size %d", device.ErrInvalidConfig, size)
	}

	var enc encoding.Encoding
	if c.ExternalFormat != "" {
		var err error

		enc, err = ianaindex.IANA.Encoding(c.ExternalFormat)
		if err != nil || enc == nil {
			return 0, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, c.ExternalFormat)
		}
	}

	return size, enc, nil
}

// Validate checks the buffering mode, buffer size and external format without
// constructing a stream, so callers can reject a bad configuration before
// opening any device.
func (c Config) Validate() error {
	_, _, err := c.resolve()

	return err
}

// New wraps dev in a buffered stream, taking ownership of it. On a
// configuration error the device is left untouched and remains owned by the
// caller.
func New(dev device.Device, cfg Config) (*Stream, error) {
	size, enc, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	s := &Stream{dev: dev, mode: cfg.Buffering}

	var r io.Reader = deviceReader{dev: dev}
	if cfg.Buffering != BufferNone {
		r = bufio.NewReaderSize(r, size)
	}
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	s.r = r

	var w io.Writer = deviceWriter{dev: dev}
	if cfg.Buffering != BufferNone {
		s.bw = bufio.NewWriterSize(w, size)
		w = s.bw
	}
	if enc != nil {
		s.tw = transform.NewWriter(w, enc.NewEncoder())
		w = s.tw
	}
	s.w = w

	return s, nil
}

// Read reads decoded bytes from the stream, returning [io.EOF] at end of file.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}

	n, err := s.r.Read(p)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}

		return n, fmt.Errorf("failed to read from device: %w", err)
	}

	return n, nil
}

// Write writes p through the configured encoding and buffering. In line mode
// the buffer is flushed whenever p contains a newline.
func (s *Stream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}

	n, err := s.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("failed to write to device: %w", err)
	}

	if s.mode == BufferLine && bytes.IndexByte(p[:n], '\n') >= 0 {
		if err := s.Flush(); err != nil {
			return n, err
		}
	}

	return n, nil
}

// Flush forces all buffered bytes out to the device. Bytes an encoder still
// holds back (an incomplete multi-byte sequence) cannot be forced out
// mid-stream; they reach the device when Close finishes the encoding.
func (s *Stream) Flush() error {
	if s.closed {
		return ErrStreamClosed
	}

	if s.bw != nil {
		if err := s.bw.Flush(); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

// Close flushes the stream and relinquishes the owned device. A second Close
// is a usage error ([ErrStreamClosed]).
func (s *Stream) Close() error {
	if s.closed {
		return ErrStreamClosed
	}
	s.closed = true

	var firstErr error

	if s.tw != nil {
		if err := s.tw.Close(); err != nil {
			firstErr = fmt.Errorf("failed to finish encoding: %w", err)
		}
	}

	if s.bw != nil {
		if err := s.bw.Flush(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	if err := s.dev.Relinquish(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to relinquish device: %w", err)
	}

	return firstErr
}

// deviceReader adapts a device to [io.Reader], mapping the device's
// successful zero-byte end-of-file outcome to [io.EOF].
type deviceReader struct {
	dev device.Device
}

func (r deviceReader) Read(p []byte) (int, error) {
	n, err := r.dev.ReadTimeout(p, -1)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}

	return n, nil
}

// deviceWriter adapts a device to [io.Writer], retrying short writes until
// the whole slice is transferred.
type deviceWriter struct {
	dev device.Device
}

func (w deviceWriter) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := w.dev.WriteTimeout(p[total:], -1)
		if err != nil {
			return total, err
		}
		total += n
	}

	return total, nil
}
