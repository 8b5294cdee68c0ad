package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/copperwire/fdio"
	"github.com/copperwire/fdio/device"
	"github.com/copperwire/fdio/stream"
	"github.com/zeebo/blake3"
)

const copyChunkSize = 128 * 1024

var (
	// errUnknownBuffering is an error that occurs when the buffering flag
	// names no known mode.
	errUnknownBuffering = errors.New("unknown buffering mode")

	// errHashMismatch is an error that occurs when the destination checksum
	// differs from the source checksum after the copy.
	errHashMismatch = errors.New("hash mismatch")
)

type copySettings struct {
	timeout   time.Duration
	bufSize   int
	buffering stream.Buffering
	format    string
	clobber   bool
	verify    bool
}

func copyFile(src, dst string, settings copySettings) (int64, error) {
	srcDev, err := fdio.OpenDevice(src, fdio.Options{Direction: device.Input})
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer srcDev.Relinquish() //nolint:errcheck

	ifExists := device.ExistsError
	if settings.clobber {
		ifExists = device.ExistsDelete
	}

	dstStream, err := fdio.OpenStream(dst, fdio.Options{
		Direction:      device.Output,
		IfExists:       ifExists,
		Buffering:      settings.buffering,
		BufferSize:     settings.bufSize,
		ExternalFormat: settings.format,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to open destination %s: %w", dst, err)
	}

	streamClosed := false
	defer func() {
		if !streamClosed {
			dstStream.Close() //nolint:errcheck
		}
	}()

	hasher := blake3.New()
	buf := make([]byte, copyChunkSize)

	var total int64

	for {
		n, err := srcDev.ReadTimeout(buf, settings.timeout)
		if err != nil {
			if errors.Is(err, device.ErrTimeout) {
				return total, fmt.Errorf("source read made no progress: %w", err)
			}

			return total, fmt.Errorf("failed to read source: %w", err)
		}
		if n == 0 {
			break
		}

		hasher.Write(buf[:n]) //nolint:errcheck

		if _, err := dstStream.Write(buf[:n]); err != nil {
			return total, fmt.Errorf("failed to write destination: %w", err)
		}

		total += int64(n)
	}

	streamClosed = true
	if err := dstStream.Close(); err != nil {
		return total, fmt.Errorf("failed to close destination: %w", err)
	}

	if settings.verify {
		srcChecksum := hex.EncodeToString(hasher.Sum(nil))

		if err := verifyFile(dst, srcChecksum, settings.timeout); err != nil {
			return total, err
		}

		slog.Debug("Checksum verified.", "dst", dst, "checksum", srcChecksum)
	}

	return total, nil
}

// verifyFile re-reads the finished destination and compares its checksum
// against the source checksum.
func verifyFile(path string, wantChecksum string, timeout time.Duration) error {
	dev, err := fdio.OpenDevice(path, fdio.Options{Direction: device.Input})
	if err != nil {
		return fmt.Errorf("failed to reopen destination: %w", err)
	}
	defer dev.Relinquish() //nolint:errcheck

	hasher := blake3.New()
	buf := make([]byte, copyChunkSize)

	for {
		n, err := dev.ReadTimeout(buf, timeout)
		if err != nil {
			return fmt.Errorf("failed to read back destination: %w", err)
		}
		if n == 0 {
			break
		}

		hasher.Write(buf[:n]) //nolint:errcheck
	}

	gotChecksum := hex.EncodeToString(hasher.Sum(nil))
	if gotChecksum != wantChecksum {
		return fmt.Errorf("%w: %s (src) != %s (dst)", errHashMismatch, wantChecksum, gotChecksum)
	}

	return nil
}
