package device

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is an error that occurs when an open policy is invalid
	// or self-contradictory; it is always raised before any syscall is made.
	ErrInvalidConfig = errors.New("invalid open configuration")

	// ErrWouldBlock is an error that occurs when a non-blocking read or write
	// finds no data or buffer space available at the time of the attempt.
	ErrWouldBlock = errors.New("operation would block")

	// ErrTimeout is an error that occurs when a timeout-bounded read or write
	// exhausts its time budget without transferring a single byte.
	ErrTimeout = errors.New("operation timed out")

	// ErrDeviceClosed is a usage error that occurs when an operation is
	// attempted on a device whose descriptor was already relinquished.
	ErrDeviceClosed = errors.New("device is closed")

	// ErrDeviceBusy is a usage error that occurs when a device is relinquished
	// while another operation still holds it.
	ErrDeviceBusy = errors.New("device is in use")
)

// FileError describes a failed syscall on a file device. It carries the
// attempted operation, the path of the device and the originating OS error.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("error %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func newFileError(op string, path string, err error) *FileError {
	return &FileError{Op: op, Path: path, Err: err}
}
