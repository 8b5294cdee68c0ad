package device

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// ReadNonblocking makes exactly one read attempt and never blocks. It returns
// the number of bytes read, which is 0 at end of file, or [ErrWouldBlock]
// when no data is currently available.
func (d *FileDevice) ReadNonblocking(p []byte) (int, error) {
	fd, err := d.acquire()
	if err != nil {
		return 0, err
	}
	defer d.release()

	return d.readFd(fd, p)
}

// WriteNonblocking makes exactly one write attempt and never blocks. It
// returns the number of bytes written, possibly short, or [ErrWouldBlock]
// when no buffer space is currently available.
func (d *FileDevice) WriteNonblocking(p []byte) (int, error) {
	fd, err := d.acquire()
	if err != nil {
		return 0, err
	}
	defer d.release()

	return d.writeFd(fd, p)
}

// ReadTimeout repeats poll-then-read cycles until data arrives or the time
// budget elapses. It returns the bytes read on any progress, 0 at end of
// file, or [ErrTimeout] when the budget elapsed without a single byte. A
// negative timeout means no deadline.
func (d *FileDevice) ReadTimeout(p []byte, timeout time.Duration) (int, error) {
	fd, err := d.acquire()
	if err != nil {
		return 0, err
	}
	defer d.release()

	return d.transferFd(fd, p, timeout, Input)
}

// WriteTimeout repeats poll-then-write cycles until buffer space is found or
// the time budget elapses. It returns the bytes written on any progress, or
// [ErrTimeout] when the budget elapsed without a single byte. A negative
// timeout means no deadline.
func (d *FileDevice) WriteTimeout(p []byte, timeout time.Duration) (int, error) {
	fd, err := d.acquire()
	if err != nil {
		return 0, err
	}
	defer d.release()

	return d.transferFd(fd, p, timeout, Output)
}

func (d *FileDevice) readFd(fd int, p []byte) (int, error) {
	n, err := d.sys.Read(fd, p)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, ErrWouldBlock
		}

		return 0, newFileError("reading", d.path, err)
	}

	return n, nil
}

func (d *FileDevice) writeFd(fd int, p []byte) (int, error) {
	n, err := d.sys.Write(fd, p)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, ErrWouldBlock
		}

		return 0, newFileError("writing", d.path, err)
	}

	return n, nil
}

// transferFd drives the timeout-bounded cycle: one non-blocking attempt, then
// a readiness wait bounded by the remaining budget, repeated until progress
// or expiry. The budget only ever shrinks, so the loop terminates for every
// non-negative timeout.
func (d *FileDevice) transferFd(fd int, p []byte, timeout time.Duration, dir Direction) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	unbounded := timeout < 0
	deadline := time.Now().Add(timeout)

	for {
		var n int
		var err error

		if dir == Input {
			n, err = d.readFd(fd, p)
		} else {
			n, err = d.writeFd(fd, p)
		}

		if err == nil {
			return n, nil
		}
		if !errors.Is(err, ErrWouldBlock) {
			return 0, err
		}

		var wait *time.Duration
		if !unbounded {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return 0, ErrTimeout
			}
			wait = &remaining
		}

		if _, _, err := d.pollFd(fd, dir, wait); err != nil {
			return 0, err
		}
	}
}
