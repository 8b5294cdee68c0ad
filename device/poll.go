package device

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Poll queries OS-level readiness for exactly the requested direction.
// A nil timeout polls indefinitely; a zero timeout is a single immediate
// check. ready reports whether the device can transfer in dir without
// blocking; hangup reports a peer hang-up, which on pipes and FIFOs arrives
// independently of readiness.
func (d *FileDevice) Poll(dir Direction, timeout *time.Duration) (ready bool, hangup bool, err error) {
	fd, err := d.acquire()
	if err != nil {
		return false, false, err
	}
	defer d.release()

	return d.pollFd(fd, dir, timeout)
}

func (d *FileDevice) pollFd(fd int, dir Direction, timeout *time.Duration) (bool, bool, error) {
	var events int16

	switch dir {
	case Input:
		events = unix.POLLIN
	case Output:
		events = unix.POLLOUT
	default:
		return false, false, fmt.Errorf("%w: cannot poll direction %q", ErrInvalidConfig, dir)
	}

	indefinite := timeout == nil || *timeout < 0

	var deadline time.Time
	if !indefinite {
		deadline = time.Now().Add(*timeout)
	}

	for {
		ms := -1
		if !indefinite {
			ms = budgetMs(time.Until(deadline))
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}

		n, err := d.sys.Poll(fds, ms)
		if err != nil {
			// An interrupted poll is re-issued with the shrunken budget.
			if errors.Is(err, unix.EINTR) {
				if !indefinite && time.Until(deadline) <= 0 {
					return false, false, nil
				}

				continue
			}

			return false, false, newFileError("polling", d.path, err)
		}
		if n == 0 {
			return false, false, nil
		}

		revents := fds[0].Revents

		// Error conditions count as ready so the following attempt surfaces
		// the real errno instead of spinning here.
		ready := revents&(events|unix.POLLERR|unix.POLLNVAL) != 0
		hangup := revents&unix.POLLHUP != 0

		return ready, hangup, nil
	}
}

// budgetMs converts a remaining budget to poll(2) milliseconds, rounding a
// still-positive sub-millisecond remainder up so it is not mistaken for an
// immediate check.
func budgetMs(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}

	ms := int(remaining.Milliseconds())
	if ms == 0 {
		ms = 1
	}

	return ms
}
