// Package device implements the lowest-level file abstraction of the module:
// a device owning exactly one OS descriptor, opened according to a resolved
// [Policy] and driven through non-blocking and timeout-bounded primitives.
package device

import (
	"errors"
	"sync"
	"time"

	"github.com/copperwire/fdio/internal/syscalls"
	"golang.org/x/sys/unix"
)

// DefaultMode is the creation mode used when a caller passes no explicit
// permission bits.
const DefaultMode uint32 = 0o666

type unixProvider interface {
	Open(path string, flag int, perm uint32) (int, error)
	Close(fd int) error
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Seek(fd int, offset int64, whence int) (int64, error)
	Fstat(fd int, stat *unix.Stat_t) error
	Ftruncate(fd int, length int64) error
	Fsync(fd int) error
	Unlink(path string) error
	Poll(fds []unix.PollFd, timeout int) (int, error)
	SetNonblock(fd int, nonblocking bool) error
}

// Device is the capability set of an open file device. A device is backed by
// exactly one live OS descriptor and is destroyed by a single [Device.Relinquish].
type Device interface {
	ReadNonblocking(p []byte) (int, error)
	WriteNonblocking(p []byte) (int, error)
	ReadTimeout(p []byte, timeout time.Duration) (int, error)
	WriteTimeout(p []byte, timeout time.Duration) (int, error)
	Poll(dir Direction, timeout *time.Duration) (ready bool, hangup bool, err error)
	Position() (int64, error)
	SetPosition(offset int64, origin Origin) (int64, error)
	Length() (int64, error)
	SetLength(n int64) error
	Sync() error
	Path() string
	Relinquish() error
}

// FileDevice is the plain-file implementation of [Device].
//
// The descriptor is owned exclusively and is switched to non-blocking mode
// during the open sequence; any blocking behavior exposed upward is emulated
// by the timeout-bounded primitives.
type FileDevice struct {
	sys   unixProvider
	path  string
	flags int
	mode  uint32

	mu     sync.Mutex
	fd     int
	active int
}

var _ Device = (*FileDevice)(nil)

// Open resolves the given policy and opens a file device on path using the
// real OS syscall surface. mode supplies the creation permission bits.
func Open(path string, pol Policy, mode uint32) (*FileDevice, error) {
	return OpenWith(syscalls.Unix{}, path, pol, mode)
}

// OpenWith is [Open] with an injectable syscall surface.
//
// The open sequence makes at most three syscalls before the device exists:
// the open, and for the delete policy on an existing path, one unlink
// followed by exactly one retried open with the retry disabled.
func OpenWith(sys unixProvider, path string, pol Policy, mode uint32) (*FileDevice, error) {
	res, err := pol.Resolve()
	if err != nil {
		return nil, err
	}

	fd, err := sys.Open(path, res.Flags, mode)
	if err != nil && res.DeleteIfExists && errors.Is(err, unix.EEXIST) {
		if uerr := sys.Unlink(path); uerr != nil {
			return nil, newFileError("opening", path, uerr)
		}

		fd, err = sys.Open(path, res.Flags, mode)
	}
	if err != nil {
		return nil, newFileError("opening", path, err)
	}

	if err := sys.SetNonblock(fd, true); err != nil {
		sys.Close(fd) //nolint:errcheck

		return nil, newFileError("opening", path, err)
	}

	return &FileDevice{
		sys:   sys,
		path:  path,
		flags: res.Flags,
		mode:  mode,
		fd:    fd,
	}, nil
}

// Path returns the path the device was opened on.
func (d *FileDevice) Path() string {
	return d.path
}

// Relinquish closes the descriptor and clears ownership. A second Relinquish
// on the same device is a usage error ([ErrDeviceClosed]), as is a Relinquish
// while another operation still holds the device ([ErrDeviceBusy]).
func (d *FileDevice) Relinquish() error {
	d.mu.Lock()

	if d.fd < 0 {
		d.mu.Unlock()

		return ErrDeviceClosed
	}
	if d.active > 0 {
		d.mu.Unlock()

		return ErrDeviceBusy
	}

	fd := d.fd
	d.fd = -1
	d.mu.Unlock()

	if err := d.sys.Close(fd); err != nil {
		return newFileError("closing", d.path, err)
	}

	return nil
}

// acquire is the scoped guard taken on entry of every operation: it hands out
// the descriptor only while the device is open and pins the device against a
// concurrent Relinquish until the matching release.
func (d *FileDevice) acquire() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return -1, ErrDeviceClosed
	}
	d.active++

	return d.fd, nil
}

func (d *FileDevice) release() {
	d.mu.Lock()
	d.active--
	d.mu.Unlock()
}
